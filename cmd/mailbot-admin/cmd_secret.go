package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/llm-mailbot/internal/credential"
)

// secretCmd manages keyring entries referenced as "keyring:<name>"
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in the system keyring",
	Long: `Store passwords and API keys in the system keyring.

A configuration value written as "keyring:<name>" is read from the entry
<name> at startup, for example:

  imap:
    password: keyring:imap-password`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a secret read from standard input",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretDelete,
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	value, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return err
	}
	return invoke(func(secrets *credential.Store) error {
		if err := secrets.Set(args[0], value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s; refer to it as %s%s\n", args[0], credential.Prefix, args[0])
		return nil
	})
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	return invoke(func(secrets *credential.Store) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

// readSecret returns the first line of r without its line ending
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty secret")
	}
	return line, nil
}
