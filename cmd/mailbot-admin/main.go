package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/mikey/llm-mailbot/internal/di"
)

var (
	// Global flags
	flags   di.AdminFlags
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mailbot-admin",
	Short: "Administer the mail bot's rules, mailbox and secrets",
	Long: `mailbot-admin works on the same configuration as the chat bot.

Use it to inspect and edit the filing rules, to file a folder once from the
command line, and to store passwords and API keys in the system keyring so the
configuration can refer to them as "keyring:<name>".`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&flags.Provider, "provider", "", "Override the LLM provider (bedrock, gemini, openai)")
	rootCmd.PersistentFlags().StringVar(&flags.RulesBackend, "rules-backend", "", "Override the rule store backend (memory, sqlite, mysql)")
	rootCmd.PersistentFlags().StringVar(&flags.SQLitePath, "sqlite-path", "", "Override the SQLite rule database path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(secretCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// invoke builds a fresh container from the global flags and runs fn in it
func invoke(fn interface{}) error {
	container, err := di.BuildAdminContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	if err := container.Invoke(fn); err != nil {
		return dig.RootCause(err)
	}
	return nil
}
