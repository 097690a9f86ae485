package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/factory"
)

// rulesCmd manages the filing rules
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage filing rules",
	Long: `List and edit the ordered filing rules. The first matching rule wins.

Available subcommands:
  list   - Show the rules in precedence order
  add    - Append a rule at the lowest precedence
  remove - Remove rules by pattern or by #position
  clear  - Remove every rule`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the rules in precedence order",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <sender|subject|contains> <pattern> <folder>",
	Short: "Append a rule",
	Example: `  mailbot-admin rules add sender linkedin.com Social
  mailbot-admin rules add subject "weekly report" Work`,
	Args: cobra.ExactArgs(3),
	RunE: runRulesAdd,
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <pattern|#n>",
	Short: "Remove rules by pattern or by position",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRemove,
}

var rulesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every rule",
	Args:  cobra.NoArgs,
	RunE:  runRulesClear,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
	rulesCmd.AddCommand(rulesClearCmd)
}

// withRules loads the rule store and hands it to fn. The repository is
// closed afterwards. The process exits right after, so a change the
// repository rejected is reported as a failure.
func withRules(cmd *cobra.Command, fn func(ctx context.Context, store *core.RuleStore, out io.Writer) error) error {
	return invoke(func(store *core.RuleStore, repo factory.RuleRepository, logger *zap.Logger) error {
		defer logger.Sync()
		defer repo.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := store.Reload(ctx); err != nil {
			return err
		}
		err := fn(ctx, store, cmd.OutOrStdout())
		var warning *core.DurabilityWarning
		if errors.As(err, &warning) {
			return fmt.Errorf("change was not saved: %w", warning.Err)
		}
		return err
	})
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	return withRules(cmd, func(_ context.Context, store *core.RuleStore, out io.Writer) error {
		printRules(out, store.List())
		return nil
	})
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	matchType, err := core.ParseMatchType(args[0])
	if err != nil {
		return err
	}
	return withRules(cmd, func(ctx context.Context, store *core.RuleStore, out io.Writer) error {
		rule, err := store.Add(ctx, core.Rule{Pattern: args[1], MatchType: matchType, Folder: args[2]})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added: %s %q -> %s\n", rule.MatchType, rule.Pattern, rule.Folder)
		return nil
	})
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])
	return withRules(cmd, func(ctx context.Context, store *core.RuleStore, out io.Writer) error {
		if n, ok := strings.CutPrefix(target, "#"); ok {
			position, err := strconv.Atoi(n)
			if err != nil {
				return fmt.Errorf("invalid position %q", target)
			}
			rule, err := store.RemoveAt(ctx, position)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed: %s %q -> %s\n", rule.MatchType, rule.Pattern, rule.Folder)
			return nil
		}

		removed, err := store.Remove(ctx, target)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no rule with pattern %q", target)
		}
		fmt.Fprintf(out, "Removed rules for %q\n", target)
		return nil
	})
}

func runRulesClear(cmd *cobra.Command, _ []string) error {
	return withRules(cmd, func(ctx context.Context, store *core.RuleStore, out io.Writer) error {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "All rules removed")
		return nil
	})
}

func printRules(out io.Writer, rules []core.Rule) {
	if len(rules) == 0 {
		fmt.Fprintln(out, "No rules")
		return
	}
	for i, r := range rules {
		fmt.Fprintf(out, "%d. %s %q -> %s\n", i+1, r.MatchType, r.Pattern, r.Folder)
	}
}
