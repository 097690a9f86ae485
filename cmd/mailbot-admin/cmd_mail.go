package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/imap"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/factory"
	"github.com/mikey/llm-mailbot/internal/metrics"
)

var (
	classifyLimit int
	listLimit     int
)

// classifyCmd files one folder against the rules and the classifier
var classifyCmd = &cobra.Command{
	Use:   "classify <folder>",
	Short: "File the latest messages of a folder",
	Long: `Classify the latest messages of a folder and move each one that belongs
elsewhere. Rules are applied first; the rest go to the configured LLM.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

// listCmd prints the latest messages of a folder
var listCmd = &cobra.Command{
	Use:   "list <folder>",
	Short: "Show the latest messages of a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	classifyCmd.Flags().IntVarP(&classifyLimit, "limit", "n", 50, "Maximum number of messages to examine")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Maximum number of messages to show")
}

func runClassify(cmd *cobra.Command, args []string) error {
	return invoke(func(
		reconciler *core.Reconciler,
		store *core.RuleStore,
		repo factory.RuleRepository,
		mailbox *imap.Mailbox,
		backend metrics.Backend,
		logger *zap.Logger,
	) error {
		defer logger.Sync()
		defer repo.Close()
		defer mailbox.Close()
		if closer, ok := backend.(io.Closer); ok {
			defer closer.Close()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := store.Reload(ctx); err != nil {
			return err
		}
		report, err := reconciler.ReconcileBucket(ctx, args[0], classifyLimit)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), args[0], report)
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return invoke(func(mailbox *imap.Mailbox, logger *zap.Logger) error {
		defer logger.Sync()
		defer mailbox.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		envelopes, err := mailbox.ListMessages(ctx, args[0], listLimit)
		if err != nil {
			return err
		}
		printEnvelopes(cmd.OutOrStdout(), args[0], envelopes)
		return nil
	})
}

func printReport(out io.Writer, bucket string, report *core.ReconcileReport) {
	fmt.Fprintf(out, "%s: %d checked, %d moved, %d already filed, %d not moved\n",
		bucket, report.Analyzed, report.Moved, report.Unchanged, report.Errors)
	for _, m := range report.Movements {
		fmt.Fprintf(out, "  moved  %q %s -> %s (%s)\n", m.Subject, m.From, m.To, m.Reason)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  failed %q: %s\n", f.Subject, f.Reason)
	}
}

func printEnvelopes(out io.Writer, bucket string, envelopes []core.MessageEnvelope) {
	if len(envelopes) == 0 {
		fmt.Fprintf(out, "%s is empty\n", bucket)
		return
	}
	for i := len(envelopes) - 1; i >= 0; i-- {
		env := envelopes[i]
		from := env.Sender
		if env.SenderDisplayName != "" {
			from = fmt.Sprintf("%s <%s>", env.SenderDisplayName, env.Sender)
		}
		fmt.Fprintf(out, "[%s] %s\n    %s\n", env.ID, env.Subject, from)
		if env.PreviewText != "" {
			fmt.Fprintf(out, "    %s\n", env.PreviewText)
		}
	}
}
