package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-mailbot/internal/core"
)

const helpText = `Commands:
  rules                                   list filing rules (first match wins)
  rule add <sender|subject|contains> <pattern> -> <folder>
  rule remove <pattern|#n>
  rules clear
  classify <folder> [limit]               re-file messages to match the rules
  recent [n]                              recent classifications
  instructions [text|clear]               show or set classifier instructions
  list <folder> [limit]                   latest messages with previews
  search <text>                           search the inbox
  write to <name|address>: <what to say>  draft an email
  revise <changes> | approve | send | cancel | draft`

const draftPrompt = `Reply "send" to send it, "revise <changes>" to change it, or "cancel".`

func unavailableText(what string) string {
	return fmt.Sprintf("Sorry, I couldn't %s right now. Please try again in a moment.", what)
}

func renderRule(r core.Rule) string {
	return fmt.Sprintf("%s %q -> %s", r.MatchType, r.Pattern, r.Folder)
}

func renderRules(rules []core.Rule) string {
	if len(rules) == 0 {
		return "No rules yet. Add one with: " + usageRuleAdd
	}
	var b strings.Builder
	b.WriteString("Rules (first match wins):")
	for i, r := range rules {
		fmt.Fprintf(&b, "\n%d. %s", i+1, renderRule(r))
	}
	return b.String()
}

func renderReport(bucket string, report *core.ReconcileReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checked %d in %s: %d moved, %d already filed, %d not moved.",
		report.Analyzed, bucket, report.Moved, report.Unchanged, report.Errors)
	if len(report.Movements) > 0 {
		b.WriteString("\nMoved:")
		for _, m := range report.Movements {
			fmt.Fprintf(&b, "\n- %q %s -> %s", m.Subject, m.From, m.To)
		}
	}
	if len(report.Failures) > 0 {
		b.WriteString("\nNot moved:")
		for _, f := range report.Failures {
			fmt.Fprintf(&b, "\n- %q: %s", f.Subject, f.Reason)
		}
	}
	return b.String()
}

func renderRecent(entries []core.MemoryEntry) string {
	if len(entries) == 0 {
		return "Nothing classified yet."
	}
	var b strings.Builder
	b.WriteString("Recently classified:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n- %s %q from %s -> %s",
			e.ClassifiedAt.Format("Jan 2 15:04"), e.Subject, e.Sender, e.Bucket)
	}
	return b.String()
}

func renderInstructions(text string) string {
	if text == "" {
		return "No classifier instructions set. Set them with: instructions <text>"
	}
	return "Classifier instructions:\n" + text
}

func renderEnvelopes(envs []core.MessageEnvelope) string {
	var b strings.Builder
	for i, e := range envs {
		if i > 0 {
			b.WriteString("\n")
		}
		from := e.Sender
		if e.SenderDisplayName != "" {
			from = e.SenderDisplayName
		}
		fmt.Fprintf(&b, "- %s: %s", from, e.Subject)
		if e.PreviewText != "" {
			fmt.Fprintf(&b, "\n  %s", e.PreviewText)
		}
	}
	return b.String()
}

func renderCandidates(query string, candidates []core.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I know %d people matching %q. Which one?", len(candidates), query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %s", i+1, c)
	}
	b.WriteString("\nReply with a number, an email address, or \"cancel\".")
	return b.String()
}

func renderDraft(d core.DraftSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft to %s", recipientOf(d))
	if d.RevisionCount > 0 {
		fmt.Fprintf(&b, " (revision %d)", d.RevisionCount)
	}
	if d.Status == core.DraftApproved {
		b.WriteString(", approved")
	}
	fmt.Fprintf(&b, "\nSubject: %s\n\n%s", d.Subject, d.Body)
	return b.String()
}

func recipientOf(d core.DraftSession) string {
	return core.Contact{Name: d.RecipientName, Address: d.Recipient}.String()
}
