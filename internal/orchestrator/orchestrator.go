package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/access"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/metrics"
)

const (
	// DefaultListLimit bounds list, search and recent replies
	DefaultListLimit = 10
	// DefaultClassifyLimit bounds a chat-triggered reconciliation
	DefaultClassifyLimit = 50
)

// Options tune the orchestrator's defaults
type Options struct {
	ListLimit     int
	ClassifyLimit int
	SearchBucket  string
	SearchLimit   int
}

// Orchestrator turns chat messages into calls on the core and renders the
// outcome as a reply. It never returns an error: every failure becomes text.
type Orchestrator struct {
	engine        *core.ClassificationEngine
	reconciler    *core.Reconciler
	drafts        *core.DraftManager
	disambiguator *core.Disambiguator
	contacts      core.ContactDirectory
	mailbox       core.Mailbox
	access        *access.List
	logger        *zap.Logger
	opts          Options
}

// New creates an orchestrator
func New(
	engine *core.ClassificationEngine,
	reconciler *core.Reconciler,
	drafts *core.DraftManager,
	disambiguator *core.Disambiguator,
	contacts core.ContactDirectory,
	mailbox core.Mailbox,
	allow *access.List,
	logger *zap.Logger,
	opts Options,
) *Orchestrator {
	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultListLimit
	}
	if opts.ClassifyLimit <= 0 {
		opts.ClassifyLimit = DefaultClassifyLimit
	}
	if opts.SearchBucket == "" {
		opts.SearchBucket = "INBOX"
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 200
	}
	if allow == nil {
		allow = access.NewList(nil, logger)
	}
	return &Orchestrator{
		engine:        engine,
		reconciler:    reconciler,
		drafts:        drafts,
		disambiguator: disambiguator,
		contacts:      contacts,
		mailbox:       mailbox,
		access:        allow,
		logger:        logger,
		opts:          opts,
	}
}

// Handle processes one chat message from initiator and returns the reply
func (o *Orchestrator) Handle(ctx context.Context, initiator, text string) string {
	if !o.access.Allowed(initiator) {
		metrics.RejectedInitiatorsTotal.Inc()
		o.logger.Warn("Message from initiator not on the allow-list", zap.String("initiator", initiator))
		return "Sorry, you are not allowed to use this bot."
	}

	text = strings.TrimSpace(text)

	// While a recipient choice is open, every reply is a selection.
	if _, ok := o.disambiguator.Pending(initiator); ok {
		if reply, handled := o.handleSelection(ctx, initiator, text); handled {
			return reply
		}
	}

	cmd, err := Parse(text)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("unknown").Inc()
		return err.Error()
	}
	metrics.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()

	o.logger.Debug("Handling command",
		zap.String("initiator", initiator),
		zap.String("command", string(cmd.Kind)))

	return o.dispatch(ctx, initiator, cmd)
}

func (o *Orchestrator) dispatch(ctx context.Context, initiator string, cmd Command) string {
	switch cmd.Kind {
	case KindHelp:
		return helpText
	case KindListRules:
		return renderRules(o.engine.Rules().List())
	case KindAddRule:
		return o.addRule(ctx, cmd.Rule)
	case KindRemoveRule:
		return o.removeRule(ctx, cmd)
	case KindClearRules:
		return o.clearRules(ctx)
	case KindClassify:
		return o.classify(ctx, cmd)
	case KindRecent:
		return renderRecent(o.engine.Memory().Recent(o.limit(cmd.Limit, o.opts.ListLimit)))
	case KindShowInstructions:
		return renderInstructions(o.engine.Instructions())
	case KindSetInstructions:
		o.engine.SetInstructions(cmd.Text)
		if cmd.Text == "" {
			return "Classifier instructions cleared."
		}
		return "Classifier instructions updated."
	case KindList:
		return o.list(ctx, cmd)
	case KindSearch:
		return o.search(ctx, cmd.Query)
	case KindCompose:
		return o.compose(ctx, initiator, cmd)
	case KindRevise:
		return o.revise(ctx, initiator, cmd.Text)
	case KindApprove:
		return o.approve(initiator)
	case KindSend:
		return o.send(ctx, initiator)
	case KindCancel:
		return o.cancel(initiator)
	case KindStatus:
		if draft, ok := o.drafts.Get(initiator); ok {
			return renderDraft(draft)
		}
		return "You have no draft in progress."
	}
	return helpText
}

func (o *Orchestrator) limit(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

func (o *Orchestrator) addRule(ctx context.Context, rule core.Rule) string {
	added, err := o.engine.Rules().Add(ctx, rule)
	var warning *core.DurabilityWarning
	switch {
	case errors.As(err, &warning):
		o.logger.Warn("Rule added without persistence", zap.Error(err))
		return fmt.Sprintf("Added rule: %s. It could not be saved and will be lost on restart.", renderRule(added))
	case err != nil:
		return fmt.Sprintf("Could not add the rule: %v", err)
	}
	return fmt.Sprintf("Added rule #%d: %s. Run \"classify <folder>\" to apply it to filed mail.",
		len(o.engine.Rules().List()), renderRule(added))
}

func (o *Orchestrator) removeRule(ctx context.Context, cmd Command) string {
	store := o.engine.Rules()
	var warning *core.DurabilityWarning

	if cmd.Position > 0 {
		removed, err := store.RemoveAt(ctx, cmd.Position)
		switch {
		case errors.Is(err, core.ErrNotFound):
			return fmt.Sprintf("There is no rule #%d. Type \"rules\" to see them.", cmd.Position)
		case errors.As(err, &warning):
			return fmt.Sprintf("Removed rule: %s. The change could not be saved and will be undone on restart.", renderRule(removed))
		case err != nil:
			return fmt.Sprintf("Could not remove the rule: %v", err)
		}
		return fmt.Sprintf("Removed rule: %s.", renderRule(removed))
	}

	removed, err := store.Remove(ctx, cmd.Pattern)
	switch {
	case errors.As(err, &warning):
		return fmt.Sprintf("Removed rules for %q. The change could not be saved and will be undone on restart.", cmd.Pattern)
	case err != nil:
		return fmt.Sprintf("Could not remove the rule: %v", err)
	case !removed:
		return fmt.Sprintf("No rule has the pattern %q.", cmd.Pattern)
	}
	return fmt.Sprintf("Removed rules for %q.", cmd.Pattern)
}

func (o *Orchestrator) clearRules(ctx context.Context) string {
	err := o.engine.Rules().Clear(ctx)
	var warning *core.DurabilityWarning
	switch {
	case errors.As(err, &warning):
		return "All rules removed. The change could not be saved and will be undone on restart."
	case err != nil:
		return fmt.Sprintf("Could not clear the rules: %v", err)
	}
	return "All rules removed."
}

func (o *Orchestrator) classify(ctx context.Context, cmd Command) string {
	report, err := o.reconciler.ReconcileBucket(ctx, cmd.Bucket, o.limit(cmd.Limit, o.opts.ClassifyLimit))
	if err != nil {
		o.logger.Error("Reconciliation failed", zap.String("bucket", cmd.Bucket), zap.Error(err))
		return unavailableText("read " + cmd.Bucket)
	}
	metrics.ObserveReconcile("chat", report)
	return renderReport(cmd.Bucket, report)
}

func (o *Orchestrator) list(ctx context.Context, cmd Command) string {
	envs, err := o.mailbox.ListMessages(ctx, cmd.Bucket, o.limit(cmd.Limit, o.opts.ListLimit))
	if err != nil {
		o.logger.Error("Listing failed", zap.String("bucket", cmd.Bucket), zap.Error(err))
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Sprintf("There is no folder called %q.", cmd.Bucket)
		}
		return unavailableText("read " + cmd.Bucket)
	}
	if len(envs) == 0 {
		return fmt.Sprintf("%s is empty.", cmd.Bucket)
	}
	return fmt.Sprintf("Latest %d in %s:\n%s", len(envs), cmd.Bucket, renderEnvelopes(envs))
}

func (o *Orchestrator) search(ctx context.Context, query string) string {
	envs, err := o.mailbox.ListMessages(ctx, o.opts.SearchBucket, o.opts.SearchLimit)
	if err != nil {
		o.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		return unavailableText("search " + o.opts.SearchBucket)
	}

	q := strings.ToLower(query)
	var hits []core.MessageEnvelope
	for i := len(envs) - 1; i >= 0 && len(hits) < o.opts.ListLimit; i-- {
		e := envs[i]
		for _, field := range []string{e.Sender, e.SenderDisplayName, e.Subject, e.PreviewText} {
			if strings.Contains(strings.ToLower(field), q) {
				hits = append(hits, e)
				break
			}
		}
	}
	if len(hits) == 0 {
		return fmt.Sprintf("Nothing in %s matches %q.", o.opts.SearchBucket, query)
	}
	// hits are newest first; render oldest first like list
	for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
		hits[i], hits[j] = hits[j], hits[i]
	}
	return fmt.Sprintf("%d matching %q:\n%s", len(hits), query, renderEnvelopes(hits))
}

func (o *Orchestrator) compose(ctx context.Context, initiator string, cmd Command) string {
	req := core.ComposeRequest{Intent: cmd.Intent, Tone: cmd.Tone}

	candidates, err := o.contacts.Lookup(ctx, cmd.Recipient)
	if err != nil {
		o.logger.Error("Contact lookup failed", zap.String("query", cmd.Recipient), zap.Error(err))
		return unavailableText("look up " + cmd.Recipient)
	}

	switch {
	case len(candidates) == 1:
		req.Recipient = candidates[0].Address
		req.RecipientName = candidates[0].Name
	case len(candidates) > 1:
		o.disambiguator.Record(initiator, cmd.Recipient, candidates, req)
		return renderCandidates(cmd.Recipient, candidates)
	case strings.Contains(cmd.Recipient, "@"):
		req.Recipient = strings.Trim(cmd.Recipient, "<>")
	default:
		return fmt.Sprintf("I don't know anyone called %q. Try again with their email address.", cmd.Recipient)
	}

	return o.startDraft(ctx, initiator, req)
}

// handleSelection resolves an open recipient choice. handled is false when
// the choice expired in the meantime and the text should be parsed normally.
func (o *Orchestrator) handleSelection(ctx context.Context, initiator, text string) (reply string, handled bool) {
	if cmd, err := Parse(text); err == nil && cmd.Kind == KindCancel {
		o.disambiguator.Cancel(initiator)
		return "OK, I won't write that message.", true
	}

	res, err := o.disambiguator.Resolve(initiator, text)
	var invalid *core.InvalidSelectionError
	switch {
	case errors.As(err, &invalid):
		return fmt.Sprintf("That doesn't match any of the choices. Reply with a number between 1 and %d, "+
			"an email address, or part of a name, or say \"cancel\".", invalid.Max), true
	case errors.Is(err, core.ErrNotFound):
		return "", false
	case err != nil:
		return fmt.Sprintf("Could not use that choice: %v", err), true
	}

	metrics.CommandsTotal.WithLabelValues("select").Inc()
	req := res.OriginatingRequest
	req.Recipient = res.Recipient
	req.RecipientName = res.DisplayName
	return o.startDraft(ctx, initiator, req), true
}

func (o *Orchestrator) startDraft(ctx context.Context, initiator string, req core.ComposeRequest) string {
	draft, err := o.drafts.Compose(ctx, initiator, req)
	if err != nil {
		o.logger.Error("Compose failed", zap.String("initiator", initiator), zap.Error(err))
		if errors.Is(err, core.ErrCollaboratorUnavailable) {
			return unavailableText("write the draft")
		}
		return fmt.Sprintf("Could not write the draft: %v", err)
	}
	metrics.DraftsTotal.WithLabelValues("composed").Inc()
	return renderDraft(draft) + "\n\n" + draftPrompt
}

func (o *Orchestrator) revise(ctx context.Context, initiator, instructions string) string {
	draft, err := o.drafts.Revise(ctx, initiator, instructions)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "You have no draft to revise. Start one with: " + usageCompose
	case errors.Is(err, core.ErrCollaboratorUnavailable):
		o.logger.Error("Revise failed", zap.String("initiator", initiator), zap.Error(err))
		return unavailableText("revise the draft") + " Your draft is unchanged."
	case err != nil:
		return fmt.Sprintf("Could not revise the draft: %v", err)
	}
	metrics.DraftsTotal.WithLabelValues("revised").Inc()
	return renderDraft(draft) + "\n\n" + draftPrompt
}

func (o *Orchestrator) approve(initiator string) string {
	draft, err := o.drafts.Approve(initiator)
	if err != nil {
		return "You have no draft to approve."
	}
	return fmt.Sprintf("Draft to %s approved. Reply \"send\" to send it.", recipientOf(draft))
}

func (o *Orchestrator) send(ctx context.Context, initiator string) string {
	res, err := o.drafts.Send(ctx, initiator)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if last, ok := o.drafts.LastSent(initiator); ok {
			return fmt.Sprintf("Your message to %s was already sent.", recipientOf(last))
		}
		return "You have no draft to send."
	case err != nil:
		metrics.DraftsTotal.WithLabelValues("send_failed").Inc()
		return unavailableText("send the message") + " Your draft is kept; reply \"send\" to retry."
	}
	metrics.DraftsTotal.WithLabelValues("sent").Inc()
	return fmt.Sprintf("Sent to %s: %q.", recipientOf(res.Draft), res.Draft.Subject)
}

func (o *Orchestrator) cancel(initiator string) string {
	if o.drafts.Cancel(initiator) {
		metrics.DraftsTotal.WithLabelValues("cancelled").Inc()
		return "Draft discarded."
	}
	return "There is nothing to cancel."
}
