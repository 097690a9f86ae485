package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/session"
)

const (
	// DefaultDraftTTL is how long a draft lives after compose
	DefaultDraftTTL = 30 * time.Minute
	// DefaultSentGrace is how long a sent draft stays readable before purge
	DefaultSentGrace = 2 * time.Minute
)

// DraftStore holds at most one draft per initiator
type DraftStore = session.Store[DraftSession]

// NewDraftStore creates the per-initiator draft store
func NewDraftStore(ttl time.Duration, now session.Clock, logger *zap.Logger) *DraftStore {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return session.NewStore[DraftSession]("drafts", ttl, now, logger)
}

// DraftManager runs the compose → revise → approve → send state machine.
//
//	∅ → pending_approval
//	pending_approval → pending_approval (revise) | approved | sent | cancelled
//	approved → sent | cancelled
//
// sent and cancelled are terminal and behave as ∅ for every operation.
// All operations for one initiator are serialized, including the transport
// send, so a repeated "send" observes the first one's outcome.
type DraftManager struct {
	sessions  *DraftStore
	generator TextGenerator
	mailer    Mailer
	logger    *zap.Logger
	signature string
	sentGrace time.Duration
}

// NewDraftManager creates a draft manager
func NewDraftManager(
	sessions *DraftStore,
	generator TextGenerator,
	mailer Mailer,
	logger *zap.Logger,
	signature string,
	sentGrace time.Duration,
) *DraftManager {
	if sentGrace < 0 {
		sentGrace = 0
	}
	return &DraftManager{
		sessions:  sessions,
		generator: generator,
		mailer:    mailer,
		logger:    logger,
		signature: strings.TrimSpace(signature),
		sentGrace: sentGrace,
	}
}

// Compose drafts a new message and replaces any draft the initiator had
func (m *DraftManager) Compose(ctx context.Context, initiator string, req ComposeRequest) (DraftSession, error) {
	if strings.TrimSpace(req.Recipient) == "" {
		return DraftSession{}, fmt.Errorf("compose needs a recipient")
	}

	unlock := m.sessions.Lock(initiator)
	defer unlock()

	text, err := m.generator.GenerateText(ctx, m.composePrompt(req))
	if err != nil {
		return DraftSession{}, unavailable("drafting message", err)
	}
	subject, body := parseDraft(text)
	if subject == "" {
		subject = fallbackSubject(req.Intent)
	}

	draft := DraftSession{
		ID:                 uuid.NewString(),
		Recipient:          strings.TrimSpace(req.Recipient),
		RecipientName:      strings.TrimSpace(req.RecipientName),
		Subject:            subject,
		Body:               withSignature(body, m.signature),
		OriginatingContext: req.Context,
		Tone:               req.Tone,
		Status:             DraftPendingApproval,
		CreatedAt:          m.sessions.Now(),
	}

	if prev, ok := m.active(initiator); ok {
		m.logger.Info("Replacing existing draft",
			zap.String("initiator", initiator),
			zap.String("draft_id", prev.ID))
	}
	m.sessions.Put(initiator, draft)

	m.logger.Info("Draft composed",
		zap.String("initiator", initiator),
		zap.String("draft_id", draft.ID),
		zap.String("recipient", draft.Recipient))
	return draft, nil
}

// Revise rewrites the active draft according to instructions
func (m *DraftManager) Revise(ctx context.Context, initiator, instructions string) (DraftSession, error) {
	unlock := m.sessions.Lock(initiator)
	defer unlock()

	draft, ok := m.active(initiator)
	if !ok {
		return DraftSession{}, fmt.Errorf("no draft to revise: %w", ErrNotFound)
	}

	text, err := m.generator.GenerateText(ctx, m.revisePrompt(draft, instructions))
	if err != nil {
		return DraftSession{}, unavailable("revising draft", err)
	}
	subject, body := parseDraft(text)
	if subject != "" {
		draft.Subject = subject
	}
	if strings.TrimSpace(body) != "" {
		draft.Body = withSignature(body, m.signature)
	}
	draft.RevisionCount++
	draft.Status = DraftPendingApproval

	if !m.sessions.Update(initiator, draft) {
		return DraftSession{}, fmt.Errorf("draft expired while revising: %w", ErrNotFound)
	}

	m.logger.Info("Draft revised",
		zap.String("initiator", initiator),
		zap.String("draft_id", draft.ID),
		zap.Int("revision", draft.RevisionCount))
	return draft, nil
}

// Approve marks the active draft ready to send
func (m *DraftManager) Approve(initiator string) (DraftSession, error) {
	unlock := m.sessions.Lock(initiator)
	defer unlock()

	draft, ok := m.active(initiator)
	if !ok {
		return DraftSession{}, fmt.Errorf("no draft to approve: %w", ErrNotFound)
	}
	if draft.Status == DraftApproved {
		return draft, nil
	}

	draft.Status = DraftApproved
	if !m.sessions.Update(initiator, draft) {
		return DraftSession{}, fmt.Errorf("no draft to approve: %w", ErrNotFound)
	}
	return draft, nil
}

// Send delivers the active draft. It is accepted from pending_approval as well
// as approved: an explicit confirmation counts as approval. On transport
// failure the draft returns to pending_approval so the user can retry.
func (m *DraftManager) Send(ctx context.Context, initiator string) (SendResult, error) {
	unlock := m.sessions.Lock(initiator)
	defer unlock()

	draft, ok := m.active(initiator)
	if !ok {
		return SendResult{}, fmt.Errorf("no draft to send: %w", ErrNotFound)
	}
	draft.Status = DraftApproved

	messageID, err := m.mailer.Send(ctx, OutboundMessage{
		To:      draft.Recipient,
		ToName:  draft.RecipientName,
		Subject: draft.Subject,
		Body:    draft.Body,
	})
	if err != nil {
		draft.Status = DraftPendingApproval
		m.sessions.Update(initiator, draft)
		m.logger.Error("Failed to send draft",
			zap.String("initiator", initiator),
			zap.String("draft_id", draft.ID),
			zap.Error(err))
		return SendResult{}, unavailable("sending message", err)
	}

	now := m.sessions.Now()
	draft.Status = DraftSent
	draft.SentAt = now
	m.sessions.PutUntil(initiator, draft, now.Add(m.sentGrace))

	m.logger.Info("Draft sent",
		zap.String("initiator", initiator),
		zap.String("draft_id", draft.ID),
		zap.String("message_id", messageID))
	return SendResult{Draft: draft, MessageID: messageID}, nil
}

// Cancel discards the initiator's draft and reports whether one was active
func (m *DraftManager) Cancel(initiator string) bool {
	unlock := m.sessions.Lock(initiator)
	defer unlock()

	_, ok := m.active(initiator)
	m.sessions.Delete(initiator)
	if ok {
		m.logger.Info("Draft cancelled", zap.String("initiator", initiator))
	}
	return ok
}

// Get returns the initiator's active draft
func (m *DraftManager) Get(initiator string) (DraftSession, bool) {
	return m.active(initiator)
}

// LastSent returns a draft sent within the grace window
func (m *DraftManager) LastSent(initiator string) (DraftSession, bool) {
	draft, ok := m.sessions.Get(initiator)
	if !ok || draft.Status != DraftSent {
		return DraftSession{}, false
	}
	return draft, true
}

func (m *DraftManager) active(initiator string) (DraftSession, bool) {
	draft, ok := m.sessions.Get(initiator)
	if !ok || draft.Status.Terminal() {
		return DraftSession{}, false
	}
	return draft, true
}

func (m *DraftManager) composePrompt(req ComposeRequest) string {
	var b strings.Builder
	b.WriteString("You write short, clear emails on behalf of the user.\n")
	b.WriteString("Reply with the first line \"Subject: <subject>\", a blank line, then the body.\n")
	b.WriteString("Do not write a signature; one is added automatically.\n\n")
	fmt.Fprintf(&b, "Recipient: %s\n", recipientLabel(req.RecipientName, req.Recipient))
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n", req.Context)
	}
	fmt.Fprintf(&b, "What the user wants to say:\n%s\n", req.Intent)
	return b.String()
}

func (m *DraftManager) revisePrompt(draft DraftSession, instructions string) string {
	var b strings.Builder
	b.WriteString("Revise the email below following the instructions.\n")
	b.WriteString("Change only what the instructions ask for; keep everything else as it is.\n")
	b.WriteString("Reply with the first line \"Subject: <subject>\", a blank line, then the body.\n")
	if m.signature != "" {
		fmt.Fprintf(&b, "Keep this signature block exactly as written at the end:\n%s\n", m.signature)
	}
	fmt.Fprintf(&b, "\nInstructions:\n%s\n\n", instructions)
	fmt.Fprintf(&b, "Recipient: %s\n", recipientLabel(draft.RecipientName, draft.Recipient))
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n", draft.Subject, draft.Body)
	return b.String()
}

func recipientLabel(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// parseDraft splits a "Subject: ..." first line from the body
func parseDraft(text string) (subject, body string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	if len(first) >= 8 && strings.EqualFold(first[:8], "subject:") {
		return strings.TrimSpace(first[8:]), strings.TrimSpace(rest)
	}
	return "", text
}

// withSignature makes the signature block appear exactly once, at the end
func withSignature(body, signature string) string {
	body = strings.TrimSpace(body)
	if signature == "" {
		return body
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, signature, ""))
	if body == "" {
		return signature
	}
	return body + "\n\n" + signature
}

func fallbackSubject(intent string) string {
	intent = strings.Join(strings.Fields(intent), " ")
	const max = 60
	if len([]rune(intent)) <= max {
		return intent
	}
	return string([]rune(intent)[:max]) + "…"
}
