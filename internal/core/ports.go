package core

import (
	"context"
)

// Classifier is the probabilistic classification backend
type Classifier interface {
	// Classify assigns an envelope to one of the constrained categories
	Classify(ctx context.Context, env *MessageEnvelope, constraints PromptConstraints) (*ClassificationResult, error)
}

// TextGenerator drafts and rewrites message bodies
type TextGenerator interface {
	// GenerateText returns the completion for a prompt
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Mailbox is the mailbox transport
type Mailbox interface {
	// ResolveBucket returns the concrete mailbox handle for a bucket name.
	// It returns ErrNotFound when no mailbox matches.
	ResolveBucket(ctx context.Context, name string) (string, error)

	// MoveMessage moves a message into the destination handle
	MoveMessage(ctx context.Context, messageID, destination, source string) error

	// ListMessages returns up to limit envelopes from a bucket, newest last
	ListMessages(ctx context.Context, bucket string, limit int) ([]MessageEnvelope, error)
}

// RuleRepository is the durable mirror of the rule store
type RuleRepository interface {
	// Save persists a rule
	Save(ctx context.Context, rule Rule) error

	// Delete removes every rule with the given pattern
	Delete(ctx context.Context, pattern string) error

	// DeleteAll removes every rule
	DeleteAll(ctx context.Context) error

	// Load returns all persisted rules in precedence order
	Load(ctx context.Context) ([]Rule, error)
}

// Mailer sends composed messages
type Mailer interface {
	// Send delivers an outbound message and returns its Message-ID
	Send(ctx context.Context, msg OutboundMessage) (string, error)
}

// Deliverer sends text back to a chat initiator
type Deliverer interface {
	Deliver(ctx context.Context, initiator, text string) error
}

// ContactDirectory resolves names to contacts
type ContactDirectory interface {
	Lookup(ctx context.Context, query string) ([]Contact, error)
}
