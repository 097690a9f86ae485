package ports

import (
	"context"
)

// MessageHandler turns one chat message into a reply
type MessageHandler interface {
	Handle(ctx context.Context, initiator, text string) string
}

// Channel is a chat transport the bot listens on
type Channel interface {
	// Deliver sends unsolicited text, such as a poller report, to an initiator
	Deliver(ctx context.Context, initiator, text string) error

	// Start starts accepting messages
	Start() error

	// Stop stops the channel
	Stop() error
}
