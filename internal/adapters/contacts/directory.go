package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
)

// Directory resolves names against a configured address book and,
// when a mailbox is given, the senders of recent messages
type Directory struct {
	book         []core.Contact
	mailbox      core.Mailbox
	recentBucket string
	recentLimit  int
	logger       *zap.Logger
}

// NewDirectory parses the "Name <address>" entries of the address book.
// mailbox may be nil.
func NewDirectory(cfg config.ContactsConfig, mailbox core.Mailbox, logger *zap.Logger) (*Directory, error) {
	book := make([]core.Contact, 0, len(cfg.Entries))
	for _, entry := range cfg.Entries {
		addr, err := mail.ParseAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid contact entry %q: %w", entry, err)
		}
		book = append(book, core.Contact{Name: addr.Name, Address: addr.Address})
	}

	return &Directory{
		book:         book,
		mailbox:      mailbox,
		recentBucket: cfg.RecentBucket,
		recentLimit:  cfg.RecentLimit,
		logger:       logger,
	}, nil
}

// Lookup returns every known contact whose name or address contains query,
// case-insensitively. An address query only matches that exact address.
func (d *Directory) Lookup(ctx context.Context, query string) ([]core.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var (
		out  []core.Contact
		seen = make(map[string]int)
	)
	for _, c := range d.known(ctx) {
		if !matches(c, query) {
			continue
		}
		key := strings.ToLower(c.Address)
		if i, ok := seen[key]; ok {
			if out[i].Name == "" {
				out[i].Name = c.Name
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out, nil
}

// known lists the address book first, then recent senders
func (d *Directory) known(ctx context.Context) []core.Contact {
	all := append([]core.Contact(nil), d.book...)
	if d.mailbox == nil || d.recentBucket == "" || d.recentLimit <= 0 {
		return all
	}

	envs, err := d.mailbox.ListMessages(ctx, d.recentBucket, d.recentLimit)
	if err != nil {
		d.logger.Warn("Recent senders unavailable, using address book only",
			zap.String("bucket", d.recentBucket),
			zap.Error(err))
		return all
	}
	// newest first
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Sender == "" {
			continue
		}
		all = append(all, core.Contact{Name: envs[i].SenderDisplayName, Address: envs[i].Sender})
	}
	return all
}

func matches(c core.Contact, query string) bool {
	if strings.Contains(query, "@") {
		return strings.EqualFold(c.Address, strings.Trim(query, "<>"))
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Address), q)
}
