package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/session"
)

// DefaultDisambiguationTTL is how long a recipient choice stays open
const DefaultDisambiguationTTL = 5 * time.Minute

// DisambiguationStore holds at most one outstanding recipient choice per initiator
type DisambiguationStore = session.Store[Disambiguation]

// NewDisambiguationStore creates the per-initiator disambiguation store
func NewDisambiguationStore(ttl time.Duration, now session.Clock, logger *zap.Logger) *DisambiguationStore {
	if ttl <= 0 {
		ttl = DefaultDisambiguationTTL
	}
	return session.NewStore[Disambiguation]("disambiguation", ttl, now, logger)
}

// Disambiguator narrows an ambiguous recipient to one contact
type Disambiguator struct {
	pending *DisambiguationStore
	logger  *zap.Logger
}

// NewDisambiguator creates a disambiguator
func NewDisambiguator(pending *DisambiguationStore, logger *zap.Logger) *Disambiguator {
	return &Disambiguator{pending: pending, logger: logger}
}

// Record opens a choice between candidates, replacing any open one
func (d *Disambiguator) Record(initiator, queriedName string, candidates []Contact, originating ComposeRequest) {
	entry := Disambiguation{
		QueriedName:        queriedName,
		Candidates:         append([]Contact(nil), candidates...),
		OriginatingRequest: originating,
		Timestamp:          d.pending.Now(),
	}
	d.pending.Put(initiator, entry)

	d.logger.Debug("Recipient disambiguation recorded",
		zap.String("initiator", initiator),
		zap.String("query", queriedName),
		zap.Int("candidates", len(candidates)))
}

// Pending returns the open choice for initiator
func (d *Disambiguator) Pending(initiator string) (Disambiguation, bool) {
	return d.pending.Get(initiator)
}

// Cancel drops the open choice and reports whether one existed
func (d *Disambiguator) Cancel(initiator string) bool {
	return d.pending.Delete(initiator)
}

// Resolve interprets a selection reply. Accepted forms, in order:
// a 1-based index, an address (anything containing "@"), or a
// case-insensitive fragment of exactly one candidate's name or address.
//
// Success purges the entry. An invalid reply keeps it open and returns an
// *InvalidSelectionError. A missing or expired entry returns ErrNotFound.
func (d *Disambiguator) Resolve(initiator, selection string) (Resolution, error) {
	unlock := d.pending.Lock(initiator)
	defer unlock()

	entry, ok := d.pending.Get(initiator)
	if !ok {
		return Resolution{}, fmt.Errorf("no recipient choice pending: %w", ErrNotFound)
	}

	contact, ok := pickCandidate(entry.Candidates, selection)
	if !ok {
		return Resolution{}, &InvalidSelectionError{Selection: selection, Max: len(entry.Candidates)}
	}

	d.pending.Delete(initiator)
	d.logger.Debug("Recipient disambiguated",
		zap.String("initiator", initiator),
		zap.String("recipient", contact.Address))

	return Resolution{
		Recipient:          contact.Address,
		DisplayName:        contact.Name,
		OriginatingRequest: entry.OriginatingRequest,
	}, nil
}

func pickCandidate(candidates []Contact, selection string) (Contact, bool) {
	sel := strings.TrimSpace(selection)
	sel = strings.TrimPrefix(sel, "#")
	if sel == "" {
		return Contact{}, false
	}

	if n, err := strconv.Atoi(sel); err == nil {
		if n < 1 || n > len(candidates) {
			return Contact{}, false
		}
		return candidates[n-1], true
	}

	if strings.Contains(sel, "@") {
		addr, ok := parseAddress(sel)
		if !ok {
			return Contact{}, false
		}
		for _, c := range candidates {
			if strings.EqualFold(c.Address, addr) {
				return c, true
			}
		}
		return Contact{Address: addr}, true
	}

	lower := strings.ToLower(sel)
	var found []Contact
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), lower) ||
			strings.Contains(strings.ToLower(c.Address), lower) {
			found = append(found, c)
		}
	}
	if len(found) != 1 {
		return Contact{}, false
	}
	return found[0], true
}

// parseAddress reads a bare, bracketed or named address the way the contact
// directory does and requires a dotted domain
func parseAddress(s string) (string, bool) {
	parsed, err := mail.ParseAddress(s)
	if err != nil {
		return "", false
	}
	at := strings.LastIndex(parsed.Address, "@")
	if at < 1 {
		return "", false
	}
	domain := parsed.Address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return parsed.Address, true
}
