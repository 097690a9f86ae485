package access

import (
	"strings"

	"go.uber.org/zap"
)

// List decides which chat initiators may talk to the bot
type List struct {
	initiators map[string]struct{}
	domains    []string
	logger     *zap.Logger
}

// NewList creates an allow-list. Entries are initiator identifiers, or
// "@domain" to admit every address-like initiator at that domain.
// An empty list admits everyone.
func NewList(entries []string, logger *zap.Logger) *List {
	l := &List{
		initiators: make(map[string]struct{}),
		logger:     logger,
	}
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.HasPrefix(entry, "@"):
			l.domains = append(l.domains, entry[1:])
		default:
			l.initiators[entry] = struct{}{}
		}
	}

	if !l.Open() && logger != nil {
		logger.Info("Initialized initiator allow-list",
			zap.Int("initiators", len(l.initiators)),
			zap.Strings("domains", l.domains))
	}
	return l
}

// Open reports whether the list admits everyone
func (l *List) Open() bool {
	return len(l.initiators) == 0 && len(l.domains) == 0
}

// Allowed checks whether initiator may use the bot
func (l *List) Allowed(initiator string) bool {
	if l.Open() {
		return true
	}

	id := strings.ToLower(strings.TrimSpace(initiator))
	if _, ok := l.initiators[id]; ok {
		return true
	}

	if _, domain, ok := strings.Cut(id, "@"); ok {
		for _, d := range l.domains {
			if d == domain {
				return true
			}
		}
	}

	if l.logger != nil {
		l.logger.Debug("Initiator rejected", zap.String("initiator", initiator))
	}
	return false
}
