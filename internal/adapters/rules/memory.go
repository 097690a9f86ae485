package rules

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
)

// MemoryRepository keeps rules for the life of the process only
type MemoryRepository struct {
	mu     sync.RWMutex
	rules  map[int64]core.Rule
	logger *zap.Logger
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository(logger *zap.Logger) *MemoryRepository {
	return &MemoryRepository{
		rules:  make(map[int64]core.Rule),
		logger: logger,
	}
}

// Save stores a rule
func (r *MemoryRepository) Save(_ context.Context, rule core.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[rule.CreatedOrder] = rule
	return nil
}

// Delete removes every rule with the given pattern
func (r *MemoryRepository) Delete(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := patternKey(pattern)
	removed := 0
	for order, rule := range r.rules {
		if patternKey(rule.Pattern) == key {
			delete(r.rules, order)
			removed++
		}
	}

	r.logger.Debug("Rules deleted", zap.String("backend", "memory"), zap.Int("count", removed))
	return nil
}

// DeleteAll removes every rule
func (r *MemoryRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = make(map[int64]core.Rule)
	return nil
}

// Load returns all rules ordered by precedence
func (r *MemoryRepository) Load(_ context.Context) ([]core.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOrder < out[j].CreatedOrder })
	return out, nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}
