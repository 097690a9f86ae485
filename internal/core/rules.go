package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// RuleStore holds the ordered rule set in memory and mirrors it to a RuleRepository.
//
// Precedence invariant: rules are kept sorted by CreatedOrder and the first
// matching rule wins. Reload re-establishes the order, so a repository that
// returns rows in arbitrary order cannot change which rule prevails.
type RuleStore struct {
	repo   RuleRepository
	logger *zap.Logger

	mu        sync.RWMutex
	rules     []Rule
	nextOrder int64

	// Changes the repository rejected stay in effect until restart.
	// A tombstone maps a lower-cased pattern to the highest CreatedOrder
	// its failed removal covered; later rules with that pattern stay visible.
	unsaved    []Rule
	tombstones map[string]int64
}

// NewRuleStore creates a rule store backed by repo. Call Reload to populate it.
func NewRuleStore(repo RuleRepository, logger *zap.Logger) *RuleStore {
	return &RuleStore{
		repo:       repo,
		logger:     logger,
		nextOrder:  1,
		tombstones: make(map[string]int64),
	}
}

// Reload replaces the cache with the repository contents
func (s *RuleStore) Reload(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	s.mu.Lock()
	next := nextOrderAfter(loaded)
	rules := s.overlay(loaded)
	sortByPrecedence(rules)
	s.rules = rules
	if n := nextOrderAfter(rules); n > next {
		next = n
	}
	for _, cutoff := range s.tombstones {
		if cutoff >= next {
			next = cutoff + 1
		}
	}
	s.nextOrder = next
	s.mu.Unlock()

	s.logger.Debug("Rules loaded", zap.Int("count", len(rules)))
	return nil
}

// Add appends a rule at the lowest precedence.
// A *DurabilityWarning means the rule is active but either was not persisted
// or the cache could not be refreshed after persisting it.
func (s *RuleStore) Add(ctx context.Context, rule Rule) (Rule, error) {
	rule.Pattern = strings.TrimSpace(rule.Pattern)
	rule.Folder = strings.TrimSpace(rule.Folder)
	if rule.Pattern == "" || rule.Folder == "" {
		return Rule{}, fmt.Errorf("rule needs a pattern and a folder")
	}
	if _, err := ParseMatchType(string(rule.MatchType)); err != nil {
		return Rule{}, err
	}

	s.mu.Lock()
	rule.CreatedOrder = s.nextOrder
	s.nextOrder++
	s.mu.Unlock()

	s.retryRemoval(ctx, rule.Pattern)

	if err := s.repo.Save(ctx, rule); err != nil {
		warning := s.warn("add", err)
		s.mu.Lock()
		s.unsaved = append(s.unsaved, rule)
		s.insert(rule)
		s.mu.Unlock()
		return rule, warning
	}

	if err := s.Reload(ctx); err != nil {
		warning := s.warn("add", err)
		s.mu.Lock()
		s.insert(rule)
		s.mu.Unlock()
		return rule, warning
	}
	return rule, nil
}

// retryRemoval re-attempts a removal of pattern the repository rejected
// earlier. Delete is keyed by pattern, so rules of that pattern saved since
// the failed removal are written back afterwards.
func (s *RuleStore) retryRemoval(ctx context.Context, pattern string) {
	key := strings.ToLower(pattern)

	s.mu.RLock()
	_, pending := s.tombstones[key]
	var survivors []Rule
	if pending {
		for _, r := range s.rules {
			if strings.EqualFold(r.Pattern, pattern) && !s.isUnsaved(r) {
				survivors = append(survivors, r)
			}
		}
	}
	s.mu.RUnlock()

	if !pending {
		return
	}
	if err := s.repo.Delete(ctx, pattern); err != nil {
		s.logger.Debug("Pending rule removal still rejected",
			zap.String("pattern", pattern),
			zap.Error(err))
		return
	}

	var lost []Rule
	for _, r := range survivors {
		if err := s.repo.Save(ctx, r); err != nil {
			s.logger.Warn("Rule not restored after pending removal",
				zap.String("pattern", r.Pattern),
				zap.Int64("order", r.CreatedOrder),
				zap.Error(err))
			lost = append(lost, r)
		}
	}

	s.mu.Lock()
	delete(s.tombstones, key)
	s.unsaved = append(s.unsaved, lost...)
	s.mu.Unlock()
}

// Remove deletes every rule with the given pattern (case-insensitive) and
// reports whether anything was removed
func (s *RuleStore) Remove(ctx context.Context, pattern string) (bool, error) {
	pattern = strings.TrimSpace(pattern)

	s.mu.RLock()
	var stored string
	for _, r := range s.rules {
		if strings.EqualFold(r.Pattern, pattern) {
			stored = r.Pattern
			break
		}
	}
	s.mu.RUnlock()

	if stored == "" {
		return false, nil
	}
	return true, s.removePattern(ctx, stored)
}

// RemoveAt deletes the rule at a 1-based position in precedence order.
// The repository is keyed by pattern, so duplicates of that pattern go with it.
func (s *RuleStore) RemoveAt(ctx context.Context, position int) (Rule, error) {
	s.mu.RLock()
	if position < 1 || position > len(s.rules) {
		n := len(s.rules)
		s.mu.RUnlock()
		return Rule{}, fmt.Errorf("rule #%d (have %d): %w", position, n, ErrNotFound)
	}
	rule := s.rules[position-1]
	s.mu.RUnlock()

	return rule, s.removePattern(ctx, rule.Pattern)
}

func (s *RuleStore) removePattern(ctx context.Context, pattern string) error {
	key := strings.ToLower(pattern)

	s.mu.RLock()
	cutoff := s.nextOrder - 1
	s.mu.RUnlock()

	if err := s.repo.Delete(ctx, pattern); err != nil {
		warning := s.warn("remove", err)
		s.mu.Lock()
		if cutoff > s.tombstones[key] {
			s.tombstones[key] = cutoff
		}
		s.dropPattern(pattern)
		s.mu.Unlock()
		return warning
	}

	s.mu.Lock()
	delete(s.tombstones, key)
	kept := s.unsaved[:0:0]
	for _, r := range s.unsaved {
		if !strings.EqualFold(r.Pattern, pattern) {
			kept = append(kept, r)
		}
	}
	s.unsaved = kept
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		warning := s.warn("remove", err)
		s.mu.Lock()
		s.dropPattern(pattern)
		s.mu.Unlock()
		return warning
	}
	return nil
}

// overlay applies rejected changes on top of freshly loaded rules. Caller holds mu.
func (s *RuleStore) overlay(loaded []Rule) []Rule {
	out := make([]Rule, 0, len(loaded)+len(s.unsaved))
	for _, r := range loaded {
		if !s.removed(r) {
			out = append(out, r)
		}
	}

	var keep []Rule
	for _, r := range s.unsaved {
		if s.removed(r) {
			continue
		}
		keep = append(keep, r)
		out = append(out, r)
	}
	s.unsaved = keep
	return out
}

// removed reports whether a failed removal covers r. Caller holds mu.
func (s *RuleStore) removed(r Rule) bool {
	cutoff, ok := s.tombstones[strings.ToLower(r.Pattern)]
	return ok && r.CreatedOrder <= cutoff
}

// isUnsaved reports whether r only lives in memory. Caller holds mu.
func (s *RuleStore) isUnsaved(r Rule) bool {
	for _, u := range s.unsaved {
		if u.CreatedOrder == r.CreatedOrder {
			return true
		}
	}
	return false
}

// insert adds r to the cache unless a reload already brought it in. Caller holds mu.
func (s *RuleStore) insert(r Rule) {
	for _, existing := range s.rules {
		if existing.CreatedOrder == r.CreatedOrder {
			return
		}
	}
	s.rules = append(s.rules, r)
	sortByPrecedence(s.rules)
}

// dropPattern removes every cached rule with pattern. Caller holds mu.
func (s *RuleStore) dropPattern(pattern string) {
	kept := s.rules[:0:0]
	for _, r := range s.rules {
		if !strings.EqualFold(r.Pattern, pattern) {
			kept = append(kept, r)
		}
	}
	s.rules = kept
}

// Clear removes every rule
func (s *RuleStore) Clear(ctx context.Context) error {
	var warning error
	if err := s.repo.DeleteAll(ctx); err != nil {
		warning = s.warn("clear", err)
	}

	s.mu.Lock()
	if warning != nil {
		cutoff := s.nextOrder - 1
		for _, r := range s.rules {
			s.tombstones[strings.ToLower(r.Pattern)] = cutoff
		}
	} else {
		s.tombstones = make(map[string]int64)
	}
	s.rules = nil
	s.unsaved = nil
	s.mu.Unlock()
	return warning
}

// List returns a copy of the rules in precedence order
func (s *RuleStore) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Match returns the first rule matching env
func (s *RuleStore) Match(env *MessageEnvelope) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.Matches(env) {
			return r, true
		}
	}
	return Rule{}, false
}

func (s *RuleStore) warn(op string, err error) error {
	s.logger.Warn("Rule change not persisted",
		zap.String("op", op),
		zap.Error(err))
	return &DurabilityWarning{Op: op, Err: err}
}

func sortByPrecedence(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].CreatedOrder < rules[j].CreatedOrder
	})
}

func nextOrderAfter(rules []Rule) int64 {
	var next int64 = 1
	for _, r := range rules {
		if r.CreatedOrder >= next {
			next = r.CreatedOrder + 1
		}
	}
	return next
}
