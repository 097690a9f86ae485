package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DegradedConfidence is reported when the classifier could not be reached
const DegradedConfidence = 0.1

// DefaultCategories is the vocabulary offered to the classifier
var DefaultCategories = []string{
	"Important",
	"Work",
	"Personal",
	"Finance",
	"Newsletter",
	"Promotions",
	"Social",
	"Notifications",
	"Spam",
}

// ClassificationEngine assigns envelopes to buckets.
//
// User rules always take precedence over the classifier: when a rule matches,
// the classifier is not consulted at all.
type ClassificationEngine struct {
	rules         *RuleStore
	classifier    Classifier
	memory        *ClassificationMemory
	logger        *zap.Logger
	categories    []string
	defaultBucket string
	now           func() time.Time

	mu           sync.RWMutex
	instructions string
}

// NewClassificationEngine creates a classification engine
func NewClassificationEngine(
	rules *RuleStore,
	classifier Classifier,
	memory *ClassificationMemory,
	logger *zap.Logger,
	categories []string,
	defaultBucket string,
	instructions string,
) *ClassificationEngine {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if defaultBucket == "" {
		defaultBucket = "INBOX"
	}
	if memory == nil {
		memory = NewClassificationMemory(DefaultMemorySize)
	}
	return &ClassificationEngine{
		rules:         rules,
		classifier:    classifier,
		memory:        memory,
		logger:        logger,
		categories:    categories,
		defaultBucket: defaultBucket,
		instructions:  instructions,
		now:           time.Now,
	}
}

// Rules returns the rule store the engine consults
func (e *ClassificationEngine) Rules() *RuleStore {
	return e.rules
}

// Memory returns the recent classification memory
func (e *ClassificationEngine) Memory() *ClassificationMemory {
	return e.memory
}

// Categories returns the classifier vocabulary
func (e *ClassificationEngine) Categories() []string {
	out := make([]string, len(e.categories))
	copy(out, e.categories)
	return out
}

// SetInstructions replaces the free-text instructions appended to the classifier prompt
func (e *ClassificationEngine) SetInstructions(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instructions = strings.TrimSpace(text)
}

// Instructions returns the current free-text instructions
func (e *ClassificationEngine) Instructions() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instructions
}

// Classify returns the destination bucket for env. It never fails: a
// classifier error yields the default bucket marked as degraded.
func (e *ClassificationEngine) Classify(ctx context.Context, env *MessageEnvelope) ClassificationResult {
	result := e.classify(ctx, env)

	if env.ID != "" {
		e.memory.Record(MemoryEntry{
			MessageID:    env.ID,
			Subject:      env.Subject,
			Sender:       env.Sender,
			Bucket:       result.Bucket,
			ClassifiedAt: e.now(),
		})
	}
	return result
}

func (e *ClassificationEngine) classify(ctx context.Context, env *MessageEnvelope) ClassificationResult {
	if rule, ok := e.rules.Match(env); ok {
		e.logger.Debug("Rule matched",
			zap.String("sender", env.Sender),
			zap.String("pattern", rule.Pattern),
			zap.String("folder", rule.Folder))
		return ClassificationResult{
			Bucket:     rule.Folder,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("matched %s rule %q", rule.MatchType, rule.Pattern),
			Source:     SourceRule,
		}
	}

	constraints := PromptConstraints{
		Categories:   e.Categories(),
		Instructions: e.Instructions(),
	}
	res, err := e.classifier.Classify(ctx, env, constraints)
	if err == nil && (res == nil || strings.TrimSpace(res.Bucket) == "") {
		err = fmt.Errorf("empty classification")
	}
	if err != nil {
		e.logger.Warn("Classifier unavailable, using default bucket",
			zap.String("sender", env.Sender),
			zap.String("default_bucket", e.defaultBucket),
			zap.Error(err))
		return ClassificationResult{
			Bucket:     e.defaultBucket,
			Confidence: DegradedConfidence,
			Reason:     fmt.Sprintf("classifier unavailable, degraded mode: %v", err),
			Source:     SourceFallback,
			Degraded:   true,
		}
	}

	return ClassificationResult{
		Bucket:     e.snapToVocabulary(res.Bucket),
		Confidence: clamp01(res.Confidence),
		Reason:     res.Reason,
		Source:     SourceClassifier,
	}
}

// snapToVocabulary returns the vocabulary spelling of a bucket the classifier
// named loosely ("newsletter", "📰 Newsletter"); unknown names pass through
func (e *ClassificationEngine) snapToVocabulary(bucket string) string {
	key := BucketKey(bucket)
	for _, c := range e.categories {
		if BucketKey(c) == key {
			return c
		}
	}
	return strings.TrimSpace(bucket)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
