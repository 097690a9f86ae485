package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryRepo struct {
	mu      sync.Mutex
	rules   []Rule
	failErr error

	// deleteErr fails Delete alone; loadFailures fails that many Loads.
	deleteErr    error
	loadFailures int
}

func (r *memoryRepo) Save(_ context.Context, rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	kept := r.rules[:0]
	for _, rule := range r.rules {
		if !strings.EqualFold(rule.Pattern, pattern) {
			kept = append(kept, rule)
		}
	}
	r.rules = kept
	return nil
}

func (r *memoryRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.rules = nil
	return nil
}

// Load returns rules newest first so the store has to restore precedence itself.
func (r *memoryRepo) Load(_ context.Context) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	if r.loadFailures > 0 {
		r.loadFailures--
		return nil, errors.New("load interrupted")
	}
	out := append([]Rule(nil), r.rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedOrder > out[j].CreatedOrder })
	return out, nil
}

// panicClassifier fails the test if the classifier is consulted.
type panicClassifier struct {
	t *testing.T
}

func (c panicClassifier) Classify(_ context.Context, env *MessageEnvelope, _ PromptConstraints) (*ClassificationResult, error) {
	c.t.Fatalf("classifier called for %q although a rule should have matched", env.Sender)
	return nil, nil
}

type stubClassifier struct {
	mu     sync.Mutex
	calls  int
	bucket string
	err    error
	last   PromptConstraints
}

func (c *stubClassifier) Classify(_ context.Context, _ *MessageEnvelope, pc PromptConstraints) (*ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.last = pc
	if c.err != nil {
		return nil, c.err
	}
	return &ClassificationResult{Bucket: c.bucket, Confidence: 0.8, Reason: "looks like " + c.bucket}, nil
}

type fakeMailbox struct {
	mu        sync.Mutex
	folders   []string
	location  map[string]string
	envelopes []MessageEnvelope
	moveErr   map[string]error
	moves     int
	resolves  int
}

func newFakeMailbox(folders ...string) *fakeMailbox {
	return &fakeMailbox{folders: folders, location: make(map[string]string), moveErr: make(map[string]error)}
}

func (m *fakeMailbox) add(env MessageEnvelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.location[env.ID] = env.CurrentBucket
	m.envelopes = append(m.envelopes, env)
}

func (m *fakeMailbox) ResolveBucket(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves++
	for _, f := range m.folders {
		if SameBucket(f, name) {
			return f, nil
		}
	}
	return "", ErrNotFound
}

func (m *fakeMailbox) MoveMessage(_ context.Context, id, dest, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.moveErr[id]; err != nil {
		return err
	}
	m.moves++
	m.location[id] = dest
	return nil
}

// ListMessages ignores the bucket and reports every envelope at its current location.
func (m *fakeMailbox) ListMessages(_ context.Context, _ string, limit int) ([]MessageEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageEnvelope, 0, len(m.envelopes))
	for _, env := range m.envelopes {
		env.CurrentBucket = m.location[env.ID]
		out = append(out, env)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (g *scriptedGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "Subject: Hello\n\nHi there.", nil
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

type recordingMailer struct {
	mu    sync.Mutex
	sent  []OutboundMessage
	err   error
	delay time.Duration
}

func (m *recordingMailer) Send(_ context.Context, msg OutboundMessage) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("<%d@test>", len(m.sent)), nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBackendDown = errors.New("backend down")
