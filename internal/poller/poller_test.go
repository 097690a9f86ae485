package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
)

type countingReconciler struct {
	mu     sync.Mutex
	calls  int
	report *core.ReconcileReport
	err    error
}

func (r *countingReconciler) ReconcileBucket(_ context.Context, _ string, _ int) (*core.ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.report, r.err
}

func (r *countingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingDeliverer struct {
	mu    sync.Mutex
	texts []string
}

func (d *recordingDeliverer) Deliver(_ context.Context, initiator, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, initiator+": "+text)
	return nil
}

func TestRunOnceNotifiesOnMoves(t *testing.T) {
	rec := &countingReconciler{report: &core.ReconcileReport{
		Analyzed:  2,
		Moved:     1,
		Unchanged: 1,
		Movements: []core.Movement{{Subject: "New jobs", From: "INBOX", To: "Social"}},
	}}
	d := &recordingDeliverer{}
	p := New(rec, d, config.PollerConfig{Bucket: "INBOX", Limit: 10, NotifyInitiator: "alice"}, zap.NewNop())

	report := p.RunOnce()
	require.NotNil(t, report)
	assert.Equal(t, []string{"alice: Filed 1 new message(s) from INBOX.\n- \"New jobs\" -> Social"}, d.texts)
}

func TestRunOnceQuietWhenNothingMoved(t *testing.T) {
	rec := &countingReconciler{report: &core.ReconcileReport{Analyzed: 3, Unchanged: 3}}
	d := &recordingDeliverer{}
	p := New(rec, d, config.PollerConfig{Bucket: "INBOX", NotifyInitiator: "alice"}, zap.NewNop())

	p.RunOnce()
	assert.Empty(t, d.texts)
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	rec := &countingReconciler{err: errors.New("imap down")}
	p := New(rec, nil, config.PollerConfig{Bucket: "INBOX"}, zap.NewNop())
	assert.Nil(t, p.RunOnce())
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &countingReconciler{report: &core.ReconcileReport{}}
	p := New(rec, nil, config.PollerConfig{Enabled: true, Interval: 10 * time.Millisecond, Bucket: "INBOX"}, zap.NewNop())
	p.Start()

	assert.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()
}

func TestDisabledPollerDoesNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &countingReconciler{}
	p := New(rec, nil, config.PollerConfig{Enabled: false, Interval: time.Millisecond}, zap.NewNop())
	p.Start()
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	assert.Zero(t, rec.count())
}
