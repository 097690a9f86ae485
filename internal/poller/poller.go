package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/metrics"
)

// runTimeout bounds a single reconciliation pass
const runTimeout = 5 * time.Minute

// Reconciler is the part of core.Reconciler the poller drives
type Reconciler interface {
	ReconcileBucket(ctx context.Context, bucket string, limit int) (*core.ReconcileReport, error)
}

// Poller periodically files new mail in a bucket
type Poller struct {
	reconciler Reconciler
	notifier   core.Deliverer
	logger     *zap.Logger
	cfg        config.PollerConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a poller. notifier may be nil.
func New(reconciler Reconciler, notifier core.Deliverer, cfg config.PollerConfig, logger *zap.Logger) *Poller {
	return &Poller{
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
	}
}

// Start runs a pass every interval until Stop is called
func (p *Poller) Start() {
	if !p.cfg.Enabled || p.cfg.Interval <= 0 {
		p.logger.Info("Inbox poller disabled")
		return
	}

	p.logger.Info("Inbox poller started",
		zap.String("bucket", p.cfg.Bucket),
		zap.Duration("interval", p.cfg.Interval))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.RunOnce()
			case <-p.stopCh:
				return
			}
		}
	}()
}

// RunOnce reconciles the configured bucket once
func (p *Poller) RunOnce() *core.ReconcileReport {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := p.reconciler.ReconcileBucket(ctx, p.cfg.Bucket, p.cfg.Limit)
	if err != nil {
		p.logger.Error("Inbox poll failed", zap.String("bucket", p.cfg.Bucket), zap.Error(err))
		return nil
	}
	metrics.ObserveReconcile("poller", report)

	if report.Moved > 0 || report.Errors > 0 {
		p.notify(ctx, report)
	}
	return report
}

func (p *Poller) notify(ctx context.Context, report *core.ReconcileReport) {
	if p.notifier == nil || p.cfg.NotifyInitiator == "" {
		return
	}
	if err := p.notifier.Deliver(ctx, p.cfg.NotifyInitiator, summary(p.cfg.Bucket, report)); err != nil {
		p.logger.Warn("Failed to deliver poll report",
			zap.String("initiator", p.cfg.NotifyInitiator),
			zap.Error(err))
	}
}

func summary(bucket string, report *core.ReconcileReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filed %d new message(s) from %s.", report.Moved, bucket)
	for _, m := range report.Movements {
		fmt.Fprintf(&b, "\n- %q -> %s", m.Subject, m.To)
	}
	if report.Errors > 0 {
		fmt.Fprintf(&b, "\n%d could not be filed.", report.Errors)
	}
	return b.String()
}

// Stop stops the poller and waits for a running pass to finish
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}
