package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Reconciler moves already-filed messages so their bucket agrees with the
// current classification. Envelopes are processed one at a time, in order;
// a failing item is recorded and the batch continues.
type Reconciler struct {
	engine  *ClassificationEngine
	mailbox Mailbox
	logger  *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(engine *ClassificationEngine, mailbox Mailbox, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		engine:  engine,
		mailbox: mailbox,
		logger:  logger,
	}
}

// ReconcileBucket lists up to limit messages from bucket and reconciles them
func (r *Reconciler) ReconcileBucket(ctx context.Context, bucket string, limit int) (*ReconcileReport, error) {
	batch, err := r.mailbox.ListMessages(ctx, bucket, limit)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("listing %s", bucket), err)
	}
	return r.Reconcile(ctx, batch), nil
}

// Reconcile converges batch toward the current rule set.
// Running it twice without a rule change moves nothing the second time.
//
// A degraded result (the classifier failed and the default bucket was
// substituted) that disagrees with the message's current bucket is counted
// in Errors and the message is not moved, so Errors rises while the
// classifier is down.
func (r *Reconciler) Reconcile(ctx context.Context, batch []MessageEnvelope) *ReconcileReport {
	report := &ReconcileReport{}

	for i := range batch {
		report.Analyzed++
		if ctx.Err() != nil {
			r.fail(report, &batch[i], fmt.Sprintf("aborted: %v", ctx.Err()))
			continue
		}
		r.reconcileOne(ctx, report, &batch[i])
	}

	r.logger.Info("Reconciliation finished",
		zap.Int("analyzed", report.Analyzed),
		zap.Int("moved", report.Moved),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("errors", report.Errors))
	return report
}

func (r *Reconciler) reconcileOne(ctx context.Context, report *ReconcileReport, env *MessageEnvelope) {
	result := r.engine.Classify(ctx, env)
	current := NewBucket(env.CurrentBucket)
	target := NewBucket(result.Bucket)

	if current.Same(target) {
		report.Unchanged++
		return
	}
	if result.Degraded {
		// A fallback bucket is not a decision; leave the message where it is.
		r.fail(report, env, result.Reason)
		return
	}

	handle, err := r.mailbox.ResolveBucket(ctx, target.Label)
	if err != nil {
		reason := fmt.Sprintf("cannot resolve folder %q: %v", target.Label, err)
		if errors.Is(err, ErrNotFound) {
			reason = fmt.Sprintf("folder %q does not exist", target.Label)
		}
		r.fail(report, env, reason)
		return
	}

	if err := r.mailbox.MoveMessage(ctx, env.ID, handle, env.CurrentBucket); err != nil {
		r.fail(report, env, fmt.Sprintf("move to %q failed: %v", handle, err))
		return
	}

	report.Moved++
	report.Movements = append(report.Movements, Movement{
		Subject: env.Subject,
		From:    current.Label,
		To:      handle,
		Reason:  result.Reason,
	})
	r.logger.Debug("Message moved",
		zap.String("message_id", env.ID),
		zap.String("from", current.Label),
		zap.String("to", handle))
}

func (r *Reconciler) fail(report *ReconcileReport, env *MessageEnvelope, reason string) {
	report.Errors++
	report.Failures = append(report.Failures, Failure{Subject: env.Subject, Reason: reason})
	r.logger.Warn("Message not reconciled",
		zap.String("message_id", env.ID),
		zap.String("reason", reason))
}
