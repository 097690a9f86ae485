package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mailbox := newFakeMailbox("INBOX", "📰 Newsletter", "💼 Work", "Finance")
	mailbox.add(MessageEnvelope{ID: "1", Sender: "noreply@linkedin.com", Subject: "Jobs", CurrentBucket: "INBOX"})
	mailbox.add(MessageEnvelope{ID: "2", Sender: "boss@corp.com", Subject: "Standup", CurrentBucket: "INBOX"})
	mailbox.add(MessageEnvelope{ID: "3", Sender: "news@linkedin.com", Subject: "Digest", CurrentBucket: "📰 Newsletter"})
	mailbox.add(MessageEnvelope{ID: "4", Sender: "bank@bank.com", Subject: "Statement", CurrentBucket: "💼 Work"})

	engine := newTestEngine(t, &stubClassifier{bucket: "INBOX"},
		Rule{Pattern: "linkedin", Folder: "Newsletter", MatchType: MatchSender},
		Rule{Pattern: "corp.com", Folder: "Work", MatchType: MatchSender},
		Rule{Pattern: "statement", Folder: "Finance", MatchType: MatchSubject},
	)
	reconciler := NewReconciler(engine, mailbox, zap.NewNop())

	first, err := reconciler.ReconcileBucket(ctx, "INBOX", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Analyzed)
	assert.Equal(t, 3, first.Moved)
	assert.Equal(t, 1, first.Unchanged, "glyph-decorated current folder equals the rule folder")
	assert.Equal(t, 0, first.Errors)

	wantMoves := []Movement{
		{Subject: "Jobs", From: "INBOX", To: "📰 Newsletter", Reason: `matched sender rule "linkedin"`},
		{Subject: "Standup", From: "INBOX", To: "💼 Work", Reason: `matched sender rule "corp.com"`},
		{Subject: "Statement", From: "💼 Work", To: "Finance", Reason: `matched subject rule "statement"`},
	}
	if diff := cmp.Diff(wantMoves, first.Movements); diff != "" {
		t.Errorf("movements mismatch (-want +got):\n%s", diff)
	}

	second, err := reconciler.ReconcileBucket(ctx, "INBOX", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Moved)
	assert.Equal(t, 4, second.Unchanged)
	assert.Equal(t, 3, mailbox.moves)
}

func TestReconcileUnchangedDoesNoIO(t *testing.T) {
	mailbox := newFakeMailbox("Newsletter")
	engine := newTestEngine(t, panicClassifier{t},
		Rule{Pattern: "linkedin", Folder: "Newsletter", MatchType: MatchSender})
	reconciler := NewReconciler(engine, mailbox, zap.NewNop())

	report := reconciler.Reconcile(context.Background(), []MessageEnvelope{
		{ID: "1", Sender: "a@linkedin.com", CurrentBucket: "newsletter"},
	})

	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, mailbox.resolves)
	assert.Equal(t, 0, mailbox.moves)
}

func TestReconcileToleratesPartialFailure(t *testing.T) {
	mailbox := newFakeMailbox("Newsletter", "Work")
	mailbox.moveErr["2"] = errors.New("connection reset")

	engine := newTestEngine(t, &stubClassifier{bucket: "INBOX"},
		Rule{Pattern: "linkedin", Folder: "Newsletter", MatchType: MatchSender},
		Rule{Pattern: "receipt", Folder: "Receipts", MatchType: MatchSubject},
		Rule{Pattern: "corp", Folder: "Work", MatchType: MatchSender},
	)
	reconciler := NewReconciler(engine, mailbox, zap.NewNop())

	report := reconciler.Reconcile(context.Background(), []MessageEnvelope{
		{ID: "1", Subject: "Your receipt", Sender: "shop@x.com", CurrentBucket: "INBOX"},
		{ID: "2", Subject: "Jobs", Sender: "a@linkedin.com", CurrentBucket: "INBOX"},
		{ID: "3", Subject: "Plan", Sender: "me@corp.com", CurrentBucket: "INBOX"},
	})

	assert.Equal(t, 3, report.Analyzed)
	assert.Equal(t, 1, report.Moved)
	assert.Equal(t, 2, report.Errors)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "Your receipt", report.Failures[0].Subject)
	assert.Contains(t, report.Failures[0].Reason, "does not exist")
	assert.Equal(t, "Jobs", report.Failures[1].Subject)
	assert.Contains(t, report.Failures[1].Reason, "connection reset")
	require.Len(t, report.Movements, 1)
	assert.Equal(t, "Plan", report.Movements[0].Subject)
}

func TestReconcileSkipsDegradedClassification(t *testing.T) {
	mailbox := newFakeMailbox("INBOX", "Work")
	engine := newTestEngine(t, &stubClassifier{err: errBackendDown})
	reconciler := NewReconciler(engine, mailbox, zap.NewNop())

	report := reconciler.Reconcile(context.Background(), []MessageEnvelope{
		{ID: "1", Sender: "a@b.com", CurrentBucket: "Work"},
		{ID: "2", Sender: "c@d.com", CurrentBucket: "INBOX"},
	})

	assert.Equal(t, 0, report.Moved)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, mailbox.moves)
}

func TestReconcileStopsWorkOnCancelledContext(t *testing.T) {
	mailbox := newFakeMailbox("Work")
	engine := newTestEngine(t, panicClassifier{t})
	reconciler := NewReconciler(engine, mailbox, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := reconciler.Reconcile(ctx, []MessageEnvelope{{ID: "1"}, {ID: "2"}})
	assert.Equal(t, 2, report.Analyzed)
	assert.Equal(t, 2, report.Errors)
}
