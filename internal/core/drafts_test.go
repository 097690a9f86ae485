package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSignature = "--\nMikey\nSent by mailbot"

type draftFixture struct {
	clock     *fakeClock
	generator *scriptedGenerator
	mailer    *recordingMailer
	manager   *DraftManager
}

func newDraftFixture(replies ...string) *draftFixture {
	f := &draftFixture{
		clock:     newFakeClock(),
		generator: &scriptedGenerator{replies: replies},
		mailer:    &recordingMailer{},
	}
	store := NewDraftStore(DefaultDraftTTL, f.clock.Now, zap.NewNop())
	f.manager = NewDraftManager(store, f.generator, f.mailer, zap.NewNop(), testSignature, DefaultSentGrace)
	return f
}

var jeanRequest = ComposeRequest{
	Recipient:     "jean@example.com",
	RecipientName: "Jean Dupont",
	Intent:        "tell Jean the meeting moves to Friday",
}

func TestComposeReviseReviseSend(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture(
		"Subject: Meeting moved\n\nHi Jean, the meeting moves to Friday.",
		"Subject: Meeting moved to Friday\n\nHi Jean, the meeting moves to Friday at 10.\n\n"+testSignature,
		"Hello Jean, quick note: the meeting moves to Friday at 10.",
	)

	draft, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)
	assert.Equal(t, DraftPendingApproval, draft.Status)
	assert.Equal(t, 0, draft.RevisionCount)
	assert.Equal(t, "Meeting moved", draft.Subject)
	assert.True(t, strings.HasSuffix(draft.Body, testSignature))

	draft, err = f.manager.Revise(ctx, "alice", "add the time: 10am")
	require.NoError(t, err)
	assert.Equal(t, 1, draft.RevisionCount)
	assert.Equal(t, "Meeting moved to Friday", draft.Subject)
	assert.Equal(t, 1, strings.Count(draft.Body, testSignature), "signature must appear exactly once")

	draft, err = f.manager.Revise(ctx, "alice", "make it friendlier")
	require.NoError(t, err)
	assert.Equal(t, 2, draft.RevisionCount)
	assert.Equal(t, "Meeting moved to Friday", draft.Subject, "subject untouched when not rewritten")
	assert.Contains(t, f.generator.prompts[2], testSignature)

	result, err := f.manager.Send(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, DraftSent, result.Draft.Status)
	assert.Equal(t, 2, result.Draft.RevisionCount)
	assert.NotEmpty(t, result.MessageID)

	require.Equal(t, 1, f.mailer.count())
	sent := f.mailer.sent[0]
	assert.Equal(t, "jean@example.com", sent.To)
	assert.Equal(t, "Jean Dupont", sent.ToName)
	assert.Equal(t, "Meeting moved to Friday", sent.Subject)
	assert.True(t, strings.HasSuffix(sent.Body, testSignature))

	last, ok := f.manager.LastSent("alice")
	require.True(t, ok)
	assert.Equal(t, DraftSent, last.Status)

	f.clock.Advance(DefaultSentGrace + time.Second)
	_, ok = f.manager.LastSent("alice")
	assert.False(t, ok, "sent draft purged after the grace window")
}

func TestReviseResetsApprovedToPending(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	_, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)
	draft, err := f.manager.Approve("alice")
	require.NoError(t, err)
	assert.Equal(t, DraftApproved, draft.Status)

	draft, err = f.manager.Revise(ctx, "alice", "shorter")
	require.NoError(t, err)
	assert.Equal(t, DraftPendingApproval, draft.Status)
	assert.Equal(t, 1, draft.RevisionCount)
}

func TestSendFromTerminalStatesIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	_, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)
	_, err = f.manager.Send(ctx, "alice")
	require.NoError(t, err)

	_, err = f.manager.Send(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound, "send from sent")
	_, err = f.manager.Revise(ctx, "alice", "x")
	assert.ErrorIs(t, err, ErrNotFound, "revise from sent")
	_, err = f.manager.Approve("alice")
	assert.ErrorIs(t, err, ErrNotFound, "approve from sent")
	assert.False(t, f.manager.Cancel("alice"), "cancel after sent reports no session")

	_, err = f.manager.Compose(ctx, "bob", jeanRequest)
	require.NoError(t, err)
	assert.True(t, f.manager.Cancel("bob"))
	_, err = f.manager.Send(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound, "send from cancelled")
	assert.False(t, f.manager.Cancel("bob"))

	assert.Equal(t, 1, f.mailer.count())
}

func TestOperationsWithoutDraft(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	_, err := f.manager.Revise(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Approve("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Send(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.manager.Cancel("nobody"))
}

func TestDraftExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	_, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)

	f.clock.Advance(29 * time.Minute)
	_, ok := f.manager.Get("alice")
	assert.True(t, ok)

	f.clock.Advance(2 * time.Minute)
	_, ok = f.manager.Get("alice")
	assert.False(t, ok, "draft queried at T+31min is absent")

	_, err = f.manager.Send(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.mailer.count())
}

func TestSendFailureKeepsDraftForRetry(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	_, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)
	_, err = f.manager.Approve("alice")
	require.NoError(t, err)

	f.mailer.err = errors.New("smtp 451")
	_, err = f.manager.Send(ctx, "alice")
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)

	draft, ok := f.manager.Get("alice")
	require.True(t, ok)
	assert.Equal(t, DraftPendingApproval, draft.Status)

	f.mailer.err = nil
	result, err := f.manager.Send(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, DraftSent, result.Draft.Status)
	assert.Equal(t, 1, f.mailer.count())
}

func TestComposeGeneratorFailureCreatesNoSession(t *testing.T) {
	f := newDraftFixture()
	f.generator.err = errBackendDown

	_, err := f.manager.Compose(context.Background(), "alice", jeanRequest)
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	_, ok := f.manager.Get("alice")
	assert.False(t, ok)
}

func TestReviseGeneratorFailureLeavesDraftUntouched(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()

	original, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)

	f.generator.err = errBackendDown
	_, err = f.manager.Revise(ctx, "alice", "shorter")
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)

	draft, ok := f.manager.Get("alice")
	require.True(t, ok)
	assert.Equal(t, original, draft)
}

func TestComposeReplacesExistingDraft(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture("Subject: First\n\none", "Subject: Second\n\ntwo")

	first, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)
	second, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	current, ok := f.manager.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "Second", current.Subject)
}

func TestComposeWithoutSubjectLineUsesIntent(t *testing.T) {
	f := newDraftFixture("Hi Jean,\n\nFriday works.")

	draft, err := f.manager.Compose(context.Background(), "alice", jeanRequest)
	require.NoError(t, err)
	assert.Equal(t, jeanRequest.Intent, draft.Subject)
	assert.True(t, strings.HasPrefix(draft.Body, "Hi Jean,"))
}

func TestConcurrentSendDeliversOnce(t *testing.T) {
	ctx := context.Background()
	f := newDraftFixture()
	f.mailer.delay = 20 * time.Millisecond

	_, err := f.manager.Compose(ctx, "alice", jeanRequest)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		notFound int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Send(ctx, "alice")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 4, notFound)
	assert.Equal(t, 1, f.mailer.count())
}

func TestWithSignature(t *testing.T) {
	assert.Equal(t, "body\n\n"+testSignature, withSignature("body", testSignature))
	assert.Equal(t, "body\n\n"+testSignature, withSignature("body\n\n"+testSignature+"\n", testSignature))
	assert.Equal(t, testSignature, withSignature("", testSignature))
	assert.Equal(t, "body", withSignature(" body ", ""))
}

func TestParseDraft(t *testing.T) {
	subject, body := parseDraft("SUBJECT: Hi\n\nBody text")
	assert.Equal(t, "Hi", subject)
	assert.Equal(t, "Body text", body)

	subject, body = parseDraft("Just a body")
	assert.Empty(t, subject)
	assert.Equal(t, "Just a body", body)
}
