package imap

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Lunch\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Are you free on Friday?\r\n"

const alternativeMessage = "From: shop@example.com\r\n" +
	"Subject: Sale\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Big <b>sale</b> today</p></body></html>\r\n" +
	"--XYZ--\r\n"

func TestPreviewFromPlainText(t *testing.T) {
	assert.Equal(t, "Are you free on Friday?", previewFromRaw([]byte(plainMessage)))
}

func TestPreviewFromHTML(t *testing.T) {
	preview := previewFromRaw([]byte(alternativeMessage))
	assert.Contains(t, preview, "Big sale today")
	assert.NotContains(t, preview, "<b>")
}

func TestPreviewFromTruncatedMessage(t *testing.T) {
	cut := alternativeMessage[:strings.Index(alternativeMessage, "<html>")+20]
	assert.NotPanics(t, func() { previewFromRaw([]byte(cut)) })
	assert.Empty(t, previewFromRaw(nil))
}

func TestEnvelopeFromBuffer(t *testing.T) {
	buf := &imapclient.FetchMessageBuffer{
		UID: 42,
		Envelope: &imap.Envelope{
			Subject: "Lunch",
			From:    []imap.Address{{Name: "Alice", Mailbox: "alice", Host: "example.com"}},
		},
	}

	env := envelopeFromBuffer(buf, "INBOX")
	assert.Equal(t, "42", env.ID)
	assert.Equal(t, "alice@example.com", env.Sender)
	assert.Equal(t, "Alice", env.SenderDisplayName)
	assert.Equal(t, "INBOX", env.CurrentBucket)
}

func TestPickMailbox(t *testing.T) {
	names := []string{"INBOX", "📰 Newsletter", "Work", "Archive/Work"}

	got, ok := pickMailbox(names, "newsletter")
	require.True(t, ok)
	assert.Equal(t, "📰 Newsletter", got)

	got, ok = pickMailbox(names, "Work")
	require.True(t, ok)
	assert.Equal(t, "Work", got)

	_, ok = pickMailbox(names, "Receipts")
	assert.False(t, ok)
}

func TestParseUID(t *testing.T) {
	uid, err := parseUID("17")
	require.NoError(t, err)
	assert.Equal(t, imap.UID(17), uid)

	_, err = parseUID("abc")
	assert.Error(t, err)
	_, err = parseUID("0")
	assert.Error(t, err)
}
