package imap

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"

	"github.com/mikey/llm-mailbot/internal/core"
)

// envelopeFromBuffer converts fetched data into a core envelope located in mailbox
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer, mailbox string) core.MessageEnvelope {
	env := core.MessageEnvelope{
		ID:            strconv.FormatUint(uint64(buf.UID), 10),
		CurrentBucket: mailbox,
	}

	if buf.Envelope != nil {
		env.Subject = buf.Envelope.Subject
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			env.Sender = from.Addr()
			env.SenderDisplayName = from.Name
		}
	}
	return env
}

// previewFromRaw extracts readable text from the first bytes of a message.
// The input is usually cut short, so parse errors end the walk instead of
// failing it.
func previewFromRaw(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer mr.Close()

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, _ := io.ReadAll(part.Body)

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			if text := strings.TrimSpace(string(body)); text != "" {
				return text
			}
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	if htmlBody != "" {
		return html2text.HTML2Text(htmlBody)
	}
	return ""
}

// pickMailbox prefers an exact name, then any mailbox with the same bucket key
func pickMailbox(names []string, want string) (string, bool) {
	for _, name := range names {
		if name == want {
			return name, true
		}
	}
	for _, name := range names {
		if core.SameBucket(name, want) {
			return name, true
		}
	}
	return "", false
}
