package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// Mailbox implements core.Mailbox over one persistent IMAP connection.
// Commands are serialized; a failed command drops the connection and the
// next call dials again.
type Mailbox struct {
	cfg           config.IMAPConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor

	mu     sync.Mutex
	client *imapclient.Client
}

// NewMailbox creates a mailbox adapter. The connection is opened on first use.
func NewMailbox(cfg config.IMAPConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *Mailbox {
	return &Mailbox{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ResolveBucket finds the mailbox whose name matches the bucket, ignoring
// case and decorative glyphs
func (m *Mailbox) ResolveBucket(ctx context.Context, name string) (string, error) {
	var names []string
	err := m.withClient(ctx, func(c *imapclient.Client) error {
		list, err := c.List("", "*", nil).Collect()
		if err != nil {
			return fmt.Errorf("listing mailboxes: %w", err)
		}
		for _, data := range list {
			names = append(names, data.Mailbox)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	handle, ok := pickMailbox(names, name)
	if !ok {
		return "", fmt.Errorf("mailbox %q: %w", name, core.ErrNotFound)
	}
	return handle, nil
}

// MoveMessage moves the message with UID messageID from source to destination
func (m *Mailbox) MoveMessage(ctx context.Context, messageID, destination, source string) error {
	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	return m.withClient(ctx, func(c *imapclient.Client) error {
		if _, err := c.Select(source, nil).Wait(); err != nil {
			return fmt.Errorf("selecting %s: %w", source, err)
		}
		if _, err := c.Move(imap.UIDSetNum(uid), destination).Wait(); err != nil {
			return fmt.Errorf("moving UID %d to %s: %w", uid, destination, err)
		}

		m.logger.Debug("Message moved",
			zap.Uint32("uid", uint32(uid)),
			zap.String("from", source),
			zap.String("to", destination))
		return nil
	})
}

// ListMessages returns up to limit of the newest envelopes in bucket,
// oldest first, with a short text preview
func (m *Mailbox) ListMessages(ctx context.Context, bucket string, limit int) ([]core.MessageEnvelope, error) {
	handle, err := m.ResolveBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}

	var envelopes []core.MessageEnvelope
	err = m.withClient(ctx, func(c *imapclient.Client) error {
		if _, err := c.Select(handle, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
			return fmt.Errorf("selecting %s: %w", handle, err)
		}

		searchData, err := c.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
		if err != nil {
			return fmt.Errorf("searching %s: %w", handle, err)
		}
		uids := searchData.AllUIDs()
		if len(uids) == 0 {
			return nil
		}
		if limit > 0 && len(uids) > limit {
			uids = uids[len(uids)-limit:]
		}

		bodySection := &imap.FetchItemBodySection{
			Peek:    true,
			Partial: &imap.SectionPartial{Offset: 0, Size: int64(m.previewBytes())},
		}
		fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
			Envelope:    true,
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{bodySection},
		})
		defer fetchCmd.Close()

		for {
			msg := fetchCmd.Next()
			if msg == nil {
				break
			}
			buf, err := msg.Collect()
			if err != nil {
				m.logger.Warn("Skipping unreadable message", zap.Error(err))
				continue
			}

			env := envelopeFromBuffer(buf, handle)
			raw := buf.FindBodySection(bodySection)
			env.PreviewText = m.textProcessor.Preview(previewFromRaw(raw), m.cfg.PreviewChars)
			envelopes = append(envelopes, env)
		}

		if err := fetchCmd.Close(); err != nil {
			return fmt.Errorf("fetching envelopes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envelopes, nil
}

// Close logs out and closes the connection
func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	_ = m.client.Logout().Wait()
	err := m.client.Close()
	m.client = nil
	return err
}

func (m *Mailbox) withClient(ctx context.Context, fn func(c *imapclient.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		c, err := m.dial(ctx)
		if err != nil {
			return err
		}
		m.client = c
	}

	if err := fn(m.client); err != nil {
		if _, isIMAP := err.(*imap.Error); !isIMAP {
			m.logger.Warn("Dropping IMAP connection", zap.Error(err))
			_ = m.client.Close()
			m.client = nil
		}
		return err
	}
	return nil
}

func (m *Mailbox) dial(ctx context.Context) (*imapclient.Client, error) {
	host, _, err := net.SplitHostPort(m.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP address %q: %w", m.cfg.Address, err)
	}

	dialer := &net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", m.cfg.Address, err)
	}

	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	var client *imapclient.Client
	if m.cfg.TLS {
		client = imapclient.New(tls.Client(conn, tlsConfig), &imapclient.Options{TLSConfig: tlsConfig})
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starting TLS with %s: %w", m.cfg.Address, err)
		}
	}

	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("authentication failed for %s: %w", m.cfg.Username, err)
	}

	m.logger.Info("Connected to IMAP server",
		zap.String("address", m.cfg.Address),
		zap.String("username", m.cfg.Username))
	return client, nil
}

func (m *Mailbox) previewBytes() int {
	if m.cfg.PreviewBytes <= 0 {
		return 2048
	}
	return m.cfg.PreviewBytes
}

func parseUID(messageID string) (imap.UID, error) {
	n, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid message id %q", messageID)
	}
	return imap.UID(n), nil
}
