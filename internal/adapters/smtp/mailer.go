package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
)

const (
	// SecurityNone sends in clear text
	SecurityNone = "none"
	// SecurityStartTLS upgrades a plain connection
	SecurityStartTLS = "starttls"
	// SecurityTLS connects with implicit TLS
	SecurityTLS = "tls"
)

// Mailer implements core.Mailer by submitting to an SMTP server
type Mailer struct {
	cfg     config.SMTPConfig
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp.from is required")
	}
	switch cfg.Security {
	case SecurityNone, SecurityStartTLS, SecurityTLS:
	default:
		return nil, fmt.Errorf("unsupported smtp security mode: %s", cfg.Security)
	}
	return &Mailer{
		cfg:     cfg,
		logger:  logger,
		timeout: 30 * time.Second,
		now:     time.Now,
	}, nil
}

// Send composes a plain-text message and submits it. The returned string is
// the generated Message-ID.
func (m *Mailer) Send(ctx context.Context, msg core.OutboundMessage) (string, error) {
	data, messageID, err := m.compose(msg)
	if err != nil {
		return "", err
	}

	if err := m.submit(ctx, msg.To, data); err != nil {
		return "", err
	}

	m.logger.Info("Message submitted",
		zap.String("to", msg.To),
		zap.String("message_id", messageID))
	return messageID, nil
}

func (m *Mailer) compose(msg core.OutboundMessage) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Name: m.cfg.FromName, Address: m.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generating Message-ID: %w", err)
	}
	messageID, err := h.MessageID()
	if err != nil {
		return nil, "", fmt.Errorf("reading Message-ID: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(msg.Body)); err != nil {
		return nil, "", fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), messageID, nil
}

func (m *Mailer) submit(ctx context.Context, to string, data []byte) error {
	host, _, err := net.SplitHostPort(m.cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid SMTP address %q: %w", m.cfg.Address, err)
	}
	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if m.cfg.Security == SecurityTLS {
		conn = tls.Client(conn, tlsConfig)
	}
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if m.cfg.Security == SecurityStartTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if m.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := c.Mail(m.cfg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to complete DATA: %w", err)
	}

	if err := c.Quit(); err != nil {
		m.logger.Warn("SMTP QUIT failed", zap.Error(err))
	}
	return nil
}
