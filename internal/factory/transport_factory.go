package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/channel"
	"github.com/mikey/llm-mailbot/internal/adapters/imap"
	"github.com/mikey/llm-mailbot/internal/adapters/smtp"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/ports"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// TransportFactory creates the mailbox, mail and chat transports
type TransportFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	secrets       *credential.Store
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, secrets *credential.Store) *TransportFactory {
	return &TransportFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		secrets:       secrets,
	}
}

// CreateMailbox creates the IMAP mailbox adapter
func (f *TransportFactory) CreateMailbox() (*imap.Mailbox, error) {
	imapCfg, err := f.cfg.GetIMAP()
	if err != nil {
		return nil, err
	}
	if imapCfg.Password, err = f.secrets.Resolve(imapCfg.Password); err != nil {
		return nil, fmt.Errorf("resolving imap.password: %w", err)
	}
	return imap.NewMailbox(imapCfg, f.logger, f.textProcessor), nil
}

// CreateMailer creates the SMTP mailer
func (f *TransportFactory) CreateMailer() (*smtp.Mailer, error) {
	smtpCfg := f.cfg.GetSMTP()

	var err error
	if smtpCfg.Password, err = f.secrets.Resolve(smtpCfg.Password); err != nil {
		return nil, fmt.Errorf("resolving smtp.password: %w", err)
	}
	return smtp.NewMailer(smtpCfg, f.logger)
}

// CreateChannel creates the chat channel that feeds handler
func (f *TransportFactory) CreateChannel(handler ports.MessageHandler) (ports.Channel, error) {
	channelCfg := f.cfg.GetChannel()

	var err error
	if channelCfg.APIKey, err = f.secrets.Resolve(channelCfg.APIKey); err != nil {
		return nil, fmt.Errorf("resolving channel.api_key: %w", err)
	}

	switch channelCfg.Type {
	case "http":
		return channel.NewHTTPChannel(channelCfg, handler, f.logger), nil
	case "cli":
		return channel.NewCLIChannel(handler, channelCfg.DefaultInitiator, os.Stdin, os.Stdout, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", channelCfg.Type)
	}
}
