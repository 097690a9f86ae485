package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/channel"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/utils"
)

type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, _, text string) string { return text }

func newConfig(overrides map[string]interface{}) *config.Config {
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range overrides {
		cfg.Set(k, v)
	}
	return cfg
}

func secrets() *credential.Store {
	return credential.NewStore("llm-mailbot-test", "")
}

func TestCreateRuleRepository(t *testing.T) {
	logger := zap.NewNop()

	repo, err := NewRulesFactory(newConfig(map[string]interface{}{"rules.backend": "memory"}), logger, secrets()).CreateRuleRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	path := filepath.Join(t.TempDir(), "nested", "rules.db")
	repo, err = NewRulesFactory(newConfig(map[string]interface{}{
		"rules.backend":     "sqlite",
		"rules.sqlite_path": path,
	}), logger, secrets()).CreateRuleRepository()
	require.NoError(t, err)
	defer repo.Close()
	assert.FileExists(t, path)

	_, err = NewRulesFactory(newConfig(map[string]interface{}{"rules.backend": "redis"}), logger, secrets()).CreateRuleRepository()
	assert.ErrorContains(t, err, "unsupported rules backend")
}

func TestCreateBackendRejectsUnknownProvider(t *testing.T) {
	logger := zap.NewNop()
	f := NewLLMFactory(newConfig(map[string]interface{}{"llm.provider": "llama"}), logger, utils.NewTextProcessor(logger), secrets())

	_, err := f.CreateBackend()
	assert.ErrorContains(t, err, "unsupported LLM provider: llama")
}

func TestCreateChannel(t *testing.T) {
	logger := zap.NewNop()

	f := NewTransportFactory(newConfig(map[string]interface{}{"channel.type": "http"}), logger, utils.NewTextProcessor(logger), secrets())
	ch, err := f.CreateChannel(echoHandler{})
	require.NoError(t, err)
	assert.IsType(t, &channel.HTTPChannel{}, ch)

	f = NewTransportFactory(newConfig(map[string]interface{}{"channel.type": "cli"}), logger, utils.NewTextProcessor(logger), secrets())
	ch, err = f.CreateChannel(echoHandler{})
	require.NoError(t, err)
	assert.IsType(t, &channel.CLIChannel{}, ch)

	f = NewTransportFactory(newConfig(map[string]interface{}{"channel.type": "irc"}), logger, utils.NewTextProcessor(logger), secrets())
	_, err = f.CreateChannel(echoHandler{})
	assert.ErrorContains(t, err, "unsupported channel type: irc")
}

func TestCreateMailerRequiresSender(t *testing.T) {
	logger := zap.NewNop()

	f := NewTransportFactory(newConfig(nil), logger, utils.NewTextProcessor(logger), secrets())
	_, err := f.CreateMailer()
	assert.Error(t, err)

	f = NewTransportFactory(newConfig(map[string]interface{}{"smtp.from": "bot@example.com"}), logger, utils.NewTextProcessor(logger), secrets())
	mailer, err := f.CreateMailer()
	require.NoError(t, err)
	assert.NotNil(t, mailer)
}
