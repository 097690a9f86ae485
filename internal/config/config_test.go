package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	sessions, err := cfg.GetSessions()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, sessions.DraftTTL)
	assert.Equal(t, 5*time.Minute, sessions.DisambiguationTTL)

	assert.Equal(t, "INBOX", cfg.GetClassifier().DefaultBucket)
	assert.Equal(t, "sqlite", cfg.GetRules().Backend)
	assert.Equal(t, "bedrock", cfg.GetLLM().Provider)

	assert.Equal(t, ChatConfig{ListLimit: 10, ClassifyLimit: 50, SearchBucket: "INBOX", SearchLimit: 200}, cfg.GetChat())

	imapCfg, err := cfg.GetIMAP()
	require.NoError(t, err)
	assert.True(t, imapCfg.TLS)
	assert.Equal(t, 30*time.Second, imapCfg.DialTimeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
classifier:
  categories: [Work, Finance]
drafts:
  ttl: 10m
channel:
  type: cli
`), 0o600))
	t.Setenv("MAILBOT_CHANNEL_TYPE", "http")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Work", "Finance"}, cfg.GetClassifier().Categories)
	sessions, err := cfg.GetSessions()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, sessions.DraftTTL)
	assert.Equal(t, "http", cfg.GetChannel().Type, "environment overrides the file")
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("poller.interval", "soon")

	_, err := cfg.GetPoller()
	assert.ErrorContains(t, err, "poller.interval")
}
