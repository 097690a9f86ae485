package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
)

func TestAdminContainerProvidesRuleStore(t *testing.T) {
	container, err := BuildAdminContainer(&AdminFlags{RulesBackend: "memory"})
	require.NoError(t, err)

	err = container.Invoke(func(store *core.RuleStore) error {
		require.NoError(t, store.Reload(context.Background()))
		_, err := store.Add(context.Background(), core.Rule{
			Pattern:   "linkedin.com",
			MatchType: core.MatchSender,
			Folder:    "Social",
		})
		require.NoError(t, err)
		assert.Len(t, store.List(), 1)
		return nil
	})
	require.NoError(t, err)
}

func TestAdminContainerRejectsUnknownBackend(t *testing.T) {
	container, err := BuildAdminContainer(&AdminFlags{RulesBackend: "postgres"})
	require.NoError(t, err)

	err = container.Invoke(func(*core.RuleStore) {})
	assert.ErrorContains(t, err, "unsupported rules backend: postgres")
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyOverrides(cfg, &AdminFlags{Provider: "openai", SQLitePath: "/tmp/rules.db"})

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, "/tmp/rules.db", cfg.GetRules().SQLitePath)
	assert.Equal(t, "sqlite", cfg.GetRules().Backend, "empty overrides leave the file value")
}
