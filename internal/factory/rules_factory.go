package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/rules"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/credential"
)

// RuleRepository is a durable rule mirror that holds a connection
type RuleRepository interface {
	core.RuleRepository
	Close() error
}

// RulesFactory creates rule repositories based on configuration
type RulesFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	secrets *credential.Store
}

// NewRulesFactory creates a new rules factory
func NewRulesFactory(cfg *config.Config, logger *zap.Logger, secrets *credential.Store) *RulesFactory {
	return &RulesFactory{
		cfg:     cfg,
		logger:  logger,
		secrets: secrets,
	}
}

// CreateRuleRepository creates a rule repository based on the configuration
func (f *RulesFactory) CreateRuleRepository() (RuleRepository, error) {
	rulesCfg := f.cfg.GetRules()

	switch rulesCfg.Backend {
	case "memory":
		f.logger.Warn("Rules are kept in memory only and will be lost on restart")
		return rules.NewMemoryRepository(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(rulesCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return rules.NewSQLiteRepository(rulesCfg.SQLitePath, f.logger)
	case "mysql":
		dsn, err := f.secrets.Resolve(rulesCfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("resolving rules.mysql_dsn: %w", err)
		}
		return rules.NewMySQLRepository(dsn, f.logger)
	default:
		return nil, fmt.Errorf("unsupported rules backend: %s", rulesCfg.Backend)
	}
}
