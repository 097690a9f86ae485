package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/logging"
)

// AdminFlags contains the global flags of the admin tool
type AdminFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Optional overrides applied on top of the configuration file
	Provider     string
	RulesBackend string
	SQLitePath   string
}

// BuildAdminContainer creates a container for the admin tool. It shares the
// rule store, engine and mailbox wiring with the bot but logs to the console
// and never starts a chat channel.
func BuildAdminContainer(flags *AdminFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *AdminFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *AdminFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *AdminFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyOverrides(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyOverrides copies the non-empty flag overrides into the configuration
func applyOverrides(cfg *config.Config, flags *AdminFlags) {
	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.RulesBackend != "" {
		cfg.Set("rules.backend", flags.RulesBackend)
	}
	if flags.SQLitePath != "" {
		cfg.Set("rules.sqlite_path", flags.SQLitePath)
	}
}
