package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/access"
	"github.com/mikey/llm-mailbot/internal/adapters/contacts"
	"github.com/mikey/llm-mailbot/internal/adapters/imap"
	"github.com/mikey/llm-mailbot/internal/adapters/smtp"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/factory"
	"github.com/mikey/llm-mailbot/internal/logging"
	"github.com/mikey/llm-mailbot/internal/metrics"
	"github.com/mikey/llm-mailbot/internal/orchestrator"
	"github.com/mikey/llm-mailbot/internal/poller"
	"github.com/mikey/llm-mailbot/internal/ports"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the chat bot. An empty configPath searches the default locations.
func BuildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.Load(configPath)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	// Register outbound mail
	if err := container.Provide(func(f *factory.TransportFactory) (*smtp.Mailer, error) {
		return f.CreateMailer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(m *smtp.Mailer) core.Mailer { return m }); err != nil {
		return nil, err
	}

	// Register contact directory
	if err := container.Provide(func(cfg *config.Config, mailbox core.Mailbox, logger *zap.Logger) (core.ContactDirectory, error) {
		return contacts.NewDirectory(cfg.GetContacts(), mailbox, logger)
	}); err != nil {
		return nil, err
	}

	// Register session configuration
	if err := container.Provide(func(cfg *config.Config) (config.SessionConfig, error) {
		return cfg.GetSessions()
	}); err != nil {
		return nil, err
	}

	// Register draft handling
	if err := container.Provide(func(sessions config.SessionConfig, logger *zap.Logger) *core.DraftStore {
		return core.NewDraftStore(sessions.DraftTTL, nil, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		store *core.DraftStore,
		generator core.TextGenerator,
		mailer core.Mailer,
		sessions config.SessionConfig,
		logger *zap.Logger,
	) *core.DraftManager {
		return core.NewDraftManager(store, generator, mailer, logger, sessions.Signature, sessions.SentGrace)
	}); err != nil {
		return nil, err
	}

	// Register recipient disambiguation
	if err := container.Provide(func(sessions config.SessionConfig, logger *zap.Logger) *core.DisambiguationStore {
		return core.NewDisambiguationStore(sessions.DisambiguationTTL, nil, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewDisambiguator); err != nil {
		return nil, err
	}

	// Register access control
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *access.List {
		allowed := cfg.GetChannel().AllowedInitiators
		if len(allowed) > 0 {
			logger.Info("Loaded allowed initiators", zap.Strings("initiators", allowed))
		}
		return access.NewList(allowed, logger)
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		cfg *config.Config,
		engine *core.ClassificationEngine,
		reconciler *core.Reconciler,
		drafts *core.DraftManager,
		disambiguator *core.Disambiguator,
		directory core.ContactDirectory,
		mailbox core.Mailbox,
		allow *access.List,
		logger *zap.Logger,
	) *orchestrator.Orchestrator {
		chat := cfg.GetChat()
		return orchestrator.New(engine, reconciler, drafts, disambiguator, directory, mailbox, allow, logger, orchestrator.Options{
			ListLimit:     chat.ListLimit,
			ClassifyLimit: chat.ClassifyLimit,
			SearchBucket:  chat.SearchBucket,
			SearchLimit:   chat.SearchLimit,
		})
	}); err != nil {
		return nil, err
	}

	// Register chat channel
	if err := container.Provide(func(f *factory.TransportFactory, orch *orchestrator.Orchestrator) (ports.Channel, error) {
		return f.CreateChannel(orch)
	}); err != nil {
		return nil, err
	}

	// Register inbox poller; its summaries go out over the chat channel
	if err := container.Provide(func(
		cfg *config.Config,
		reconciler *core.Reconciler,
		channel ports.Channel,
		logger *zap.Logger,
	) (*poller.Poller, error) {
		pollerCfg, err := cfg.GetPoller()
		if err != nil {
			return nil, err
		}
		return poller.New(reconciler, channel, pollerCfg, logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers everything shared by the bot and the admin tool:
// secrets, the model backend, the rule store, the engine and the mailbox.
// Construction is lazy, so a command that never asks for the mailbox never
// dials it.
func provideCore(container *dig.Container) error {
	// Register secret store
	if err := container.Provide(func(cfg *config.Config) *credential.Store {
		keyringCfg := cfg.GetKeyring()
		return credential.NewStore(keyringCfg.Service, keyringCfg.FileDir)
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewRulesFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTransportFactory); err != nil {
		return err
	}

	// Register model backend
	if err := container.Provide(func(f *factory.LLMFactory) (metrics.Backend, error) {
		return f.CreateBackend()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(b metrics.Backend) core.Classifier { return b }); err != nil {
		return err
	}
	if err := container.Provide(func(b metrics.Backend) core.TextGenerator { return b }); err != nil {
		return err
	}

	// Register rule mirror and store
	if err := container.Provide(func(f *factory.RulesFactory) (factory.RuleRepository, error) {
		return f.CreateRuleRepository()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(repo factory.RuleRepository, logger *zap.Logger) *core.RuleStore {
		return core.NewRuleStore(repo, logger)
	}); err != nil {
		return err
	}

	// Register classification engine
	if err := container.Provide(func(
		cfg *config.Config,
		rules *core.RuleStore,
		classifier core.Classifier,
		logger *zap.Logger,
	) *core.ClassificationEngine {
		classifierCfg := cfg.GetClassifier()
		return core.NewClassificationEngine(
			rules,
			classifier,
			core.NewClassificationMemory(classifierCfg.MemorySize),
			logger,
			classifierCfg.Categories,
			classifierCfg.DefaultBucket,
			classifierCfg.Instructions,
		)
	}); err != nil {
		return err
	}

	// Register mailbox
	if err := container.Provide(func(f *factory.TransportFactory) (*imap.Mailbox, error) {
		return f.CreateMailbox()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(m *imap.Mailbox) core.Mailbox { return m }); err != nil {
		return err
	}

	// Register reconciler
	if err := container.Provide(core.NewReconciler); err != nil {
		return err
	}

	return nil
}
