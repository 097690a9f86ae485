package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/imap"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/di"
	"github.com/mikey/llm-mailbot/internal/factory"
	"github.com/mikey/llm-mailbot/internal/metrics"
	"github.com/mikey/llm-mailbot/internal/poller"
	"github.com/mikey/llm-mailbot/internal/ports"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: search /etc/llm-mailbot, ~/.llm-mailbot, ./configs, .)")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configPath)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// deps are the components run starts and stops
type deps struct {
	dig.In

	Logger          *zap.Logger
	Channel         ports.Channel
	Poller          *poller.Poller
	Rules           *core.RuleStore
	RuleRepo        factory.RuleRepository
	Drafts          *core.DraftStore
	Disambiguations *core.DisambiguationStore
	Sessions        config.SessionConfig
	Mailbox         *imap.Mailbox
	Backend         metrics.Backend
}

// run is the main application function that gets all dependencies injected
func run(d deps) error {
	logger := d.Logger
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := d.Rules.Reload(ctx); err != nil {
		logger.Error("Failed to load rules; starting with an empty rule set", zap.Error(err))
	} else {
		logger.Info("Rules loaded", zap.Int("count", len(d.Rules.List())))
	}
	cancel()

	d.Drafts.StartSweeper(d.Sessions.SweepFrequency)
	d.Disambiguations.StartSweeper(d.Sessions.SweepFrequency)

	// Start the channel
	if err := d.Channel.Start(); err != nil {
		logger.Error("Failed to start channel", zap.Error(err))
		return err
	}
	d.Poller.Start()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var inputDone <-chan struct{}
	if cli, ok := d.Channel.(interface{ Done() <-chan struct{} }); ok {
		inputDone = cli.Done()
	}

	select {
	case <-sigCh:
	case <-inputDone:
	}
	logger.Info("Shutting down...")

	d.Poller.Stop()
	if err := d.Channel.Stop(); err != nil {
		logger.Error("Failed to stop channel", zap.Error(err))
	}
	d.Drafts.Stop()
	d.Disambiguations.Stop()

	// Close any resources that need closing
	if err := d.Mailbox.Close(); err != nil {
		logger.Error("Failed to close mailbox", zap.Error(err))
	}
	if err := d.RuleRepo.Close(); err != nil {
		logger.Error("Failed to close rule repository", zap.Error(err))
	}
	if closer, ok := d.Backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
