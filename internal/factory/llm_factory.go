package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/metrics"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// LLMFactory creates the model backend used for classification and drafting
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	secrets       *credential.Store
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, secrets *credential.Store) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		secrets:       secrets,
	}
}

// CreateBackend creates a backend based on the configured provider
func (f *LLMFactory) CreateBackend() (metrics.Backend, error) {
	llmConfig := f.cfg.GetLLM()

	var (
		backend metrics.Backend
		err     error
	)
	switch llmConfig.Provider {
	case "bedrock":
		backend, err = NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "gemini":
		backend, err = NewGeminiFactory(f.cfg, f.logger, f.textProcessor, f.secrets).CreateClient()
	case "openai":
		backend, err = NewOpenAIFactory(f.cfg, f.logger, f.textProcessor, f.secrets).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("LLM backend ready", zap.String("provider", llmConfig.Provider))
	return metrics.InstrumentBackend(backend), nil
}
