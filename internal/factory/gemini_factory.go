package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/gemini"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// GeminiFactory creates Gemini clients
type GeminiFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	secrets       *credential.Store
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, secrets *credential.Store) *GeminiFactory {
	return &GeminiFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		secrets:       secrets,
	}
}

// CreateClient creates a Gemini client
func (f *GeminiFactory) CreateClient() (*gemini.GeminiClient, error) {
	geminiCfg := f.cfg.GetGemini()

	apiKey, err := f.secrets.Resolve(geminiCfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving gemini.api_key: %w", err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewGeminiClient(
		context.Background(),
		apiKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
