package factory

import (
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/adapters/openai"
	"github.com/mikey/llm-mailbot/internal/config"
	"github.com/mikey/llm-mailbot/internal/credential"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// OpenAIFactory creates OpenAI clients
type OpenAIFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	secrets       *credential.Store
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, secrets *credential.Store) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		secrets:       secrets,
	}
}

// CreateClient creates an OpenAI client
func (f *OpenAIFactory) CreateClient() (*openai.OpenAIClient, error) {
	openaiCfg := f.cfg.GetOpenAI()

	apiKey, err := f.secrets.Resolve(openaiCfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving openai.api_key: %w", err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewOpenAIClient(
		goopenai.NewClient(apiKey),
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
