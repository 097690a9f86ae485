package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/utils"
)

// completer is the part of *openai.Client the adapter uses
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements core.Classifier and core.TextGenerator using OpenAI
type OpenAIClient struct {
	client        completer
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return newClient(client, modelName, maxTokens, temperature, topP, maxBodySize, logger, textProcessor)
}

func newClient(
	client completer,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify asks the model to pick one of the allowed buckets
func (c *OpenAIClient) Classify(ctx context.Context, env *core.MessageEnvelope, constraints core.PromptConstraints) (*core.ClassificationResult, error) {
	preview := c.textProcessor.ProcessText(env.PreviewText, c.maxBodySize)
	prompt := core.ClassificationPrompt(env, constraints, preview)

	reply, err := c.complete(ctx, "You are an email filing assistant. Respond only with JSON.", prompt, true)
	if err != nil {
		return nil, err
	}

	result, err := core.ParseClassificationReply(reply)
	if err != nil {
		c.logger.Debug("Unparseable classification reply", zap.String("reply", reply))
		return nil, err
	}
	return result, nil
}

// GenerateText returns the model's completion for a drafting prompt
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "You help the user write email.", prompt, false)
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt string, jsonReply bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if jsonReply {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
