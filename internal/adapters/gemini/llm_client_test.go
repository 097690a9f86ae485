package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/utils"
)

type fakeModel struct {
	parts  []genai.Part
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		f.prompt = string(parts[0].(genai.Text))
	}
	if f.parts == nil {
		return &genai.GenerateContentResponse{}, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: f.parts}}},
	}, nil
}

func newTestClient(model *fakeModel) *GeminiClient {
	logger := zap.NewNop()
	return &GeminiClient{
		model:         model,
		modelName:     "gemini-pro",
		maxBodySize:   128,
		logger:        logger,
		textProcessor: utils.NewTextProcessor(logger),
	}
}

func TestClassifyJoinsTextParts(t *testing.T) {
	model := &fakeModel{parts: []genai.Part{
		genai.Text(`{"bucket": "Social",`),
		genai.Text(` "confidence": 0.6, "reason": "friend"}`),
	}}

	res, err := newTestClient(model).Classify(context.Background(),
		&core.MessageEnvelope{Sender: "friend@mail.com"},
		core.PromptConstraints{Categories: []string{"Social"}})
	require.NoError(t, err)
	assert.Equal(t, "Social", res.Bucket)
	assert.Contains(t, model.prompt, "friend@mail.com")
}

func TestEmptyResponse(t *testing.T) {
	_, err := newTestClient(&fakeModel{}).GenerateText(context.Background(), "hi")
	assert.ErrorContains(t, err, "empty response")
}
