package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/core"
	"github.com/mikey/llm-mailbot/internal/utils"
)

type fakeInvoker struct {
	body    string
	request map[string]interface{}
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if err := json.Unmarshal(in.Body, &f.request); err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newTestClient(modelID string, inv *fakeInvoker) *BedrockClient {
	logger := zap.NewNop()
	return &BedrockClient{
		client:        inv,
		modelID:       modelID,
		maxTokens:     200,
		temperature:   0.1,
		topP:          0.9,
		maxBodySize:   512,
		logger:        logger,
		textProcessor: utils.NewTextProcessor(logger),
	}
}

func TestClaudeClassify(t *testing.T) {
	inv := &fakeInvoker{body: `{"completion": " {\"bucket\": \"Work\", \"confidence\": 0.8, \"reason\": \"colleague\"}"}`}
	client := newTestClient("anthropic.claude-v2", inv)

	res, err := client.Classify(context.Background(),
		&core.MessageEnvelope{Sender: "boss@corp.com"},
		core.PromptConstraints{Categories: []string{"Work"}})
	require.NoError(t, err)

	assert.Equal(t, "Work", res.Bucket)
	assert.Contains(t, inv.request["prompt"], "Human:")
	assert.EqualValues(t, 200, inv.request["max_tokens_to_sample"])
}

func TestTitanGenerateText(t *testing.T) {
	inv := &fakeInvoker{body: `{"results": [{"outputText": "  Subject: Hi\n\nHello  "}]}`}
	client := newTestClient("amazon.titan-text-express-v1", inv)

	text, err := client.GenerateText(context.Background(), "write")
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hi\n\nHello", text)
	assert.Equal(t, "write", inv.request["inputText"])
}

func TestTitanEmptyResults(t *testing.T) {
	client := newTestClient("amazon.titan-text-express-v1", &fakeInvoker{body: `{"results": []}`})

	_, err := client.GenerateText(context.Background(), "write")
	assert.ErrorContains(t, err, "empty response")
}

func TestGenericResponseFields(t *testing.T) {
	client := newTestClient("meta.llama3", &fakeInvoker{body: `{"text": "hello"}`})

	text, err := client.GenerateText(context.Background(), "write")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}
