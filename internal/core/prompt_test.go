package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationPrompt(t *testing.T) {
	prompt := ClassificationPrompt(
		&MessageEnvelope{Sender: "a@shop.com", SenderDisplayName: "Shop", Subject: "Sale"},
		PromptConstraints{Categories: []string{"Work", "Promotions"}, Instructions: "Shops are promotions"},
		"50% off",
	)

	assert.Contains(t, prompt, "Allowed folders: Work, Promotions")
	assert.Contains(t, prompt, "Shops are promotions")
	assert.Contains(t, prompt, "From: Shop <a@shop.com>")
	assert.Contains(t, prompt, "50% off")
}

func TestParseClassificationReply(t *testing.T) {
	res, err := ParseClassificationReply("Here you go: {\"bucket\": \" Promotions \", \"confidence\": 0.9, \"reason\": \"sale\"}")
	require.NoError(t, err)
	assert.Equal(t, "Promotions", res.Bucket)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, SourceClassifier, res.Source)

	_, err = ParseClassificationReply("I cannot decide")
	assert.Error(t, err)
}
