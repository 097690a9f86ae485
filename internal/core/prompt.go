package core

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-mailbot/internal/utils"
)

const classificationPromptFormat = `You are an email filing assistant. Assign the following email to exactly one folder.
Allowed folders: %s
%s
Respond with a JSON object containing:
- bucket: string (one of the allowed folders, spelled exactly as listed)
- confidence: number between 0 and 1 (how confident you are)
- reason: string (one short sentence)

Email:
From: %s
Subject: %s
Preview:
%s

Respond only with the JSON object and nothing else.`

// ClassificationPrompt renders the prompt every classifier backend sends.
// preview is the already truncated preview text.
func ClassificationPrompt(env *MessageEnvelope, constraints PromptConstraints, preview string) string {
	instructions := ""
	if s := strings.TrimSpace(constraints.Instructions); s != "" {
		instructions = "Additional instructions from the user:\n" + s + "\n"
	}

	from := env.Sender
	if env.SenderDisplayName != "" {
		from = fmt.Sprintf("%s <%s>", env.SenderDisplayName, env.Sender)
	}

	return fmt.Sprintf(classificationPromptFormat,
		strings.Join(constraints.Categories, ", "),
		instructions,
		from,
		env.Subject,
		preview)
}

type classificationReply struct {
	Bucket     string  `json:"bucket"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ParseClassificationReply decodes a model reply into a result
func ParseClassificationReply(reply string) (*ClassificationResult, error) {
	var parsed classificationReply
	if err := utils.DecodeJSONReply(reply, &parsed); err != nil {
		return nil, err
	}
	return &ClassificationResult{
		Bucket:     strings.TrimSpace(parsed.Bucket),
		Confidence: parsed.Confidence,
		Reason:     strings.TrimSpace(parsed.Reason),
		Source:     SourceClassifier,
	}, nil
}
