package metrics

import (
	"context"
	"io"
	"time"

	"github.com/mikey/llm-mailbot/internal/core"
)

// Backend is a model client that both classifies and generates text
type Backend interface {
	core.Classifier
	core.TextGenerator
}

type instrumentedBackend struct {
	next Backend
}

// InstrumentBackend counts and times every call made through next
func InstrumentBackend(next Backend) Backend {
	return &instrumentedBackend{next: next}
}

func (b *instrumentedBackend) Classify(ctx context.Context, env *core.MessageEnvelope, constraints core.PromptConstraints) (*core.ClassificationResult, error) {
	start := time.Now()
	res, err := b.next.Classify(ctx, env, constraints)
	observe("classify", start, err)
	return res, err
}

func (b *instrumentedBackend) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := b.next.GenerateText(ctx, prompt)
	observe("generate", start, err)
	return text, err
}

// Close releases the wrapped client when it holds a connection
func (b *instrumentedBackend) Close() error {
	if closer, ok := b.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackendCallsTotal.WithLabelValues(operation, status).Inc()
	BackendCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
