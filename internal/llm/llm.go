package llm

import (
	"context"
	"time"

	"recipe-planner/internal/config"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
	Latency time.Duration
}

// TextGenerator is an interface for generating text from a prompt. Prompts
// ask for a JSON object and implementations request JSON output where the
// provider supports it.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// NewFromConfig picks the configured provider: Gemini first, then Groq.
// It returns nil, nil when no provider is configured.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		gemini, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case cfg.GroqAPIKey != "":
		return NewGroqClient(cfg), nil
	default:
		return nil, nil
	}
}
