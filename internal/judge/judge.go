// Package judge provides the LLM backends that decide whether an artifact
// meets an acceptance criterion.
//
// Go code builds the prompt and parses the reply. The verdict itself is
// always the model's; nothing here inspects the artifact's content.
package judge

import (
	"context"
	"fmt"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

// Judge identifies the model behind a backend.
type Judge interface {
	// Provider returns the provider name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model name used for judgment.
	Model() string
}

// TextJudge evaluates literal text against a criterion.
type TextJudge interface {
	Judge
	JudgeText(ctx context.Context, criteria, text string) (*model.JudgeVerdict, error)
}

// VisualJudge evaluates a screenshot against a criterion.
type VisualJudge interface {
	Judge
	JudgeImage(ctx context.Context, criteria string, img *artifact.Image) (*model.JudgeVerdict, error)
}

// Backend is a judge that handles both modalities. All concrete
// providers in this package implement it.
type Backend interface {
	TextJudge
	VisualJudge
}

// Settings selects and configures one provider-bound model.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	// MaxTokens is the maximum number of output tokens. Defaults to 1024.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

const defaultMaxTokens = 1024

// New creates a backend for the provider named in s.
func New(s Settings) (Backend, error) {
	if s.Model == "" {
		return nil, fmt.Errorf("no model configured for provider %q", s.Provider)
	}
	switch s.Provider {
	case "anthropic":
		return NewAnthropicJudge(AnthropicConfig{
			BaseURL:      s.BaseURL,
			APIKey:       s.APIKey,
			Model:        s.Model,
			MaxTokens:    s.MaxTokens,
			ExtraHeaders: s.ExtraHeaders,
		}), nil
	case "openai":
		return NewOpenAIJudge(OpenAIConfig{
			BaseURL:      s.BaseURL,
			APIKey:       s.APIKey,
			Model:        s.Model,
			MaxTokens:    s.MaxTokens,
			ExtraHeaders: s.ExtraHeaders,
		}), nil
	case "gemini", "google":
		return NewGeminiJudge(context.Background(), GeminiConfig{
			BaseURL:   s.BaseURL,
			APIKey:    s.APIKey,
			Model:     s.Model,
			MaxTokens: s.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai, gemini)", s.Provider)
	}
}

func maxTokensOrDefault(n int64) int64 {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
