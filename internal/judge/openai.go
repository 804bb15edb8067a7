package judge

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

// OpenAIJudge judges artifacts using an OpenAI-compatible Chat Completions API.
// Works with OpenAI, Azure OpenAI, and any OpenAI-compatible endpoint.
type OpenAIJudge struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// OpenAIConfig holds configuration for the OpenAI judge.
type OpenAIConfig struct {
	// BaseURL is the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name.
	Model string
	// MaxTokens is the maximum number of completion tokens.
	// For reasoning models this must cover reasoning tokens as well.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers.
	ExtraHeaders map[string]string
}

// NewOpenAIJudge creates a new OpenAI-compatible judge with SDK retries disabled.
func NewOpenAIJudge(cfg OpenAIConfig) *OpenAIJudge {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &OpenAIJudge{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}
}

// Provider returns "openai".
func (j *OpenAIJudge) Provider() string {
	return "openai"
}

// Model returns the model name.
func (j *OpenAIJudge) Model() string {
	return j.model
}

// JudgeText sends a textual artifact as a plain user message.
func (j *OpenAIJudge) JudgeText(ctx context.Context, criteria, text string) (*model.JudgeVerdict, error) {
	userMessage := BuildTextPrompt(criteria, text)
	return j.send(ctx, model.ModalityTextual, userMessage, openai.UserMessage(userMessage))
}

// JudgeImage sends the screenshot as a data-URL image part.
func (j *OpenAIJudge) JudgeImage(ctx context.Context, criteria string, img *artifact.Image) (*model.JudgeVerdict, error) {
	userMessage := BuildVisualPrompt(criteria)
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    img.DataURL(),
			Detail: "high",
		}),
		openai.TextContentPart(userMessage),
	}
	return j.send(ctx, model.ModalityVisual, userMessage, openai.UserMessage(parts))
}

func (j *OpenAIJudge) send(ctx context.Context, modality model.Modality, userMessage string, user openai.ChatCompletionMessageParamUnion) (*model.JudgeVerdict, error) {
	ctx, span := startChatSpan(ctx, j.Provider(), j.model, j.maxTokens, modality, userMessage)
	defer span.End()

	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			user,
		},
		MaxCompletionTokens: openai.Int(j.maxTokens),
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("openai API returned empty response")
	}

	rawText := resp.Choices[0].Message.Content
	usage := model.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	span.SetAttributes(attribute.String("gen_ai.response.id", resp.ID))
	recordResponse(span, resp.Model, usage, string(resp.Choices[0].FinishReason), rawText)

	verdict, err := parseVerdict(rawText)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "malformed_response"))
		return nil, err
	}
	verdict.Usage = usage
	return verdict, nil
}
