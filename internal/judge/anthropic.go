package judge

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

// AnthropicJudge judges artifacts using the Anthropic Messages API.
// Works with both direct Anthropic API and Azure AI Foundry.
type AnthropicJudge struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicConfig holds configuration for the Anthropic judge.
type AnthropicConfig struct {
	// BaseURL is the API endpoint (e.g., "https://resource.services.ai.azure.com/anthropic/").
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name.
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
}

// NewAnthropicJudge creates a new Anthropic judge. The SDK's own retries
// are disabled: one review is one request.
func NewAnthropicJudge(cfg AnthropicConfig) *AnthropicJudge {
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

	return &AnthropicJudge{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}
}

// Provider returns "anthropic".
func (j *AnthropicJudge) Provider() string {
	return "anthropic"
}

// Model returns the model name.
func (j *AnthropicJudge) Model() string {
	return j.model
}

// JudgeText sends a textual artifact to the Anthropic API.
func (j *AnthropicJudge) JudgeText(ctx context.Context, criteria, text string) (*model.JudgeVerdict, error) {
	userMessage := BuildTextPrompt(criteria, text)
	return j.send(ctx, model.ModalityTextual, userMessage, anthropic.NewTextBlock(userMessage))
}

// JudgeImage sends a screenshot as a base64 image block followed by the criterion.
func (j *AnthropicJudge) JudgeImage(ctx context.Context, criteria string, img *artifact.Image) (*model.JudgeVerdict, error) {
	userMessage := BuildVisualPrompt(criteria)
	return j.send(ctx, model.ModalityVisual, userMessage,
		anthropic.NewImageBlockBase64(img.MediaType, img.Base64()),
		anthropic.NewTextBlock(userMessage),
	)
}

func (j *AnthropicJudge) send(ctx context.Context, modality model.Modality, userMessage string, blocks ...anthropic.ContentBlockParamUnion) (*model.JudgeVerdict, error) {
	ctx, span := startChatSpan(ctx, j.Provider(), j.model, j.maxTokens, modality, userMessage)
	defer span.End()

	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: j.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var rawText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			rawText = block.Text
			break
		}
	}
	if rawText == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("anthropic API returned empty response")
	}

	usage := model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	recordResponse(span, string(resp.Model), usage, string(resp.StopReason), rawText)

	verdict, err := parseVerdict(rawText)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "malformed_response"))
		return nil, err
	}
	verdict.Usage = usage
	return verdict, nil
}
