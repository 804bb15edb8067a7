package judge

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

// GeminiJudge judges artifacts using Google's Gemini API.
type GeminiJudge struct {
	client    *genai.Client
	model     string
	maxTokens int64
}

// GeminiConfig holds configuration for the Gemini judge.
type GeminiConfig struct {
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name.
	Model string
	// MaxTokens is the maximum number of output tokens.
	MaxTokens int64
}

// NewGeminiJudge creates a new Gemini judge.
func NewGeminiJudge(ctx context.Context, cfg GeminiConfig) (*GeminiJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiJudge{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokensOrDefault(cfg.MaxTokens),
	}, nil
}

// Provider returns "gemini".
func (j *GeminiJudge) Provider() string {
	return "gemini"
}

// Model returns the model name.
func (j *GeminiJudge) Model() string {
	return j.model
}

// JudgeText sends a textual artifact to Gemini.
func (j *GeminiJudge) JudgeText(ctx context.Context, criteria, text string) (*model.JudgeVerdict, error) {
	userMessage := BuildTextPrompt(criteria, text)
	return j.send(ctx, model.ModalityTextual, userMessage, genai.NewPartFromText(userMessage))
}

// JudgeImage sends the screenshot inline alongside the criterion.
func (j *GeminiJudge) JudgeImage(ctx context.Context, criteria string, img *artifact.Image) (*model.JudgeVerdict, error) {
	userMessage := BuildVisualPrompt(criteria)
	return j.send(ctx, model.ModalityVisual, userMessage,
		genai.NewPartFromBytes(img.Data, img.MediaType),
		genai.NewPartFromText(userMessage),
	)
}

func (j *GeminiJudge) send(ctx context.Context, modality model.Modality, userMessage string, parts ...*genai.Part) (*model.JudgeVerdict, error) {
	ctx, span := startChatSpan(ctx, j.Provider(), j.model, j.maxTokens, modality, userMessage)
	defer span.End()

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	resp, err := j.client.Models.GenerateContent(ctx, j.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		MaxOutputTokens:   outputTokenLimit(j.maxTokens),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("gemini API returned empty response")
	}

	var usage model.TokenUsage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	var finishReason string
	if len(resp.Candidates) > 0 {
		finishReason = string(resp.Candidates[0].FinishReason)
	}
	recordResponse(span, j.model, usage, finishReason, rawText)

	verdict, err := parseVerdict(rawText)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "malformed_response"))
		return nil, err
	}
	verdict.Usage = usage
	return verdict, nil
}

// outputTokenLimit converts a token budget to the API's int32, clamping
// values that do not fit.
func outputTokenLimit(n int64) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
