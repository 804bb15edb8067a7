package judge

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/judge-patrol/internal/model"
)

var judgeTracer = otel.Tracer("judge-patrol/judge")

// startChatSpan starts a GenAI generation span following the OTel GenAI
// semantic conventions. Span name is "{operation} {model}".
func startChatSpan(ctx context.Context, provider, modelName string, maxTokens int64, modality model.Modality, userMessage string) (context.Context, trace.Span) {
	ctx, span := judgeTracer.Start(ctx, "chat "+modelName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", modelName),
			attribute.Int64("gen_ai.request.max_tokens", maxTokens),
			attribute.String("judge.modality", string(modality)),

			// Langfuse-specific: ensure this shows as a "generation"
			attribute.String("langfuse.observation.type", "generation"),
		),
	)

	// Screenshot bytes are never recorded, only the text parts.
	inputMessages := []map[string]string{
		{"role": "system", "content": SystemPrompt},
		{"role": "user", "content": userMessage},
	}
	if inputJSON, err := json.Marshal(inputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(inputJSON)))
	}
	return ctx, span
}

// recordResponse adds usage and output attributes to a chat span.
func recordResponse(span trace.Span, responseModel string, usage model.TokenUsage, finishReason, rawText string) {
	span.SetAttributes(
		attribute.String("gen_ai.response.model", responseModel),
		attribute.Int64("gen_ai.usage.input_tokens", usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", usage.OutputTokens),
	)
	if finishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{finishReason}))
	}
	outputMessages := []map[string]string{
		{"role": "assistant", "content": rawText},
	}
	if outputJSON, err := json.Marshal(outputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(outputJSON)))
	}
}
