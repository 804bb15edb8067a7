package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "judge-patrol"

// Review outcomes recorded on the reviews counter.
const (
	OutcomePass  = "pass"
	OutcomeFail  = "fail"
	OutcomeError = "error"
)

// Metrics holds all OTEL metric instruments for judge-patrol.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter

	// Reviews partitioned by modality, tier and outcome (pass, fail, error)
	Reviews metric.Int64Counter

	// ReviewDuration is the wall-clock time of a review in milliseconds
	ReviewDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global MeterProvider.
// Returns no-op instruments when no MeterProvider is registered (safe to
// call unconditionally).
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates all metric instruments on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.Reviews, err = meter.Int64Counter("reviews.total",
		metric.WithDescription("Total reviews partitioned by modality, tier and outcome (pass, fail, error)"))
	if err != nil {
		return nil, err
	}

	m.ReviewDuration, err = meter.Float64Histogram("review.duration",
		metric.WithDescription("Wall-clock duration of a review including the judge round trip"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}

// RecordReview records a finished review and its duration.
func (m *Metrics) RecordReview(ctx context.Context, modality, tier, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("review.modality", modality),
		attribute.String("review.tier", tier),
		attribute.String("review.outcome", outcome),
	)
	m.Reviews.Add(ctx, 1, attrs)
	m.ReviewDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
