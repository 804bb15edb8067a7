package otel

import (
	"context"
	"testing"
	"time"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{name: "empty", input: "", want: map[string]string{}},
		{name: "single", input: "Authorization=Basic abc", want: map[string]string{"Authorization": "Basic abc"}},
		{name: "multiple with spaces", input: " a=1 , b = 2 ", want: map[string]string{"a": "1", "b": "2"}},
		{name: "value with equals", input: "token=a=b", want: map[string]string{"token": "a=b"}},
		{name: "missing key skipped", input: "=x,ok=1", want: map[string]string{"ok": "1"}},
		{name: "no equals skipped", input: "garbage", want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHeaders(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseHeaders(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestInit_NoEndpointIsNoop(t *testing.T) {
	tel, err := Init(context.Background(), OTELConfig{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if tel.Enabled() {
		t.Error("Enabled() = true without endpoint")
	}
	if tel.Metrics == nil || tel.Tracer == nil {
		t.Fatal("tracer and metrics must be usable without exporters")
	}
	tel.Metrics.RecordReview(context.Background(), "textual", "fast", OutcomePass, 10*time.Millisecond)
	tel.Metrics.RecordTokens(context.Background(), "anthropic", "m", 1, 2)
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestInit_InvalidEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), OTELConfig{Endpoint: "not a url"}); err == nil {
		t.Fatal("expected error for endpoint without host")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordReview(context.Background(), "visual", "smart", OutcomeError, time.Second)
	m.RecordTokens(context.Background(), "openai", "m", 1, 1)
}

func TestNewExporters_ValidEndpoint(t *testing.T) {
	traceExp, metricExp, err := newExporters(context.Background(), OTELConfig{
		Endpoint: "http://localhost:4318/api/public/otel",
		Headers:  "Authorization=Basic abc",
	})
	if err != nil {
		t.Fatalf("newExporters: %v", err)
	}
	if traceExp == nil || metricExp == nil {
		t.Fatal("expected both exporters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := traceExp.Shutdown(ctx); err != nil {
		t.Errorf("trace exporter Shutdown: %v", err)
	}
	if err := metricExp.Shutdown(ctx); err != nil {
		t.Errorf("metric exporter Shutdown: %v", err)
	}
}
