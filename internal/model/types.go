package model

import (
	"fmt"
	"strings"
	"time"
)

// Intelligence selects the judge tier: a fast, cheap model for objective
// checks or a smarter one for nuanced aesthetic judgment.
type Intelligence string

const (
	IntelligenceFast  Intelligence = "fast"
	IntelligenceSmart Intelligence = "smart"
)

// ParseIntelligence normalizes a tier name. The empty string means fast.
func ParseIntelligence(s string) (Intelligence, error) {
	switch Intelligence(strings.ToLower(strings.TrimSpace(s))) {
	case "", IntelligenceFast:
		return IntelligenceFast, nil
	case IntelligenceSmart:
		return IntelligenceSmart, nil
	default:
		return "", fmt.Errorf("unknown intelligence %q (supported: fast, smart)", s)
	}
}

// Modality is how an artifact is presented to a judge.
type Modality string

const (
	ModalityTextual Modality = "textual"
	ModalityVisual  Modality = "visual"
)

// ReviewRequest asks a judge whether an artifact satisfies the criteria.
type ReviewRequest struct {
	// Criteria is a behavioral, observable description of what passing means.
	Criteria string `json:"criteria" yaml:"criteria"`
	// Artifact is either literal text or a path to a captured screenshot
	// (.png, .jpg, .jpeg). The modality is inferred from the value.
	Artifact string `json:"artifact" yaml:"artifact"`
	// Intelligence is the judge tier. Empty means fast.
	Intelligence Intelligence `json:"intelligence,omitempty" yaml:"intelligence,omitempty"`
}

// ReviewResult is the binary verdict returned to the driver.
type ReviewResult struct {
	Pass bool `json:"pass"`
	// Feedback explains a failing verdict so the next iteration can act on
	// it. Never set when Pass is true.
	Feedback string `json:"feedback,omitempty"`
}

// HasFeedback reports whether the judge explained a failing verdict.
func (r ReviewResult) HasFeedback() bool {
	return r.Feedback != ""
}

// JudgeVerdict is the JSON structure returned by the judge model.
// Pass is a pointer so a reply without a verdict can be told apart from
// an explicit false.
type JudgeVerdict struct {
	Pass     *bool  `json:"pass"`
	Feedback string `json:"feedback"`

	// Usage is populated by the backend, not parsed from the model reply.
	Usage TokenUsage `json:"-"`
}

// TokenUsage tracks LLM token consumption for a single judgment.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ReviewRecord is the CLI view of a single review, including the route
// that produced it.
type ReviewRecord struct {
	ReviewResult

	Modality     Modality     `json:"modality"`
	Intelligence Intelligence `json:"intelligence"`
	// Provider and Model name the judge that answered.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	// DurationMs is the wall-clock time of the judge round trip.
	DurationMs int64     `json:"duration_ms"`
	ReviewedAt time.Time `json:"reviewed_at"`
}
