package judge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timvw/judge-patrol/internal/model"
)

// SystemPrompt is the system-level instruction shared by every backend.
//
//go:embed prompts/system.md
var SystemPrompt string

// TextPromptTemplate introduces a textual artifact.
//
//go:embed prompts/text.md
var TextPromptTemplate string

// VisualPromptTemplate introduces a screenshot artifact.
//
//go:embed prompts/visual.md
var VisualPromptTemplate string

// BuildTextPrompt returns the user message for a textual review.
func BuildTextPrompt(criteria, text string) string {
	var b strings.Builder
	b.WriteString(TextPromptTemplate)
	b.WriteString("\nAcceptance criterion:\n")
	b.WriteString(strings.TrimSpace(criteria))
	b.WriteString("\n\n<artifact>\n")
	b.WriteString(text)
	b.WriteString("\n</artifact>\n")
	return b.String()
}

// BuildVisualPrompt returns the text part sent alongside a screenshot.
func BuildVisualPrompt(criteria string) string {
	var b strings.Builder
	b.WriteString(VisualPromptTemplate)
	b.WriteString("\nAcceptance criterion:\n")
	b.WriteString(strings.TrimSpace(criteria))
	b.WriteString("\n")
	return b.String()
}

// stripMarkdownFences removes a surrounding ```json ... ``` block, which
// models add despite being told not to.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// parseVerdict decodes the model reply into a JudgeVerdict.
func parseVerdict(raw string) (*model.JudgeVerdict, error) {
	text := stripMarkdownFences(raw)
	var verdict model.JudgeVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse judge response as JSON: %w\nraw response: %s", err, text)
	}
	if verdict.Pass == nil {
		return nil, fmt.Errorf("judge response has no \"pass\" field\nraw response: %s", text)
	}
	return &verdict, nil
}
