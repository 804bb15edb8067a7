// Package report renders suite outcomes for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
	"github.com/timvw/judge-patrol/internal/suite"
)

// Entry is the rendered form of one case outcome.
type Entry struct {
	Name         string             `json:"name"`
	Status       suite.Status       `json:"status"`
	Modality     model.Modality     `json:"modality"`
	Intelligence model.Intelligence `json:"intelligence"`
	Feedback     string             `json:"feedback,omitempty"`
	Error        string             `json:"error,omitempty"`
	DurationMs   int64              `json:"duration_ms"`
}

// Report is a full suite run.
type Report struct {
	SessionID  string        `json:"session_id"`
	Suite      string        `json:"suite"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMs int64         `json:"duration_ms"`
	Summary    suite.Summary `json:"summary"`
	Entries    []Entry       `json:"cases"`
}

// New builds a report from outcomes, keeping their order.
func New(sessionID, suitePath string, startedAt time.Time, elapsed time.Duration, outcomes []suite.Outcome) Report {
	entries := make([]Entry, len(outcomes))
	for i, o := range outcomes {
		tier, err := model.ParseIntelligence(string(o.Case.Intelligence))
		if err != nil {
			tier = o.Case.Intelligence
		}
		e := Entry{
			Name:         o.Case.Name,
			Status:       o.Status(),
			Modality:     artifact.Classify(o.Case.Artifact),
			Intelligence: tier,
			DurationMs:   o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		} else if o.Result != nil {
			e.Feedback = o.Result.Feedback
		}
		entries[i] = e
	}
	return Report{
		SessionID:  sessionID,
		Suite:      suitePath,
		StartedAt:  startedAt.UTC(),
		DurationMs: elapsed.Milliseconds(),
		Summary:    suite.Summarize(outcomes),
		Entries:    entries,
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a styled, human-readable report. Colors are dropped
// automatically when w is not a terminal.
func WriteText(w io.Writer, r Report, theme Theme) error {
	s := newStyles(lipgloss.NewRenderer(w), theme)

	var b strings.Builder
	b.WriteString(s.title.Render("judge-patrol") + " " + s.dim.Render(r.Suite) + "\n")
	b.WriteString(s.rule.Render(strings.Repeat("─", 48)) + "\n")

	for _, e := range r.Entries {
		var badge string
		switch e.Status {
		case suite.StatusPass:
			badge = s.pass.Render("PASS")
		case suite.StatusFail:
			badge = s.fail.Render("FAIL")
		default:
			badge = s.err.Render("ERROR")
		}
		route := fmt.Sprintf("%s/%s %dms", e.Modality, e.Intelligence, e.DurationMs)
		b.WriteString(badge + s.name.Render(e.Name) + "  " + s.dim.Render(route) + "\n")

		switch {
		case e.Error != "":
			b.WriteString(s.feedback.Render(e.Error) + "\n")
		case e.Feedback != "":
			b.WriteString(s.feedback.Render(e.Feedback) + "\n")
		}
	}

	b.WriteString(s.rule.Render(strings.Repeat("─", 48)) + "\n")
	sum := r.Summary
	b.WriteString(s.text.Render(fmt.Sprintf("%d cases: %d passed, %d failed, %d errors",
		sum.Total, sum.Passed, sum.Failed, sum.Errors)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
