// Package suite runs a file of review cases against a reviewer, the way a
// test driver gates an iteration on several acceptance criteria at once.
package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/model"
)

// Reviewer is the part of the review engine a suite needs.
type Reviewer interface {
	Review(ctx context.Context, req model.ReviewRequest) (*model.ReviewResult, error)
}

// Case is a single named review.
type Case struct {
	Name         string             `yaml:"name" json:"name"`
	Criteria     string             `yaml:"criteria" json:"criteria"`
	Artifact     string             `yaml:"artifact" json:"artifact"`
	Intelligence model.Intelligence `yaml:"intelligence,omitempty" json:"intelligence,omitempty"`
}

// Request converts the case into a review request.
func (c Case) Request() model.ReviewRequest {
	return model.ReviewRequest{
		Criteria:     c.Criteria,
		Artifact:     c.Artifact,
		Intelligence: c.Intelligence,
	}
}

// File is the on-disk suite format.
type File struct {
	Parallel int    `yaml:"parallel"`
	Cases    []Case `yaml:"cases"`

	// Path is where the suite was loaded from.
	Path string `yaml:"-"`
}

// Load reads a suite file. Relative screenshot paths are resolved against
// the suite file's directory; textual artifacts are left as they are.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing suite %s: %w", path, err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("suite %s has no cases", path)
	}
	f.Path = path

	dir := filepath.Dir(path)
	seen := make(map[string]bool, len(f.Cases))
	for i := range f.Cases {
		c := &f.Cases[i]
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("suite %s: case %d has no name", path, i+1)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("suite %s: duplicate case name %q", path, c.Name)
		}
		seen[c.Name] = true
		if strings.TrimSpace(c.Criteria) == "" {
			return nil, fmt.Errorf("suite %s: case %q has no criteria", path, c.Name)
		}
		if artifact.Classify(c.Artifact) == model.ModalityVisual && !filepath.IsAbs(c.Artifact) {
			c.Artifact = filepath.Join(dir, c.Artifact)
		}
	}
	return &f, nil
}

// Status is the outcome of one case.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// Outcome is the result of running one case. Exactly one of Result and
// Err is set.
type Outcome struct {
	Case     Case
	Result   *model.ReviewResult
	Err      error
	Duration time.Duration
}

// Status classifies the outcome. An error is never reported as a fail.
func (o Outcome) Status() Status {
	switch {
	case o.Err != nil:
		return StatusError
	case o.Result != nil && o.Result.Pass:
		return StatusPass
	default:
		return StatusFail
	}
}

// Runner reviews cases concurrently.
type Runner struct {
	Reviewer Reviewer
	Parallel int
	Logger   *zap.Logger
}

// Run reviews all cases and returns outcomes in input order. It waits for
// every in-flight review before returning; cancelling ctx makes the
// remaining reviews fail with the context error.
func (r *Runner) Run(ctx context.Context, cases []Case) []Outcome {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	outcomes := make([]Outcome, len(cases))
	if len(cases) == 0 {
		return outcomes
	}

	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}
	if parallel > len(cases) {
		parallel = len(cases)
	}

	// Case errors are recorded in the outcome; they never cancel siblings.
	var g errgroup.Group
	g.SetLimit(parallel)

	for i, c := range cases {
		g.Go(func() error {
			start := time.Now()
			o := Outcome{Case: c}
			if err := ctx.Err(); err != nil {
				o.Err = err
			} else {
				o.Result, o.Err = r.Reviewer.Review(ctx, c.Request())
			}
			o.Duration = time.Since(start)

			logger.Debug("case finished",
				zap.String("case", c.Name),
				zap.String("status", string(o.Status())),
				zap.Duration("elapsed", o.Duration))
			outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Summary counts outcomes by status.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

// OK reports whether every case passed.
func (s Summary) OK() bool {
	return s.Total > 0 && s.Passed == s.Total
}

// Summarize counts outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status() {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusError:
			s.Errors++
		}
	}
	return s
}
