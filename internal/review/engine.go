// Package review is the LLM-as-judge review engine. It classifies an
// artifact, hands it to the judge wired for its modality and tier, and
// reduces the reply to a binary verdict.
//
// The engine holds no mutable state after construction and is safe for
// concurrent use. It makes exactly one judge call per review and never
// retries or caches; iteration belongs to the caller.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/timvw/judge-patrol/internal/artifact"
	"github.com/timvw/judge-patrol/internal/judge"
	"github.com/timvw/judge-patrol/internal/model"
	jpotel "github.com/timvw/judge-patrol/internal/otel"
)

var tracer = otel.Tracer("judge-patrol/review")

// Routes wires one judge per modality and tier. A nil slot makes that
// combination unavailable.
type Routes struct {
	TextFast    judge.TextJudge
	TextSmart   judge.TextJudge
	VisualFast  judge.VisualJudge
	VisualSmart judge.VisualJudge
}

// Options are optional collaborators of the engine.
type Options struct {
	Logger  *zap.Logger
	Metrics *jpotel.Metrics // nil-safe
}

// Engine reviews artifacts against acceptance criteria.
type Engine struct {
	routes  Routes
	logger  *zap.Logger
	metrics *jpotel.Metrics
}

// New creates an engine over the given routes.
func New(routes Routes, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{routes: routes, logger: logger, metrics: opts.Metrics}
}

// Judge returns the judge wired for a modality and tier, or nil.
func (e *Engine) Judge(modality model.Modality, tier model.Intelligence) judge.Judge {
	switch modality {
	case model.ModalityVisual:
		if j := e.visualJudge(tier); j != nil {
			return j
		}
	case model.ModalityTextual:
		if j := e.textJudge(tier); j != nil {
			return j
		}
	}
	return nil
}

func (e *Engine) textJudge(tier model.Intelligence) judge.TextJudge {
	if tier == model.IntelligenceSmart {
		return e.routes.TextSmart
	}
	return e.routes.TextFast
}

func (e *Engine) visualJudge(tier model.Intelligence) judge.VisualJudge {
	if tier == model.IntelligenceSmart {
		return e.routes.VisualSmart
	}
	return e.routes.VisualFast
}

// Review evaluates req and returns the verdict. It returns an error, and
// no result, when the request is invalid, no judge is wired, or the judge
// call fails; a negative verdict is a result, not an error.
func (e *Engine) Review(ctx context.Context, req model.ReviewRequest) (*model.ReviewResult, error) {
	start := time.Now()

	modality := artifact.Classify(req.Artifact)
	tier, err := validate(req)
	if err != nil {
		// Label rejected requests with the tier as given.
		tier = req.Intelligence
	}

	ctx, span := tracer.Start(ctx, "review",
		traceAttrs(modality, tier, req))
	defer span.End()

	var result *model.ReviewResult
	if err == nil {
		result, err = e.dispatch(ctx, modality, tier, req)
	}
	outcome := jpotel.OutcomeError
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("review failed",
			zap.String("modality", string(modality)),
			zap.String("tier", string(tier)),
			zap.Error(err))
	case result.Pass:
		outcome = jpotel.OutcomePass
	default:
		outcome = jpotel.OutcomeFail
	}
	span.SetAttributes(attribute.String("review.outcome", outcome))
	e.metrics.RecordReview(ctx, string(modality), string(tier), outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	e.logger.Info("review complete",
		zap.String("modality", string(modality)),
		zap.String("tier", string(tier)),
		zap.Bool("pass", result.Pass),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (e *Engine) dispatch(ctx context.Context, modality model.Modality, tier model.Intelligence, req model.ReviewRequest) (*model.ReviewResult, error) {
	var (
		j       judge.Judge
		verdict *model.JudgeVerdict
		err     error
	)
	switch modality {
	case model.ModalityVisual:
		vj := e.visualJudge(tier)
		if vj == nil {
			return nil, fmt.Errorf("%w: no visual judge for %s tier", ErrBackendUnavailable, tier)
		}
		img, loadErr := artifact.Load(req.Artifact)
		if loadErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, loadErr)
		}
		j = vj
		e.logDispatch(modality, tier, j)
		verdict, err = vj.JudgeImage(ctx, req.Criteria, img)
	default:
		tj := e.textJudge(tier)
		if tj == nil {
			return nil, fmt.Errorf("%w: no text judge for %s tier", ErrBackendUnavailable, tier)
		}
		j = tj
		e.logDispatch(modality, tier, j)
		verdict, err = tj.JudgeText(ctx, req.Criteria, req.Artifact)
	}
	if err != nil {
		return nil, &BackendError{Modality: modality, Intelligence: tier, Provider: j.Provider(), Model: j.Model(), Err: err}
	}

	e.metrics.RecordTokens(ctx, j.Provider(), j.Model(), verdict.Usage.InputTokens, verdict.Usage.OutputTokens)

	result, err := Normalize(verdict)
	if err != nil {
		return nil, &BackendError{Modality: modality, Intelligence: tier, Provider: j.Provider(), Model: j.Model(), Err: err}
	}
	return result, nil
}

func (e *Engine) logDispatch(modality model.Modality, tier model.Intelligence, j judge.Judge) {
	e.logger.Debug("dispatching review",
		zap.String("modality", string(modality)),
		zap.String("tier", string(tier)),
		zap.String("provider", j.Provider()),
		zap.String("model", j.Model()))
}

// validate checks the request and returns the effective tier.
func validate(req model.ReviewRequest) (model.Intelligence, error) {
	if strings.TrimSpace(req.Criteria) == "" {
		return "", fmt.Errorf("%w: criteria is required", ErrInvalidRequest)
	}
	if req.Artifact == "" {
		return "", fmt.Errorf("%w: artifact is required", ErrInvalidRequest)
	}
	tier, err := model.ParseIntelligence(string(req.Intelligence))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return tier, nil
}
