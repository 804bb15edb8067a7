package review

import (
	"errors"
	"fmt"

	"github.com/timvw/judge-patrol/internal/model"
)

var (
	// ErrInvalidRequest is returned before any judge call when the request
	// cannot be reviewed: empty criteria or artifact, unknown tier, or an
	// unreadable screenshot.
	ErrInvalidRequest = errors.New("invalid review request")

	// ErrBackendUnavailable means no judge is wired for the request's
	// modality and tier. It is an integration gap, not a verdict.
	ErrBackendUnavailable = errors.New("judge backend unavailable")
)

// BackendError means the judge could not be reached or gave an unusable
// reply. It is never a negative verdict.
type BackendError struct {
	Modality     model.Modality
	Intelligence model.Intelligence
	Provider     string
	Model        string
	Err          error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s judge %s/%s (%s tier) failed: %v",
		e.Modality, e.Provider, e.Model, e.Intelligence, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
