package review

import (
	"errors"
	"strings"

	"github.com/timvw/judge-patrol/internal/model"
)

var errNoVerdict = errors.New("judge returned no verdict")

// Normalize reduces a judge payload to the binary ReviewResult. A passing
// result never carries feedback; a failing one carries the trimmed
// explanation when the judge gave one.
func Normalize(v *model.JudgeVerdict) (*model.ReviewResult, error) {
	if v == nil || v.Pass == nil {
		return nil, errNoVerdict
	}
	if *v.Pass {
		return &model.ReviewResult{Pass: true}, nil
	}
	return &model.ReviewResult{
		Pass:     false,
		Feedback: strings.TrimSpace(v.Feedback),
	}, nil
}
