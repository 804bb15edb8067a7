package review

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/judge-patrol/internal/model"
)

func traceAttrs(modality model.Modality, tier model.Intelligence, req model.ReviewRequest) trace.SpanStartOption {
	attrs := []attribute.KeyValue{
		attribute.String("review.modality", string(modality)),
		attribute.String("review.tier", string(tier)),
		attribute.String("review.criteria", req.Criteria),
		attribute.String("langfuse.trace.name", "judge-patrol-review"),
	}
	if modality == model.ModalityVisual {
		attrs = append(attrs, attribute.String("review.artifact.path", req.Artifact))
	} else {
		attrs = append(attrs, attribute.Int("review.artifact.length", len(req.Artifact)))
	}
	return trace.WithAttributes(attrs...)
}
