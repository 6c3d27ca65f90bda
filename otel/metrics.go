package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/addonvet/validate"
)

// Submission outcomes recorded on addonvet.submissions.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeFatal   = "fatal"
	OutcomeLegacy  = "legacy"
)

// MetricsHandler translates validation events into OpenTelemetry metrics.
type MetricsHandler struct {
	submissions        metric.Int64Counter
	messages           metric.Int64Counter
	stageFailures      metric.Int64Counter
	stageDuration      metric.Float64Histogram
	submissionDuration metric.Float64Histogram
}

// NewMetricsHandler creates the instruments on meter.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	submissions, err := meter.Int64Counter("addonvet.submissions",
		metric.WithDescription("Number of submissions validated, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	messages, err := meter.Int64Counter("addonvet.submission.messages",
		metric.WithDescription("Number of validation messages reported"),
	)
	if err != nil {
		return nil, err
	}

	stageFailures, err := meter.Int64Counter("addonvet.stage.failures",
		metric.WithDescription("Number of stages that aborted validation"),
	)
	if err != nil {
		return nil, err
	}

	stageDur, err := meter.Float64Histogram("addonvet.stage.duration",
		metric.WithDescription("Duration of a validation stage in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	submissionDur, err := meter.Float64Histogram("addonvet.submission.duration",
		metric.WithDescription("Duration of a submission validation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		submissions:        submissions,
		messages:           messages,
		stageFailures:      stageFailures,
		stageDuration:      stageDur,
		submissionDuration: submissionDur,
	}, nil
}

// Handle records metrics for a validation event. It has
// validate.EventHandler semantics.
func (h *MetricsHandler) Handle(e validate.Event) {
	ctx := context.Background()
	switch e.Kind {
	case validate.EventStageFinished:
		h.stageDuration.Record(ctx, e.Elapsed.Seconds(), stageAttrs(e))
	case validate.EventStageFailed:
		h.stageDuration.Record(ctx, e.Elapsed.Seconds(), stageAttrs(e))
		h.stageFailures.Add(ctx, 1, stageAttrs(e))
	case validate.EventSubmissionFinished:
		attrs := metric.WithAttributes(attribute.String("outcome", Outcome(e)))
		h.submissions.Add(ctx, 1, attrs)
		h.messages.Add(ctx, int64(e.Messages), attrs)
		h.submissionDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
	}
}

// Outcome classifies a finished submission event.
func Outcome(e validate.Event) string {
	switch {
	case e.Legacy:
		return OutcomeLegacy
	case e.Fatal:
		return OutcomeFatal
	case e.Messages > 0:
		return OutcomeInvalid
	default:
		return OutcomeValid
	}
}

func stageAttrs(e validate.Event) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("stage", string(e.Stage)))
}
