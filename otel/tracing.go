// Package otel provides OpenTelemetry integration for validation events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/addonvet/validate"
)

// TracingHandler translates validation events into OpenTelemetry spans: one
// span per submission with a child span per stage.
type TracingHandler struct {
	tracer trace.Tracer

	mu         sync.RWMutex
	runSpans   map[string]trace.Span      // runID -> span
	runCtxs    map[string]context.Context // runID -> context (for child spans)
	stageSpans map[string]trace.Span      // runID:stage -> span
}

// NewTracingHandler creates a TracingHandler that uses the given tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:     tracer,
		runSpans:   make(map[string]trace.Span),
		runCtxs:    make(map[string]context.Context),
		stageSpans: make(map[string]trace.Span),
	}
}

// Handle processes a validation event. It has validate.EventHandler
// semantics.
func (h *TracingHandler) Handle(e validate.Event) {
	switch e.Kind {
	case validate.EventSubmissionStarted:
		h.handleSubmissionStarted(e)
	case validate.EventStageStarted:
		h.handleStageStarted(e)
	case validate.EventStageFinished:
		h.handleStageEnded(e, false)
	case validate.EventStageFailed:
		h.handleStageEnded(e, true)
	case validate.EventSubmissionFinished:
		h.handleSubmissionFinished(e)
	}
}

func (h *TracingHandler) handleSubmissionStarted(e validate.Event) {
	ctx, span := h.tracer.Start(context.Background(), "submission:"+e.File,
		trace.WithAttributes(
			attribute.String("addonvet.run_id", e.RunID),
			attribute.String("addonvet.file", e.File),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.runSpans[e.RunID] = span
	h.runCtxs[e.RunID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) handleStageStarted(e validate.Event) {
	h.mu.RLock()
	parentCtx, ok := h.runCtxs[e.RunID]
	h.mu.RUnlock()
	if !ok {
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "stage:"+string(e.Stage),
		trace.WithAttributes(
			attribute.String("addonvet.run_id", e.RunID),
			attribute.String("addonvet.stage", string(e.Stage)),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.stageSpans[stageKey(e)] = span
	h.mu.Unlock()
}

func (h *TracingHandler) handleStageEnded(e validate.Event, failed bool) {
	key := stageKey(e)

	h.mu.Lock()
	span, ok := h.stageSpans[key]
	if ok {
		delete(h.stageSpans, key)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int("addonvet.messages", e.Messages),
		attribute.String("addonvet.duration", e.Elapsed.String()),
	)
	if failed {
		span.SetStatus(codes.Error, e.Err)
		span.RecordError(spanError(e.Err), trace.WithTimestamp(e.Time))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

func (h *TracingHandler) handleSubmissionFinished(e validate.Event) {
	h.mu.Lock()
	span, ok := h.runSpans[e.RunID]
	if ok {
		delete(h.runSpans, e.RunID)
		delete(h.runCtxs, e.RunID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int("addonvet.messages", e.Messages),
		attribute.Bool("addonvet.fatal", e.Fatal),
		attribute.Bool("addonvet.legacy", e.Legacy),
		attribute.String("addonvet.duration", e.Elapsed.String()),
	)
	if e.Fatal {
		span.SetStatus(codes.Error, "validation aborted")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

func stageKey(e validate.Event) string {
	return e.RunID + ":" + string(e.Stage)
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
