package validate

import "time"

// EventKind identifies the type of event emitted while validating.
type EventKind string

const (
	// EventSubmissionStarted is emitted when a submission file is picked up.
	EventSubmissionStarted EventKind = "submission.started"

	// EventStageStarted is emitted when a stage begins.
	EventStageStarted EventKind = "stage.started"

	// EventStageFinished is emitted when a stage completes, with or without
	// findings.
	EventStageFinished EventKind = "stage.finished"

	// EventStageFailed is emitted when a stage aborts validation.
	EventStageFailed EventKind = "stage.failed"

	// EventSubmissionFinished is emitted once the error list is final.
	EventSubmissionFinished EventKind = "submission.finished"
)

func (k EventKind) String() string {
	return string(k)
}

// Stage names one step of submission validation.
type Stage string

const (
	StageSchema      Stage = "schema"
	StageURL         Stage = "url"
	StageDownload    Stage = "download"
	StageChecksum    Stage = "checksum"
	StageAPIVersions Stage = "api_versions"
	StageManifest    Stage = "manifest"
	StageConsistency Stage = "consistency"
)

// Event records progress through one submission.
type Event struct {
	Kind EventKind

	// RunID identifies one ValidateSubmission call.
	RunID string

	// File is the submission path.
	File string

	// Stage is empty for submission-level events.
	Stage Stage

	Time time.Time

	// Elapsed is the duration of the stage or submission.
	Elapsed time.Duration

	// Messages counts the messages added by the stage, or the total for
	// EventSubmissionFinished.
	Messages int

	// Fatal is set on EventSubmissionFinished when validation aborted.
	Fatal bool

	// Legacy is set on EventSubmissionFinished for skipped legacy records.
	Legacy bool

	// Err carries the failure text for EventStageFailed.
	Err string
}

// NewEvent creates an event stamped with the current time.
func NewEvent(kind EventKind, runID, file string) Event {
	return Event{
		Kind:  kind,
		RunID: runID,
		File:  file,
		Time:  time.Now(),
	}
}

// WithStage sets the stage on the event.
func (e Event) WithStage(stage Stage) Event {
	e.Stage = stage
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// EventHandler receives validation events.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}
