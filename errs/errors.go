// Package errs is the shared error taxonomy for the pipeline. Stage code
// wraps these sentinels with fmt.Errorf("%w: ...") so callers can match
// with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks bad durations or parameters before any
	// external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternalService marks a non-2xx or malformed response from a
	// consumed service.
	ErrExternalService = errors.New("external service error")

	// ErrGenerationFailed marks a terminal failed/canceled generation job.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrTimeout marks an exhausted polling or call budget.
	ErrTimeout = errors.New("timeout")

	// ErrClipMerge marks missing or invalid video inputs to composition.
	ErrClipMerge = errors.New("clip merge failed")

	// ErrNoAssets is the hard failure when a whole generation batch
	// produced nothing usable.
	ErrNoAssets = errors.New("no assets produced")

	// ErrAlreadyRunning rejects a second concurrent run for the same
	// project id.
	ErrAlreadyRunning = errors.New("project already running")
)

// PipelineError is the umbrella error returned to the orchestrator's
// caller: it names the project and stage and carries the underlying cause.
type PipelineError struct {
	ProjectID string
	Stage     string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed at %s: %v", e.ProjectID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
