package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when an operation is attempted before engine
// warm-up has finished. It is retry-able, unlike a processing error.
var ErrNotReady = errors.New("models are still loading")

// Stage names the step of the speech round-trip that failed. The round-trip
// runs Received → Transcribed → Responded → Synthesized → Complete; a stage
// failure absorbs the remaining stages.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageDialog        Stage = "dialog"
	StageSynthesis     Stage = "synthesis"
)

// StageError wraps an engine failure with the pipeline stage it aborted.
// The underlying message is preserved for operator logs; callers surface it
// as a generic engine failure.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
