package interview

import (
	"errors"
	"fmt"
)

// ErrMalformedEvaluation marks an evaluation response that arrived but does
// not carry a perQuestion list.
var ErrMalformedEvaluation = errors.New("evaluation response has no perQuestion list")

// MediaAccessError is returned when the microphone cannot be acquired.
type MediaAccessError struct {
	Err error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *MediaAccessError) Unwrap() error { return e.Err }

// TranscriptionError is returned when an answer could not be transcribed.
// StatusCode is 0 when no HTTP response was received.
type TranscriptionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TranscriptionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return fmt.Sprintf("transcription failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// EvaluationError is returned when the interview could not be scored,
// either because the call failed or because the response was malformed
// (Err is ErrMalformedEvaluation).
type EvaluationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *EvaluationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMalformedEvaluation):
		return fmt.Sprintf("evaluation failed: %v", e.Err)
	case e.StatusCode == 0:
		return fmt.Sprintf("evaluation failed: %v", e.Err)
	default:
		return fmt.Sprintf("evaluation failed: status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsFormatError reports whether the evaluation arrived but was unusable.
func (e *EvaluationError) IsFormatError() bool {
	return errors.Is(e.Err, ErrMalformedEvaluation)
}
