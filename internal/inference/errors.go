package inference

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by callers that hold no classifier because
// the model failed to load at startup.
var ErrModelUnavailable = errors.New("model unavailable")

// DecodeError means the uploaded bytes are not a decodable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InferenceError means the runtime failed, timed out or produced an unusable score.
type InferenceError struct {
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("inference failed (%s)", e.Reason)
}

func (e *InferenceError) Unwrap() error { return e.Err }
