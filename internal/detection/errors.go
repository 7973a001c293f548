package detection

import (
	"errors"
	"fmt"
)

// ErrNoImage is returned when a request carries no image payload.
var ErrNoImage = errors.New("No image provided")

// ErrModelNotLoaded is reported when the detector failed to load at startup.
var ErrModelNotLoaded = errors.New("Model not loaded")

// InferenceError wraps a failure raised by the detector or an unusable detector result.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// ErrInvalidRequest is wrapped by errors for input that is not a JSON request object.
var ErrInvalidRequest = errors.New("invalid JSON input")

// FieldError reports a request field holding a JSON value of the wrong type.
type FieldError struct {
	Field    string
	Expected string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field %q: expected %s", e.Field, e.Expected)
}
