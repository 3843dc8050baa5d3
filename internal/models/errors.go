package models

import (
	"errors"
	"fmt"
	"strings"
)

// Session related errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrAnalysisInFlight = errors.New("an analysis is already running for this session")
)

// Analysis related errors
var (
	ErrUndecodableImage = errors.New("image could not be decoded")
	ErrImageTooLarge    = errors.New("image dimensions exceed the pixel limit")
	ErrStaleCapture     = errors.New("capture was already analyzed")
)

// ConfigError reports inference settings that are missing at call time.
// It is returned before any network attempt is made.
type ConfigError struct {
	Missing []string
}

func (ce *ConfigError) Error() string {
	return fmt.Sprintf("inference not configured: missing %s", strings.Join(ce.Missing, ", "))
}

// InferenceError wraps a failure at the inference API boundary:
// transport, non-200 status, or an undecodable body.
type InferenceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (ie *InferenceError) Error() string {
	if ie.StatusCode != 0 {
		return fmt.Sprintf("inference %s (status %d): %v", ie.Op, ie.StatusCode, ie.Err)
	}
	return fmt.Sprintf("inference %s: %v", ie.Op, ie.Err)
}

func (ie *InferenceError) Unwrap() error {
	return ie.Err
}

// MalformedResponseError means the model content parsed as JSON but its root
// was neither an object nor a list whose first element is an object.
type MalformedResponseError struct {
	Kind string
}

func (me *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: got %s, want object", me.Kind)
}
