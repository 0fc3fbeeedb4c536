package core

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of error kinds surfaced across the pipeline.
// It replaces the distinct exception classes of the original Python engine
// with one comparable string type so callers can switch on Kind without
// a type assertion per error class.
type Kind string

const (
	KindConfigurationInvalid Kind = "configuration_invalid"
	KindComponentNotAvailable Kind = "component_not_available"
	KindNoHandler            Kind = "no_handler"
	KindHandlerUnavailable   Kind = "handler_unavailable"
	KindNoActiveActions      Kind = "no_active_actions"
	KindNoCapableHandlers    Kind = "no_capable_handlers"
	KindAmbiguousTarget      Kind = "ambiguous_target"
	KindRequiresConfirmation Kind = "requires_confirmation"
	KindResamplingFailed     Kind = "resampling_failed"
	KindSampleRateMismatch   Kind = "sample_rate_mismatch"
	KindTranscriptionFailed  Kind = "transcription_failed"
	KindTTSFailed            Kind = "tts_failed"
	KindVoiceTriggerFailed   Kind = "voice_trigger_failed"
	KindExecutionError       Kind = "execution_error"
	KindTraceOverflow        Kind = "trace_overflow"
)

// CoreError is the error value carried through the pipeline whenever a
// stage or subsystem fails. Kind is stable and intended for programmatic
// handling; Message is a short human-readable string in the session
// language (callers fill it in at the point of return).
type CoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// NewError constructs a [CoreError] of the given kind.
func NewError(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the [Kind] from err if it is (or wraps) a [CoreError].
// Returns [KindExecutionError] for any other non-nil error, and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindExecutionError
}

// ErrComponentNotAvailable is a sentinel usable with errors.Is for the common
// case of a required runtime dependency (device, library, credential) being
// absent at construction time.
var ErrComponentNotAvailable = errors.New("component not available")
