package provider

import "log/slog"

// Resettable is an optional capability a provider session may implement to
// clear accumulated state after a failure, so the next attempt starts clean
// instead of carrying over a corrupted decode/recognition state. Modeled on
// [vad.Session]'s Reset method, generalized to any provider session
// (spec §4.7 "provider state reset on transcription/resampling failure").
type Resettable interface {
	Reset()
}

// ResettableWithLanguage is an optional capability for providers whose reset
// also needs to re-pin a language/locale (e.g. an ASR session falling back to
// a different provider that must be told which language to expect).
type ResettableWithLanguage interface {
	ResetWithLanguage(language string)
}

// ResetOnFailure resets a provider session's accumulated state after a
// transcription or resampling failure so the next attempt doesn't inherit
// corrupted state. language is the active session language, if known; it is
// only used when the session implements [ResettableWithLanguage]. Sessions
// implementing neither optional interface are left untouched.
func ResetOnFailure(session any, language string, cause error) {
	switch s := session.(type) {
	case ResettableWithLanguage:
		s.ResetWithLanguage(language)
	case Resettable:
		s.Reset()
	default:
		return
	}
	slog.Debug("provider session reset after failure", "cause", cause)
}
