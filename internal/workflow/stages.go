package workflow

import (
	"context"

	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/pkg/audio"
)

// VoiceTrigger is the optional wake-word gate (spec §4.3 "voice trigger"
// stage): consumes one audio frame and reports whether it opened the gate.
// No concrete wake-word model ships in this tree; an Engine without one
// configured always treats the gate as open, matching the spec's "if
// disabled ... the gate is open" contract.
type VoiceTrigger interface {
	Detect(ctx context.Context, frame audio.AudioFrame) (detected bool, confidence float64, err error)
}

// TextProcessor is the optional text-normalization stage (number expansion,
// punctuation cleanup, …). Implementations must be side-effect free.
type TextProcessor interface {
	Process(text string) string
}

// TextProcessorFunc adapts a plain function to [TextProcessor].
type TextProcessorFunc func(string) string

func (f TextProcessorFunc) Process(text string) string { return f(text) }

// LLMEnricher is the optional enrichment stage run on an intent result
// before TTS (spec §4.3 "llm (optional enrichment)"). Implementations may
// rewrite Result.Text (e.g. to phrase a raw action result conversationally)
// but must preserve Success/RequiresConfirmation semantics.
type LLMEnricher interface {
	Enrich(ctx context.Context, convText string, result intent.Result) (intent.Result, error)
}

// StageFlags mirrors the per-stage enable toggles spec §4.3 requires under
// workflows.unified_voice_assistant.<stage>_enabled, validated at startup
// (internal/config) against the matching components.<component> toggle.
type StageFlags struct {
	VoiceTriggerEnabled    bool
	VADEnabled             bool
	ASREnabled             bool
	TextProcessingEnabled  bool
	LLMEnrichmentEnabled   bool
	TTSEnabled             bool
	AudioOutputEnabled     bool
}

// DefaultStageFlags enables every stage except the optional LLM enrichment
// pass, matching a plain voice-assistant deployment with no LLM wired.
func DefaultStageFlags() StageFlags {
	return StageFlags{
		VoiceTriggerEnabled:   true,
		VADEnabled:            true,
		ASREnabled:            true,
		TextProcessingEnabled: true,
		LLMEnrichmentEnabled:  false,
		TTSEnabled:            true,
		AudioOutputEnabled:    true,
	}
}
