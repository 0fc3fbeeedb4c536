// Package workflow implements the unified voice assistant pipeline (spec
// §4.3): a staged engine that drives one request from raw audio or text
// through voice-trigger gating, VAD segmentation, ASR, text normalization,
// NLU, intent execution, optional LLM enrichment, and TTS/audio playback.
//
// Grounded on internal/engine/cascade/cascade.go's staged, channel-based
// Process method — the same "run each stage, short-circuit on hard failure,
// degrade gracefully on soft failure" shape, generalized from a two-model
// LLM cascade into the full nine-stage assistant pipeline.
package workflow

import (
	"time"
)

// maxTracePayloadBytes caps the size of any single input/output value
// recorded into a trace; larger values are elided to keep traces cheap to
// keep around and safe to log.
const maxTracePayloadBytes = 4096

const elidedSentinel = "<elided>"

// StageRecord is one entry in a [TraceContext]: what a single stage saw,
// produced, and how long it took.
type StageRecord struct {
	Stage            string
	Input            any
	Output           any
	Metadata         map[string]any
	ProcessingTimeMs int64
}

// TraceContext accumulates [StageRecord]s across one request's pipeline run.
// Passing a nil *TraceContext through the engine's entry points disables
// tracing entirely; every recording call on a nil receiver is a no-op.
//
// Not safe for concurrent use: recording appends without locking, so a trace
// is used by one request whose stages run sequentially.
type TraceContext struct {
	records []StageRecord
}

// NewTraceContext creates an empty trace.
func NewTraceContext() *TraceContext {
	return &TraceContext{}
}

// Records returns the accumulated stage records in execution order.
func (t *TraceContext) Records() []StageRecord {
	if t == nil {
		return nil
	}
	return append([]StageRecord(nil), t.records...)
}

// record appends one stage's trace entry. No-op when t is nil, so every
// call site can unconditionally call trace.record(...) without a nil check.
func (t *TraceContext) record(stage string, input, output any, metadata map[string]any, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.records = append(t.records, StageRecord{
		Stage:            stage,
		Input:            elide(input),
		Output:           elide(output),
		Metadata:         metadata,
		ProcessingTimeMs: elapsed.Milliseconds(),
	})
}

// elide replaces oversize string/[]byte payloads with a sentinel so traces
// stay bounded regardless of how much audio or text flows through a stage.
func elide(v any) any {
	switch val := v.(type) {
	case string:
		if len(val) > maxTracePayloadBytes {
			return elidedSentinel
		}
	case []byte:
		if len(val) > maxTracePayloadBytes {
			return elidedSentinel
		}
	}
	return v
}
