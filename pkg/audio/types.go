package audio

import "time"

// Encoding tags the byte layout of an AudioFrame's payload.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm16"
	EncodingOpus  Encoding = "opus"
)

// AudioFrame represents a single frame of audio data flowing through the pipeline.
// Frames are the atomic unit of audio transport — captured from input streams,
// processed by VAD, encoded/decoded by codecs, and played through output streams.
//
// AudioFrame is immutable by convention: once constructed, a frame's fields
// are never mutated in place. Stages that transform a frame (resampling, VAD
// normalization) construct and return a new value; ownership transfers by
// value along the pipeline.
type AudioFrame struct {
	// PCM audio data. Sample rate and channel count are determined by the pipeline config.
	Data []byte

	// SampleRate in Hz (e.g., 48000 for Discord Opus, 16000 for STT).
	SampleRate int

	// Channels: 1 for mono (STT input), 2 for stereo (Discord output).
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration

	// Encoding tags the byte layout of Data. Defaults to EncodingPCM16 when
	// left zero-valued, since that is the overwhelmingly common case for the
	// providers in this tree.
	Encoding Encoding

	// Metadata carries free-form, stage-attached annotations such as
	// "resampling_applied", "cache_hit", or "voice_duration_ms". Nil unless a
	// stage has something to record. Readers must not assume any key is
	// present.
	Metadata map[string]any
}

// WithMetadata returns a copy of f with key set to value in its metadata map.
// The original frame's map is never mutated, preserving the pipeline's
// no-mutation-after-creation invariant.
func (f AudioFrame) WithMetadata(key string, value any) AudioFrame {
	meta := make(map[string]any, len(f.Metadata)+1)
	for k, v := range f.Metadata {
		meta[k] = v
	}
	meta[key] = value
	f.Metadata = meta
	return f
}

// EncodingOrDefault returns f.Encoding, substituting EncodingPCM16 when unset.
func (f AudioFrame) EncodingOrDefault() Encoding {
	if f.Encoding == "" {
		return EncodingPCM16
	}
	return f.Encoding
}
