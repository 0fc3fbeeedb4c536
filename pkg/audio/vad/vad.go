// Package vad implements an RMS-energy voice activity detector: a
// [pkg/provider/vad.Engine] backend that needs no model file, suitable for
// the default deployment and for the vad_recording_test-style workflow that
// saves the segments it produces. Detection is a four-state hysteretic
// machine (silence, candidate voice, voice, candidate silence) rather than a
// naive threshold crossing, so brief energy dips inside a sentence don't
// fragment a single utterance into several segments.
package vad

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/irenevoice/irenecore/pkg/audio"
	providervad "github.com/irenevoice/irenecore/pkg/provider/vad"
)

// State is a position in the hysteretic voice-activity state machine.
type State int

const (
	StateSilence State = iota
	StateCandidateVoice
	StateVoice
	StateCandidateSilence
)

func (s State) String() string {
	switch s {
	case StateSilence:
		return "silence"
	case StateCandidateVoice:
		return "candidate_voice"
	case StateVoice:
		return "voice"
	case StateCandidateSilence:
		return "candidate_silence"
	default:
		return "unknown"
	}
}

// Config configures an RMS-energy VAD session.
type Config struct {
	// SampleRate of the PCM frames passed to ProcessFrame.
	SampleRate int

	// EnergyThreshold is the RMS energy, in the [0,1] normalized range,
	// above which a frame is considered candidate speech.
	EnergyThreshold float64

	// Sensitivity scales EnergyThreshold: effective threshold is
	// EnergyThreshold * (1 - Sensitivity*0.5), so higher sensitivity lowers
	// the bar for declaring speech. Range [0,1]; 0 leaves the threshold
	// unchanged.
	Sensitivity float64

	// VoiceDurationMs is how long energy must stay above threshold before
	// CandidateVoice promotes to Voice (suppresses transient clicks/pops).
	VoiceDurationMs int

	// SilenceDurationMs is how long energy must stay below threshold before
	// CandidateSilence demotes Voice back to Silence (tolerates brief
	// pauses mid-sentence without ending the segment).
	SilenceDurationMs int

	// FrameDurationMs is the duration represented by a single ProcessFrame
	// call; used to convert VoiceDurationMs/SilenceDurationMs into frame
	// counts.
	FrameDurationMs int
}

func (c Config) effectiveThreshold() float64 {
	t := c.EnergyThreshold * (1 - c.Sensitivity*0.5)
	if t < 0 {
		return 0
	}
	return t
}

func (c Config) framesFor(durationMs int) int {
	if c.FrameDurationMs <= 0 {
		return 1
	}
	n := durationMs / c.FrameDurationMs
	if n < 1 {
		return 1
	}
	return n
}

// Engine is a [providervad.Engine] backed by RMS energy detection.
type Engine struct{}

// NewEngine creates an Engine. It holds no state of its own — all detection
// state lives in the sessions it creates.
func NewEngine() *Engine { return &Engine{} }

// NewSession implements [providervad.Engine].
func (e *Engine) NewSession(cfg providervad.Config) (providervad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("vad: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.SilenceThreshold > cfg.SpeechThreshold {
		return nil, fmt.Errorf("vad: silence threshold (%v) must be <= speech threshold (%v)", cfg.SilenceThreshold, cfg.SpeechThreshold)
	}
	local := Config{
		SampleRate:        cfg.SampleRate,
		EnergyThreshold:   cfg.SpeechThreshold,
		FrameDurationMs:   cfg.FrameSizeMs,
		VoiceDurationMs:   cfg.FrameSizeMs * 2,
		SilenceDurationMs: cfg.FrameSizeMs * 10,
	}
	return NewSession(local), nil
}

// Session is a stateful RMS-energy VAD session for a single audio stream. It
// implements [providervad.SessionHandle].
type Session struct {
	cfg Config

	state           State
	consecutive     int // consecutive frames in the current candidate run
	lastRMS         float64
	closed          bool
}

// NewSession creates a Session in the Silence state.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, state: StateSilence}
}

// ProcessFrame implements [providervad.SessionHandle].
func (s *Session) ProcessFrame(frame []byte) (providervad.VADEvent, error) {
	if s.closed {
		return providervad.VADEvent{}, fmt.Errorf("vad: session closed")
	}
	rms := RMSEnergy(frame)
	s.lastRMS = rms

	threshold := s.cfg.effectiveThreshold()
	aboveThreshold := rms >= threshold

	prevState := s.state
	switch s.state {
	case StateSilence:
		if aboveThreshold {
			s.state = StateCandidateVoice
			s.consecutive = 1
			if s.consecutive >= s.cfg.framesFor(s.cfg.VoiceDurationMs) {
				s.state = StateVoice
			}
		}
	case StateCandidateVoice:
		if aboveThreshold {
			s.consecutive++
			if s.consecutive >= s.cfg.framesFor(s.cfg.VoiceDurationMs) {
				s.state = StateVoice
			}
		} else {
			s.state = StateSilence
			s.consecutive = 0
		}
	case StateVoice:
		if !aboveThreshold {
			s.state = StateCandidateSilence
			s.consecutive = 1
		}
	case StateCandidateSilence:
		if !aboveThreshold {
			s.consecutive++
			if s.consecutive >= s.cfg.framesFor(s.cfg.SilenceDurationMs) {
				s.state = StateSilence
				s.consecutive = 0
			}
		} else {
			s.state = StateVoice
			s.consecutive = 0
		}
	}

	return providervad.VADEvent{
		Type:        eventFor(prevState, s.state),
		Probability: clamp01(rms / maxFloat(threshold, 1e-9)),
	}, nil
}

func eventFor(prev, cur State) providervad.VADEventType {
	inVoice := func(s State) bool { return s == StateVoice || s == StateCandidateSilence }
	switch {
	case !inVoice(prev) && inVoice(cur):
		return providervad.VADSpeechStart
	case inVoice(prev) && !inVoice(cur):
		return providervad.VADSpeechEnd
	case inVoice(cur):
		return providervad.VADSpeechContinue
	default:
		return providervad.VADSilence
	}
}

// Reset implements [providervad.SessionHandle].
func (s *Session) Reset() {
	s.state = StateSilence
	s.consecutive = 0
	s.lastRMS = 0
}

// Close implements [providervad.SessionHandle].
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// State returns the session's current position in the hysteresis machine.
func (s *Session) State() State { return s.state }

// RMSEnergy computes the normalized (0.0-1.0) root-mean-square energy of a
// 16-bit little-endian mono PCM frame.
func RMSEnergy(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		normalized := float64(v) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}

// EstimateOptimalThreshold samples a short run of background-noise frames
// (captured before the user is expected to speak) and returns a threshold
// set a fixed margin above the observed noise floor, so environments with
// louder ambient noise get a correspondingly higher bar for declaring
// speech.
func EstimateOptimalThreshold(noiseFrames [][]byte) float64 {
	if len(noiseFrames) == 0 {
		return 0.02 // reasonable default for a quiet room
	}
	var sum float64
	for _, f := range noiseFrames {
		sum += RMSEnergy(f)
	}
	noiseFloor := sum / float64(len(noiseFrames))
	const margin = 2.5
	threshold := noiseFloor * margin
	if threshold < 0.01 {
		threshold = 0.01
	}
	return threshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// VoiceSegment is a contiguous run of frames the state machine classified as
// one spoken utterance, combined into a single [audio.AudioFrame].
type VoiceSegment struct {
	CombinedAudio   audio.AudioFrame
	TotalDuration   time.Duration
	ChunkCount      int
}

// CombineFrames concatenates frames (which must share sample rate, channel
// count, and encoding) into a single [VoiceSegment].
func CombineFrames(frames []audio.AudioFrame) VoiceSegment {
	if len(frames) == 0 {
		return VoiceSegment{}
	}
	total := 0
	var duration time.Duration
	for _, f := range frames {
		total += len(f.Data)
		duration += f.Timestamp
	}
	data := make([]byte, 0, total)
	for _, f := range frames {
		data = append(data, f.Data...)
	}
	first := frames[0]
	return VoiceSegment{
		CombinedAudio: audio.AudioFrame{
			Data:       data,
			SampleRate: first.SampleRate,
			Channels:   first.Channels,
			Encoding:   first.Encoding,
		},
		TotalDuration: duration,
		ChunkCount:    len(frames),
	}
}

// NormalizeForASR returns a copy of the segment whose audio has been
// gain-adjusted so its RMS matches targetRMS, preventing clipping-induced
// transcription errors when the captured segment is unusually loud or quiet.
// Only 16-bit mono PCM is supported; other encodings are returned unchanged.
func (v VoiceSegment) NormalizeForASR(targetRMS float64) VoiceSegment {
	if v.CombinedAudio.EncodingOrDefault() != audio.EncodingPCM16 || targetRMS <= 0 {
		return v
	}
	currentRMS := RMSEnergy(v.CombinedAudio.Data)
	if currentRMS <= 1e-9 {
		return v
	}
	gain := targetRMS / currentRMS
	const maxGain = 10.0
	if gain > maxGain {
		gain = maxGain
	}

	src := v.CombinedAudio.Data
	out := make([]byte, len(src))
	for i := 0; i+1 < len(src); i += 2 {
		v16 := int16(binary.LittleEndian.Uint16(src[i:]))
		scaled := float64(v16) * gain
		scaled = math.Max(-32768, math.Min(32767, scaled))
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(scaled)))
	}

	normalized := v
	normalized.CombinedAudio = v.CombinedAudio.WithMetadata("asr_normalized", true)
	normalized.CombinedAudio.Data = out
	return normalized
}
