// Package energy implements a model-free [workflow.VoiceTrigger]: it opens
// the gate on sustained energy above a threshold rather than matching a
// specific wake phrase. It is the default voice-trigger backend for
// deployments with no wake-word model file configured, grounded on
// pkg/audio/vad's RMS-energy detector (the same state machine the default
// VAD engine uses, reused here for the same model-free reason).
package energy

import (
	"context"
	"fmt"

	"github.com/irenevoice/irenecore/pkg/audio"
	audiovad "github.com/irenevoice/irenecore/pkg/audio/vad"
	providervad "github.com/irenevoice/irenecore/pkg/provider/vad"
)

// Config configures a Trigger. FrameDurationMs must match the duration the
// frames passed to Detect actually represent.
type Config struct {
	SampleRate       int
	EnergyThreshold  float64
	Sensitivity      float64
	FrameDurationMs  int
	VoiceDurationMs  int
}

// Trigger is a [workflow.VoiceTrigger] that reports the gate open the frame
// the underlying energy detector's state machine transitions into Voice.
// Not safe for concurrent Detect calls on the same instance — one Trigger
// per audio stream, matching [providervad.SessionHandle]'s contract.
type Trigger struct {
	session *audiovad.Session
}

// NewTrigger creates a Trigger in the Silence state.
func NewTrigger(cfg Config) *Trigger {
	session := audiovad.NewSession(audiovad.Config{
		SampleRate:        cfg.SampleRate,
		EnergyThreshold:   cfg.EnergyThreshold,
		Sensitivity:       cfg.Sensitivity,
		FrameDurationMs:   cfg.FrameDurationMs,
		VoiceDurationMs:   cfg.VoiceDurationMs,
		SilenceDurationMs: cfg.FrameDurationMs * 10,
	})
	return &Trigger{session: session}
}

// Detect implements [workflow.VoiceTrigger]. It reports detected=true, with
// confidence derived from the frame's RMS energy, on the single frame where
// the detector transitions from silence into voice — once per utterance,
// not for every subsequent voice frame.
func (t *Trigger) Detect(_ context.Context, frame audio.AudioFrame) (bool, float64, error) {
	event, err := t.session.ProcessFrame(frame.Data)
	if err != nil {
		return false, 0, fmt.Errorf("voicetrigger/energy: %w", err)
	}
	opened := event.Type == providervad.VADSpeechStart
	return opened, event.Probability, nil
}

// Reset implements [provider.Resettable], clearing accumulated detector
// state between utterances or after a failure.
func (t *Trigger) Reset() { t.session.Reset() }
