// Package mic implements the microphone [input.Source]: fixed-size PCM
// frames at a configured sample rate, captured from a local audio capture
// device.
//
// No audio capture library is part of the teacher's dependency surface (the
// teacher only ever receives audio over a network voice platform — see
// pkg/audio/discord — never from a local device), so this package defines a
// narrow [Device] contract an actual capture backend (PortAudio, ALSA,
// CoreAudio bindings, …) plugs into, and fails the spec-mandated way
// (core.KindComponentNotAvailable) when none is wired.
package mic

import (
	"context"
	"sync"
	"time"

	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/input"
	"github.com/irenevoice/irenecore/pkg/audio"
)

// Device is the narrow capture contract a platform-specific microphone
// binding implements. Open begins capture and returns a channel of raw PCM16
// frames; the channel closes when Close is called or the device fails.
type Device interface {
	Open(ctx context.Context, sampleRate, channels, frameSamples int) (<-chan []byte, error)
	Close() error
}

// Config describes the fixed frame geometry captured from the device.
type Config struct {
	SampleRate   int
	Channels     int
	FrameSamples int
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.FrameSamples == 0 {
		c.FrameSamples = 320 // 20ms @ 16kHz
	}
	return c
}

// Source captures fixed-size PCM frames from a [Device]. If dev is nil,
// IsAvailable reports false and StartListening fails with
// core.KindComponentNotAvailable, matching spec §4.2's required behavior
// when the audio library or device is missing.
type Source struct {
	dev Device
	cfg Config

	mu        sync.Mutex
	listening bool
}

// New creates a microphone source backed by dev. dev may be nil to model an
// environment with no capture backend wired.
func New(dev Device, cfg Config) *Source {
	return &Source{dev: dev, cfg: cfg.withDefaults()}
}

func (s *Source) Type() string { return "microphone" }

func (s *Source) IsAvailable() bool { return s.dev != nil }

func (s *Source) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Source) Settings() map[string]any {
	return map[string]any{
		"type":          "microphone",
		"sample_rate":   s.cfg.SampleRate,
		"channels":      s.cfg.Channels,
		"frame_samples": s.cfg.FrameSamples,
	}
}

func (s *Source) StartListening(context.Context) error {
	if s.dev == nil {
		return core.NewError(core.KindComponentNotAvailable, "no microphone device wired", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
	return nil
}

func (s *Source) StopListening() error {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
	if s.dev != nil {
		return s.dev.Close()
	}
	return nil
}

// Listen opens the device and wraps each captured PCM frame as an
// [input.Data] carrying an [audio.AudioFrame].
func (s *Source) Listen(ctx context.Context) (<-chan input.Data, error) {
	if s.dev == nil {
		return nil, core.NewError(core.KindComponentNotAvailable, "no microphone device wired", nil)
	}
	raw, err := s.dev.Open(ctx, s.cfg.SampleRate, s.cfg.Channels, s.cfg.FrameSamples)
	if err != nil {
		return nil, core.NewError(core.KindComponentNotAvailable, "opening microphone device", err)
	}

	out := make(chan input.Data)
	start := time.Now()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case pcm, ok := <-raw:
				if !ok {
					return
				}
				frame := audio.AudioFrame{
					Data:       pcm,
					SampleRate: s.cfg.SampleRate,
					Channels:   s.cfg.Channels,
					Encoding:   audio.EncodingPCM16,
					Timestamp:  time.Since(start),
				}
				select {
				case out <- input.Data{Audio: &frame}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ input.Source = (*Source)(nil)
