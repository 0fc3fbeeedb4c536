// Package web implements the web [input.Source]: text commands or binary
// PCM frames accepted over WebSocket connections terminated by
// internal/webapi, handed off here for multiplexing alongside every other
// input source.
//
// Grounded on pkg/provider/stt/deepgram/deepgram.go's coder/websocket usage
// (message-type discrimination between websocket.MessageText and
// websocket.MessageBinary) — the client side there, the server side here.
package web

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irenevoice/irenecore/internal/input"
	"github.com/irenevoice/irenecore/pkg/audio"
)

// Config describes the PCM geometry expected from binary WebSocket frames.
type Config struct {
	SampleRate int
	Channels   int
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	return c
}

// Source is fed by internal/webapi's WebSocket handlers via
// [Source.PushText] and [Source.PushAudio] as
// connections send text commands or binary PCM; it never dials out itself.
// Always available: the source is only registered when inputs.web is
// enabled, and config validation requires system.web_api_enabled alongside
// it.
type Source struct {
	cfg Config

	items chan input.Data
	start time.Time

	listening atomic.Bool
	mu        sync.Mutex
}

// New creates a web source accepting PCM described by cfg.
func New(cfg Config) *Source {
	return &Source{cfg: cfg.withDefaults(), items: make(chan input.Data, 64)}
}

func (s *Source) Type() string { return "web" }

func (s *Source) IsAvailable() bool { return true }

func (s *Source) IsListening() bool { return s.listening.Load() }

func (s *Source) Settings() map[string]any {
	return map[string]any{
		"type":        "web",
		"sample_rate": s.cfg.SampleRate,
		"channels":    s.cfg.Channels,
	}
}

func (s *Source) StartListening(context.Context) error {
	s.mu.Lock()
	s.start = time.Now()
	s.mu.Unlock()
	s.listening.Store(true)
	return nil
}

func (s *Source) StopListening() error {
	s.listening.Store(false)
	return nil
}

// Listen drains items pushed via [Source.PushText] and [Source.PushAudio]
// until ctx is cancelled.
func (s *Source) Listen(ctx context.Context) (<-chan input.Data, error) {
	out := make(chan input.Data)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-s.items:
				if !ok {
					return
				}
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// PushText enqueues a text command received over a WebSocket text frame.
func (s *Source) PushText(text string) {
	if !s.listening.Load() {
		return
	}
	select {
	case s.items <- input.Data{Text: text}:
	default:
	}
}

// PushAudio enqueues raw PCM16 received over a WebSocket binary frame.
func (s *Source) PushAudio(pcm []byte) {
	if !s.listening.Load() {
		return
	}
	s.mu.Lock()
	elapsed := time.Since(s.start)
	s.mu.Unlock()
	frame := audio.AudioFrame{
		Data:       pcm,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Encoding:   audio.EncodingPCM16,
		Timestamp:  elapsed,
	}
	select {
	case s.items <- input.Data{Audio: &frame}:
	default:
	}
}

var _ input.Source = (*Source)(nil)
