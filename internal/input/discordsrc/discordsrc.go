// Package discordsrc adapts a Discord voice channel to the [input.Source]
// contract, demultiplexing every participant's audio stream into the shared
// input queue alongside CLI, microphone, and web sources.
//
// Grounded on pkg/audio/platform.go's [audio.Platform]/[audio.Connection]
// contract and pkg/audio/discord/platform.go's discordgo-backed
// implementation — StartListening/StopListening here is exactly
// Connect/Disconnect scoped to the [input.Source] lifecycle, and Listen fans
// in the per-participant channels [audio.Connection.InputStreams] exposes.
package discordsrc

import (
	"context"
	"sync"

	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/input"
	"github.com/irenevoice/irenecore/pkg/audio"
)

// Source joins one Discord voice channel and emits every participant's
// incoming audio as [input.Data].
type Source struct {
	platform  audio.Platform
	channelID string

	mu        sync.Mutex
	conn      audio.Connection
	listening bool
}

// New creates a Discord voice-channel source. platform is nil when no
// Discord bot session is configured, in which case IsAvailable reports
// false.
func New(platform audio.Platform, channelID string) *Source {
	return &Source{platform: platform, channelID: channelID}
}

func (s *Source) Type() string { return "discord" }

func (s *Source) IsAvailable() bool { return s.platform != nil && s.channelID != "" }

func (s *Source) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Source) Settings() map[string]any {
	return map[string]any{"type": "discord", "channel_id": s.channelID}
}

func (s *Source) StartListening(ctx context.Context) error {
	if !s.IsAvailable() {
		return core.NewError(core.KindComponentNotAvailable, "discord platform not configured", nil)
	}
	conn, err := s.platform.Connect(ctx, s.channelID)
	if err != nil {
		return core.NewError(core.KindComponentNotAvailable, "connecting to discord voice channel", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.listening = true
	s.mu.Unlock()
	return nil
}

func (s *Source) StopListening() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.listening = false
	s.mu.Unlock()
	if conn != nil {
		return conn.Disconnect()
	}
	return nil
}

// Listen fans in every participant's audio channel, re-fanning as
// participants join or leave, until the connection is disconnected or ctx is
// cancelled.
func (s *Source) Listen(ctx context.Context) (<-chan input.Data, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, core.NewError(core.KindComponentNotAvailable, "discord source not started", nil)
	}

	out := make(chan input.Data)
	var wg sync.WaitGroup
	var fanMu sync.Mutex
	attached := make(map[string]bool)

	attach := func(userID string, ch <-chan audio.AudioFrame) {
		fanMu.Lock()
		if attached[userID] {
			fanMu.Unlock()
			return
		}
		attached[userID] = true
		fanMu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case frame, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- input.Data{Audio: &frame}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	for userID, ch := range conn.InputStreams() {
		attach(userID, ch)
	}
	conn.OnParticipantChange(func(ev audio.Event) {
		if ev.Type == audio.EventJoin {
			for userID, ch := range conn.InputStreams() {
				attach(userID, ch)
			}
		}
	})

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(out)
	}()

	return out, nil
}

var _ input.Source = (*Source)(nil)
