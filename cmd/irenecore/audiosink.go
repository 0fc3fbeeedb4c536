package main

import (
	"context"
	"sync"

	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/audio/mixer"
)

// platformSink adapts an [audio.Connection]'s write-only OutputStream into
// the [workflow.AudioSink] the engine speaks synthesized audio through. Each
// Play call is scheduled through a [mixer.PriorityMixer] rather than written
// straight to the connection: concurrent sessions sharing one audio platform
// connection (several Discord members, or several web callers, talking to
// the assistant at once) get their replies sequenced with a natural gap
// between them instead of interleaved on the wire.
//
// Grounded on pkg/audio/discord's documented contract: the channel is
// buffered, writes must not block indefinitely, and the caller (not the
// platform) owns stopping writes on shutdown.
type platformSink struct {
	out chan<- audio.AudioFrame
	mix *mixer.PriorityMixer

	mu         sync.Mutex
	sampleRate int
	channels   int
}

func newPlatformSink(out chan<- audio.AudioFrame) *platformSink {
	s := &platformSink{out: out}
	s.mix = mixer.New(s.deliver)
	return s
}

// deliver is the mixer's output callback: it rewraps a scheduled chunk back
// into an [audio.AudioFrame] using the format of the segment that produced
// it and forwards it to the platform connection.
func (s *platformSink) deliver(chunk []byte) {
	s.mu.Lock()
	rate, channels := s.sampleRate, s.channels
	s.mu.Unlock()
	s.out <- audio.AudioFrame{Data: chunk, SampleRate: rate, Channels: channels}
}

// Play enqueues frame as a single-chunk [audio.AudioSegment] at the default
// priority. ctx cancellation is not propagated past the enqueue: once
// accepted, a reply is handed to the mixer's own scheduling, matching the
// mixer's documented "safe for concurrent use" contract rather than the
// engine's per-call context lifetime.
func (s *platformSink) Play(ctx context.Context, frame audio.AudioFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sampleRate = frame.SampleRate
	s.channels = frame.Channels
	s.mu.Unlock()

	chunks := make(chan []byte, 1)
	chunks <- frame.Data
	close(chunks)

	s.mix.Enqueue(&audio.AudioSegment{
		Audio:      chunks,
		SampleRate: frame.SampleRate,
		Channels:   frame.Channels,
	}, 0)
	return nil
}

// Close stops the sink's mixer dispatch goroutine. Called from the "audio"
// status component's shutdown hook alongside the platform connection's own
// Disconnect.
func (s *platformSink) Close() {
	s.mix.Close()
}
