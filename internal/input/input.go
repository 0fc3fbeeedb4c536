// Package input implements the input manager and the InputSource contract
// (spec §4.2): zero or more lazily-consumed, cancellable input streams
// (text or audio) multiplexed into one shared queue the workflow driver
// reads from. The queue is a channel buffered to 256 items; while it is
// full, each source's forwarding goroutine blocks until the driver reads.
//
// Grounded on internal/engine/cascade/cascade.go's goroutine-per-stream,
// channel-based producer/consumer shape and internal/discord/bot.go's
// scoped start/stop resource-acquisition pattern, generalized from a single
// voice engine's audio intake to an arbitrary multiplexed set of named
// sources.
package input

import (
	"context"
	"fmt"
	"sync"

	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/pkg/audio"
)

// Data is a single item produced by an [Source]: either a text command or a
// captured audio frame, never both.
type Data struct {
	Text  string
	Audio *audio.AudioFrame
}

// IsText reports whether this item carries text rather than audio.
func (d Data) IsText() bool { return d.Audio == nil }

// Named pairs a [Data] item with the name of the source that produced it,
// the unit forwarded through the [Manager]'s shared queue.
type Named struct {
	Source string
	Data   Data
}

// Source is the contract every input source implements: cli, microphone,
// web, and Discord voice channels alike.
//
// Listen returns a channel of [Data] that the caller ranges over; the
// channel closes when the source stops or its context is cancelled.
// StartListening/StopListening scope OS resource acquisition (an audio
// device, a socket) — implementations must guarantee release on every exit
// path, including a context cancellation mid-stream.
type Source interface {
	Listen(ctx context.Context) (<-chan Data, error)
	StartListening(ctx context.Context) error
	StopListening() error
	IsAvailable() bool
	IsListening() bool
	Type() string
	Settings() map[string]any
}

// Manager owns a named set of [Source]s and multiplexes every started
// source's output into one shared queue (buffered to 256 items; forwarding
// blocks while it is full).
//
// Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	sources map[string]Source
	cancels map[string]context.CancelFunc
	queue   chan Named
	wg      sync.WaitGroup
}

// NewManager creates an empty Manager. Register sources with [Manager.Register]
// before calling [Manager.Start].
func NewManager() *Manager {
	return &Manager{
		sources: make(map[string]Source),
		cancels: make(map[string]context.CancelFunc),
		queue:   make(chan Named, 256),
	}
}

// Register adds a named source. Call before [Manager.Start]; registering
// after sources are already running has no effect on already-started
// sources.
func (m *Manager) Register(name string, s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = s
}

// Queue returns the shared channel every started source's items are
// forwarded onto, tagged with the producing source's name.
func (m *Manager) Queue() <-chan Named { return m.queue }

// Start begins listening on every registered, available source. A source
// that is unavailable or fails to start is skipped and the remaining
// sources are still started — one dead input device must not prevent the
// others from starting. Start returns the first such error, or nil.
func (m *Manager) Start(ctx context.Context, enabled map[string]bool) error {
	m.mu.Lock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		if enabled == nil || enabled[name] {
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := m.startSource(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) startSource(ctx context.Context, name string) error {
	m.mu.Lock()
	s, ok := m.sources[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("input: unknown source %q", name)
	}
	if !s.IsAvailable() {
		return core.NewError(core.KindComponentNotAvailable, "input source "+name+" is not available", nil)
	}

	sourceCtx, cancel := context.WithCancel(ctx)
	if err := s.StartListening(sourceCtx); err != nil {
		cancel()
		return fmt.Errorf("input: start source %q: %w", name, err)
	}

	items, err := s.Listen(sourceCtx)
	if err != nil {
		cancel()
		_ = s.StopListening()
		return fmt.Errorf("input: listen on source %q: %w", name, err)
	}

	m.mu.Lock()
	m.cancels[name] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer s.StopListening()
		for {
			select {
			case <-sourceCtx.Done():
				return
			case item, ok := <-items:
				if !ok {
					return
				}
				select {
				case m.queue <- Named{Source: name, Data: item}:
				case <-sourceCtx.Done():
					return
				}
			}
		}
	}()
	return nil
}

// StopSource cancels a single running source's consumer. It returns without
// waiting for that consumer to finish; only [Manager.Close] waits for
// consumers to terminate.
func (m *Manager) StopSource(name string) {
	m.mu.Lock()
	cancel, ok := m.cancels[name]
	delete(m.cancels, name)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels every running source's consumer, waits for clean
// termination, and closes the shared queue.
func (m *Manager) Close() {
	m.mu.Lock()
	for name, cancel := range m.cancels {
		cancel()
		delete(m.cancels, name)
	}
	m.mu.Unlock()
	m.wg.Wait()
	close(m.queue)
}

// Source returns the registered source under name, if any.
func (m *Manager) Source(name string) (Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[name]
	return s, ok
}
