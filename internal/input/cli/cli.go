// Package cli implements a line-oriented stdin [input.Source]: always
// available, never fails to start, terminates its output channel when
// stdin reaches EOF or its context is cancelled.
package cli

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/irenevoice/irenecore/internal/input"
)

// Source reads newline-terminated commands from an io.Reader (normally
// os.Stdin) and emits them as text [input.Data].
type Source struct {
	reader io.Reader

	mu        sync.Mutex
	listening bool
}

// New creates a CLI source reading from r.
func New(r io.Reader) *Source {
	return &Source{reader: r}
}

func (s *Source) Type() string { return "cli" }

func (s *Source) IsAvailable() bool { return true }

func (s *Source) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Source) Settings() map[string]any {
	return map[string]any{"type": "cli"}
}

func (s *Source) StartListening(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
	return nil
}

func (s *Source) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	return nil
}

// Listen scans s.reader line by line, emitting one [input.Data] per line.
// The returned channel closes when the reader hits EOF, returns an error, or
// ctx is cancelled.
func (s *Source) Listen(ctx context.Context) (<-chan input.Data, error) {
	out := make(chan input.Data)
	scanner := bufio.NewScanner(s.reader)

	go func() {
		defer close(out)
		lines := make(chan string)
		var done atomic.Bool

		go func() {
			defer close(lines)
			for scanner.Scan() {
				if done.Load() {
					return
				}
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				done.Store(true)
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				select {
				case out <- input.Data{Text: line}:
				case <-ctx.Done():
					done.Store(true)
					return
				}
			}
		}
	}()

	return out, nil
}

var _ input.Source = (*Source)(nil)
