package input_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irenevoice/irenecore/internal/input"
)

type fakeSource struct {
	mu        sync.Mutex
	name      string
	available bool
	listening bool
	items     []input.Data
	started   int
	stopped   int
}

func (f *fakeSource) Type() string      { return f.name }
func (f *fakeSource) IsAvailable() bool { return f.available }
func (f *fakeSource) IsListening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}
func (f *fakeSource) Settings() map[string]any { return map[string]any{"type": f.name} }

func (f *fakeSource) StartListening(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	f.listening = true
	return nil
}

func (f *fakeSource) StopListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	f.listening = false
	return nil
}

func (f *fakeSource) Listen(ctx context.Context) (<-chan input.Data, error) {
	out := make(chan input.Data)
	go func() {
		defer close(out)
		for _, item := range f.items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

var _ input.Source = (*fakeSource)(nil)

func TestManager_MultiplexesNamedSources(t *testing.T) {
	m := input.NewManager()
	a := &fakeSource{name: "a", available: true, items: []input.Data{{Text: "hello"}}}
	b := &fakeSource{name: "b", available: true, items: []input.Data{{Text: "world"}}}
	m.Register("a", a)
	m.Register("b", b)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx, nil))

	seen := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case named := <-m.Queue():
			seen[named.Source] = named.Data.Text
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for item")
		}
	}
	assert.Equal(t, "hello", seen["a"])
	assert.Equal(t, "world", seen["b"])

	cancel()
	m.Close()
	assert.Equal(t, 1, a.stopped)
	assert.Equal(t, 1, b.stopped)
}

func TestManager_SkipsUnavailableSource(t *testing.T) {
	m := input.NewManager()
	dead := &fakeSource{name: "dead", available: false}
	m.Register("dead", dead)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := m.Start(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, dead.started)
}

func TestManager_EnabledFilterRestrictsStartedSources(t *testing.T) {
	m := input.NewManager()
	a := &fakeSource{name: "a", available: true}
	b := &fakeSource{name: "b", available: true}
	m.Register("a", a)
	m.Register("b", b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx, map[string]bool{"a": true}))

	assert.Equal(t, 1, a.started)
	assert.Equal(t, 0, b.started)
	m.Close()
}

func TestManager_StopSourceCancelsOnlyThatSource(t *testing.T) {
	m := input.NewManager()
	a := &fakeSource{name: "a", available: true}
	m.Register("a", a)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx, nil))
	m.StopSource("a")

	assert.Eventually(t, func() bool { return a.stopped == 1 }, time.Second, 5*time.Millisecond)
}
