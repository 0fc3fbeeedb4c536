package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irenevoice/irenecore/internal/contextmgr"
)

type stubHandler struct {
	name     string
	domains  []string
	commands []string
}

func (s *stubHandler) CanHandle(Intent) bool { return true }
func (s *stubHandler) Execute(*contextmgr.UnifiedConversationContext, Intent) (Result, error) {
	return Result{Success: true, Text: s.name}, nil
}
func (s *stubHandler) SupportedDomains() []string             { return s.domains }
func (s *stubHandler) SupportedContextualCommands() []string  { return s.commands }

func TestRegistry_ExactMatch(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{name: "timer-set"}
	r.Register("timer.set", h)

	got, ok := r.Resolve("timer.set")
	require.True(t, ok)
	assert.Same(t, Handler(h), got)
}

func TestRegistry_WildcardMatch(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{name: "weather-any"}
	r.Register("weather.*", h)

	got, ok := r.Resolve("weather.forecast")
	require.True(t, ok)
	assert.Same(t, Handler(h), got)
}

func TestRegistry_SingleCharWildcard(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{name: "timer-q"}
	r.Register("timer.?", h)

	_, ok := r.Resolve("timer.x")
	assert.True(t, ok)

	_, ok = r.Resolve("timer.xy")
	assert.False(t, ok)
}

func TestRegistry_DomainFallback(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{name: "weather-fallback"}
	r.Register("weather", h)

	got, ok := r.Resolve("weather.anything")
	require.True(t, ok)
	assert.Same(t, Handler(h), got)
}

func TestRegistry_ExactBeatsWildcardBeatsFallback(t *testing.T) {
	r := NewRegistry()
	exact := &stubHandler{name: "exact"}
	wildcard := &stubHandler{name: "wildcard"}
	fallback := &stubHandler{name: "fallback"}

	r.Register("weather", fallback)
	r.Register("weather.*", wildcard)
	r.Register("weather.today", exact)

	got, _ := r.Resolve("weather.today")
	assert.Same(t, Handler(exact), got)

	got, _ = r.Resolve("weather.tomorrow")
	assert.Same(t, Handler(wildcard), got)

	got, _ = r.Resolve("weather.unmatched.extra")
	assert.Same(t, Handler(fallback), got)
}

func TestRegistry_NoMatch(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve("nonexistent.intent")
	assert.False(t, ok)
}

func TestRegistry_ContextualCommandIndex(t *testing.T) {
	r := NewRegistry()
	audio := &stubHandler{name: "audio", domains: []string{"audio"}, commands: []string{"stop", "pause"}}
	timer := &stubHandler{name: "timer", domains: []string{"timer"}, commands: []string{"stop"}}
	r.Register("audio.play", audio)
	r.Register("timer.set", timer)

	stopHandlers := r.HandlersForContextualCommand("stop")
	assert.Len(t, stopHandlers, 2)

	pauseHandlers := r.HandlersForContextualCommand("pause")
	assert.Len(t, pauseHandlers, 1)
}
