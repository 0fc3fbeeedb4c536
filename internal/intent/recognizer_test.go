package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irenevoice/irenecore/internal/contextmgr"
)

type stubNLU struct {
	name       string
	result     Intent
	err        error
}

func (s *stubNLU) Name() string { return s.name }
func (s *stubNLU) Recognize(context.Context, string, *contextmgr.UnifiedConversationContext) (Intent, error) {
	return s.result, s.err
}

func TestRecognizer_DelegatesToDefault(t *testing.T) {
	provider := &stubNLU{name: "primary", result: Intent{Name: "timer.set", Confidence: 0.9}}
	r, err := NewRecognizer([]NLUProvider{provider}, "primary", 0.5)
	require.NoError(t, err)

	got := r.Recognize(context.Background(), "set a timer", nil)
	assert.Equal(t, "timer.set", got.Name)
}

func TestRecognizer_LowConfidenceFallsBackToGeneral(t *testing.T) {
	provider := &stubNLU{name: "primary", result: Intent{Name: "timer.set", Confidence: 0.1}}
	r, err := NewRecognizer([]NLUProvider{provider}, "primary", 0.5)
	require.NoError(t, err)

	got := r.Recognize(context.Background(), "mumble", nil)
	assert.Equal(t, GeneralConversationIntent, got.Name)
	assert.Equal(t, "mumble", got.Entities["text"])
}

func TestRecognizer_ProviderErrorFallsBackToGeneral(t *testing.T) {
	provider := &stubNLU{name: "primary", err: fmt.Errorf("provider unavailable")}
	r, err := NewRecognizer([]NLUProvider{provider}, "primary", 0.5)
	require.NoError(t, err)

	got := r.Recognize(context.Background(), "hello", nil)
	assert.Equal(t, GeneralConversationIntent, got.Name)
}

func TestNewRecognizer_UnknownDefaultProvider(t *testing.T) {
	_, err := NewRecognizer([]NLUProvider{&stubNLU{name: "a"}}, "missing", 0.5)
	assert.Error(t, err)
}
