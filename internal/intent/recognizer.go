package intent

import (
	"context"
	"fmt"

	"github.com/irenevoice/irenecore/internal/contextmgr"
)

// NLUProvider is a single natural-language-understanding backend: it turns
// raw text into an [Intent] with an associated confidence.
type NLUProvider interface {
	Name() string
	Recognize(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext) (Intent, error)
}

// Recognizer holds an ordered set of [NLUProvider]s and delegates to the
// configured default, enforcing a global confidence floor. Below that floor
// (or on provider failure) it falls back to [GeneralConversationIntent] with
// the original text preserved as an entity, so the pipeline always produces
// a routable intent.
type Recognizer struct {
	providers           []NLUProvider
	defaultIndex         int
	confidenceThreshold  float64
}

// NewRecognizer creates a Recognizer. defaultName must match the Name() of
// one of providers; confidenceThreshold is the global floor (e.g. 0.5) below
// which a recognized intent is discarded in favor of the conversational
// fallback.
func NewRecognizer(providers []NLUProvider, defaultName string, confidenceThreshold float64) (*Recognizer, error) {
	idx := -1
	for i, p := range providers {
		if p.Name() == defaultName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("intent: default NLU provider %q not found among %d registered providers", defaultName, len(providers))
	}
	return &Recognizer{providers: providers, defaultIndex: idx, confidenceThreshold: confidenceThreshold}, nil
}

// Recognize delegates to the default provider. On error or low confidence it
// returns the conversational fallback rather than propagating the failure,
// since an unrecognized utterance is not itself an error condition.
func (r *Recognizer) Recognize(ctx context.Context, text string, convCtx *contextmgr.UnifiedConversationContext) Intent {
	if len(r.providers) > 0 {
		provider := r.providers[r.defaultIndex]
		result, err := provider.Recognize(ctx, text, convCtx)
		if err == nil && result.Confidence >= r.confidenceThreshold {
			return result
		}
	}
	return fallbackIntent(text)
}

func fallbackIntent(text string) Intent {
	return Intent{
		Name:       GeneralConversationIntent,
		Domain:     "conversation",
		Action:     "general",
		Text:       text,
		Confidence: 1.0,
		Entities:   map[string]any{"text": text},
	}
}
