package main

import (
	"context"
	"fmt"

	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/pkg/provider/llm"
	"github.com/irenevoice/irenecore/pkg/types"
)

// llmEnricher adapts an [llm.Provider] to [workflow.LLMEnricher]: it asks
// the model to rephrase an already-successful intent result conversationally
// before TTS, passing the raw user utterance as context. Grounded on
// pkg/provider/llm.Provider.Complete's single-shot request/response shape —
// streaming isn't useful here since the engine needs the full text before
// handing it to TTS.
type llmEnricher struct {
	provider llm.Provider
}

func newLLMEnricher(provider llm.Provider) *llmEnricher {
	return &llmEnricher{provider: provider}
}

const enrichmentSystemPrompt = "You rephrase a voice assistant's action result into a brief, natural spoken reply. " +
	"Keep the same meaning and any numbers or facts exactly as given. Do not add new information."

func (e *llmEnricher) Enrich(ctx context.Context, convText string, result intent.Result) (intent.Result, error) {
	if !result.Success || result.Text == "" {
		return result, nil
	}
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: enrichmentSystemPrompt,
		Messages: []types.Message{
			{Role: "user", Content: fmt.Sprintf("User said: %q\nAction result: %q", convText, result.Text)},
		},
		Temperature: 0.3,
		MaxTokens:   120,
	})
	if err != nil {
		return result, fmt.Errorf("llm enrichment: %w", err)
	}
	if resp.Content == "" {
		return result, nil
	}
	result.Text = resp.Content
	return result, nil
}
