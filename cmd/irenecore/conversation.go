package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/longmem"
	"github.com/irenevoice/irenecore/pkg/memory"
	"github.com/irenevoice/irenecore/pkg/provider/llm"
	"github.com/irenevoice/irenecore/pkg/types"
)

// conversationHandler implements [intent.Handler] for
// [intent.GeneralConversationIntent]: the catch-all the [intent.Recognizer]
// emits when no NLU provider is confident enough to match a domain handler
// (spec §4.5 "low-confidence fallback"). It answers directly from the LLM,
// optionally grounding the reply in prior turns recalled from long-term
// memory (spec §4.6) when one is configured.
//
// Grounded on cmd/irenecore/llmenrich.go's llmEnricher for the
// llm.Provider.Complete call shape.
type conversationHandler struct {
	provider llm.Provider
	memory   *longmem.Store // nil when long_term_memory is disabled
}

func newConversationHandler(provider llm.Provider, mem *longmem.Store) *conversationHandler {
	return &conversationHandler{provider: provider, memory: mem}
}

const conversationSystemPrompt = "You are a helpful voice assistant. Answer the user's question or " +
	"respond to their remark directly and conversationally, in a few sentences at most. " +
	"If prior conversation context is supplied, use it only when relevant."

func (h *conversationHandler) CanHandle(i intent.Intent) bool {
	return i.Name == intent.GeneralConversationIntent
}

func (h *conversationHandler) Execute(ctx *contextmgr.UnifiedConversationContext, i intent.Intent) (intent.Result, error) {
	text, _ := i.Entities["text"].(string)
	if text == "" {
		text = i.Text
	}
	if text == "" {
		return intent.Result{Success: false, Text: "I didn't catch anything to respond to."}, nil
	}

	background := context.Background()
	var recalled string
	if h.memory != nil {
		if results, err := h.memory.Recall(background, text); err == nil && len(results) > 0 {
			recalled = formatRecalled(results)
		}
	}

	messages := make([]types.Message, 0, len(i.Entities)+1)
	for _, turn := range ctx.History() {
		role := "user"
		if turn.IsNPC {
			role = "assistant"
		}
		messages = append(messages, types.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, types.Message{Role: "user", Content: text})

	systemPrompt := conversationSystemPrompt
	if recalled != "" {
		systemPrompt += "\n\nRelevant prior context:\n" + recalled
	}

	resp, err := h.provider.Complete(background, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  0.5,
		MaxTokens:    300,
	})
	if err != nil {
		return intent.Result{}, fmt.Errorf("conversation.general: %w", err)
	}

	if h.memory != nil {
		_ = h.memory.Remember(background, i.SessionID, memory.TranscriptEntry{
			SpeakerID: "user",
			Text:      text,
		})
		_ = h.memory.Remember(background, i.SessionID, memory.TranscriptEntry{
			SpeakerID: "assistant",
			IsNPC:     true,
			Text:      resp.Content,
		})
	}

	return intent.Result{
		Text:        resp.Content,
		Success:     true,
		ShouldSpeak: true,
	}, nil
}

func formatRecalled(results []memory.ChunkResult) string {
	var b strings.Builder
	for idx, r := range results {
		if idx > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(r.Chunk.Content)
	}
	return b.String()
}
