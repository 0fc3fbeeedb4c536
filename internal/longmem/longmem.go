// Package longmem wraps the pkg/memory three-layer store with an
// embeddings.Provider to give the conversation.general fallback handler
// durable, cross-session recall (spec §4.6 "long-term memory").
//
// It composes [memory.SessionStore] (L1 transcript log) and
// [memory.SemanticIndex] (L2 vector index) rather than depending on the
// pkg/memory/postgres concrete type, so a future non-Postgres backend can be
// substituted without touching this package.
package longmem

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/irenevoice/irenecore/pkg/memory"
	"github.com/irenevoice/irenecore/pkg/provider/embeddings"
)

// Store is the long-term memory facade used by the conversation.general
// handler: it records each turn to L1, embeds and indexes it into L2, and
// recalls semantically similar prior turns on demand.
type Store struct {
	sessions memory.SessionStore
	semantic memory.SemanticIndex
	embedder embeddings.Provider
	topK     int
}

// New builds a Store from already-constructed L1/L2 implementations and an
// embeddings provider. topK bounds how many prior chunks Recall returns; a
// value <= 0 defaults to 5.
func New(sessions memory.SessionStore, semantic memory.SemanticIndex, embedder embeddings.Provider, topK int) *Store {
	if topK <= 0 {
		topK = 5
	}
	return &Store{sessions: sessions, semantic: semantic, embedder: embedder, topK: topK}
}

// Remember appends entry to the session's L1 log and, when Text is
// non-empty, embeds it and upserts it into the L2 semantic index under
// sessionID. A failure to embed/index is returned as an error but the L1
// write is not rolled back — the transcript log is the durable source of
// truth; the semantic index is a best-effort accelerator over it.
func (s *Store) Remember(ctx context.Context, sessionID string, entry memory.TranscriptEntry) error {
	if err := s.sessions.WriteEntry(ctx, sessionID, entry); err != nil {
		return fmt.Errorf("longmem: write transcript entry: %w", err)
	}
	if entry.Text == "" {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, entry.Text)
	if err != nil {
		return fmt.Errorf("longmem: embed turn: %w", err)
	}
	chunk := memory.Chunk{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Content:   entry.Text,
		Embedding: vec,
		SpeakerID: entry.SpeakerID,
		Timestamp: entry.Timestamp,
	}
	if chunk.Timestamp.IsZero() {
		chunk.Timestamp = time.Now()
	}
	if err := s.semantic.IndexChunk(ctx, chunk); err != nil {
		return fmt.Errorf("longmem: index chunk: %w", err)
	}
	return nil
}

// Recall embeds query and returns the topK most semantically similar chunks
// previously remembered, most similar first. Results are not scoped to a
// single session: a general-conversation handler benefits from recall
// across the caller's full history, not just the current session.
func (s *Store) Recall(ctx context.Context, query string) ([]memory.ChunkResult, error) {
	if query == "" {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("longmem: embed query: %w", err)
	}
	results, err := s.semantic.Search(ctx, vec, s.topK, memory.ChunkFilter{})
	if err != nil {
		return nil, fmt.Errorf("longmem: search: %w", err)
	}
	return results, nil
}
