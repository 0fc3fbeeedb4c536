package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/workflow"
	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/provider/embeddings"
	"github.com/irenevoice/irenecore/pkg/provider/llm"
	"github.com/irenevoice/irenecore/pkg/provider/stt"
	"github.com/irenevoice/irenecore/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// domain component kind (spec §4.1 "namespaced entry-point registry"). It
// is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	asr          map[string]func(ProviderEntry) (stt.Provider, error)
	tts          map[string]func(ProviderEntry) (tts.Provider, error)
	audio        map[string]func(ProviderEntry) (audio.Platform, error)
	llm          map[string]func(ProviderEntry) (llm.Provider, error)
	nlu          map[string]func(ProviderEntry) (intent.NLUProvider, error)
	voiceTrigger map[string]func(ProviderEntry) (workflow.VoiceTrigger, error)
	embedding    map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:          make(map[string]func(ProviderEntry) (stt.Provider, error)),
		tts:          make(map[string]func(ProviderEntry) (tts.Provider, error)),
		audio:        make(map[string]func(ProviderEntry) (audio.Platform, error)),
		llm:          make(map[string]func(ProviderEntry) (llm.Provider, error)),
		nlu:          make(map[string]func(ProviderEntry) (intent.NLUProvider, error)),
		voiceTrigger: make(map[string]func(ProviderEntry) (workflow.VoiceTrigger, error)),
		embedding:    make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// RegisterASR registers an ASR (speech-to-text) provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterAudio registers a voice-channel/audio platform factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Platform, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterNLU registers an intent-recognition (NLU) provider factory under name.
func (r *Registry) RegisterNLU(name string, factory func(ProviderEntry) (intent.NLUProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nlu[name] = factory
}

// RegisterVoiceTrigger registers a wake-word provider factory under name.
func (r *Registry) RegisterVoiceTrigger(name string, factory func(ProviderEntry) (workflow.VoiceTrigger, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voiceTrigger[name] = factory
}

// RegisterEmbedding registers a text-embedding provider factory under name,
// used to build the long-term memory store's vector index (spec §4.6
// "semantic retrieval for the conversation.general fallback handler").
func (r *Registry) RegisterEmbedding(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedding[name] = factory
}

// CreateASR instantiates an ASR provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateASR(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio platform using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Platform, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateNLU instantiates an NLU provider using the factory registered under entry.Name.
func (r *Registry) CreateNLU(entry ProviderEntry) (intent.NLUProvider, error) {
	r.mu.RLock()
	factory, ok := r.nlu[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: nlu/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVoiceTrigger instantiates a voice-trigger provider using the factory registered under entry.Name.
func (r *Registry) CreateVoiceTrigger(entry ProviderEntry) (workflow.VoiceTrigger, error) {
	r.mu.RLock()
	factory, ok := r.voiceTrigger[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: voice_trigger/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbedding instantiates a text-embedding provider using the factory registered under entry.Name.
func (r *Registry) CreateEmbedding(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embedding[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embedding/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
