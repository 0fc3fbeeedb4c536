// Package config provides the configuration schema, loader, validator, and
// provider registry for the Irene voice assistant core runtime.
package config

// CoreConfig is the root configuration structure (spec §3 "ConfigTree"),
// typically loaded from a YAML file with [Load] or [LoadFromReader]. Every
// subsection mirrors the spec's named config namespace so that validation
// error/warning messages can reference dotted paths like
// "workflows.unified_voice_assistant.asr_enabled" directly.
type CoreConfig struct {
	System       SystemConfig       `yaml:"system"`
	Inputs       InputsConfig       `yaml:"inputs"`
	Components   ComponentsConfig   `yaml:"components"`
	ASR          ASRConfig          `yaml:"asr"`
	TTS          TTSConfig          `yaml:"tts"`
	Audio        AudioConfig        `yaml:"audio"`
	LLM          LLMConfig          `yaml:"llm"`
	NLU          NLUConfig          `yaml:"nlu"`
	VoiceTrigger VoiceTriggerConfig `yaml:"voice_trigger"`
	TextProcessor TextProcessorConfig `yaml:"text_processor"`
	Workflows    WorkflowsConfig    `yaml:"workflows"`
	IntentSystem IntentSystemConfig `yaml:"intent_system"`
	VAD          VADConfig          `yaml:"vad"`
	Assets       AssetsConfig       `yaml:"assets"`
	Plugins      PluginsConfig      `yaml:"plugins"`
	LongTermMemory LongTermMemoryConfig `yaml:"long_term_memory"`
}

// LogLevel controls slog verbosity. Valid values: debug, info, warn, error.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the known log levels. An empty
// LogLevel is not valid on its own but callers generally treat "unset" as
// "default to info" rather than calling IsValid on it.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// SystemConfig holds process-wide toggles and the two listen addresses the
// capability-coherence checks in [Validate] cross-reference against
// components.tts / inputs.web (spec §4.9).
type SystemConfig struct {
	LogLevel LogLevel `yaml:"log_level"`

	// AudioPlaybackEnabled must be true whenever components.tts is enabled.
	// Only [Validate] reads it; whether an AudioSink is wired into the
	// workflow engine depends on components.audio and components.tts.
	AudioPlaybackEnabled bool `yaml:"audio_playback_enabled"`

	// WebAPIEnabled must be true whenever inputs.web is enabled.
	WebAPIEnabled    bool   `yaml:"web_api_enabled"`
	WebAPIListenAddr string `yaml:"web_api_listen_addr"`

	MetricsEnabled    bool   `yaml:"metrics_enabled"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
}

// InputsConfig enables and configures each InputSource (spec §4.2).
type InputsConfig struct {
	CLI        InputSourceConfig `yaml:"cli"`
	Microphone InputSourceConfig `yaml:"microphone"`
	Web        InputSourceConfig `yaml:"web"`
	Discord    InputSourceConfig `yaml:"discord"`

	// DefaultInput names the source new sessions without an explicit
	// source are attributed to; must be one of the enabled inputs above.
	DefaultInput string `yaml:"default_input"`
}

// InputSourceConfig is the common shape shared by every InputSource.
type InputSourceConfig struct {
	Enabled    bool `yaml:"enabled"`
	SampleRate int  `yaml:"sample_rate"`
	Channels   int  `yaml:"channels"`

	// ChannelID is only meaningful for the discord input (voice channel to join).
	ChannelID string `yaml:"channel_id"`
}

// ComponentsConfig is the boolean toggle block gating component
// instantiation (spec §4.1 "config.components.<name> = true").
type ComponentsConfig struct {
	ASR           bool `yaml:"asr"`
	TTS           bool `yaml:"tts"`
	Audio         bool `yaml:"audio"`
	LLM           bool `yaml:"llm"`
	NLU           bool `yaml:"nlu"`
	VoiceTrigger  bool `yaml:"voice_trigger"`
	TextProcessor bool `yaml:"text_processor"`
}

// ProviderEntry is the common configuration block shared by all provider
// implementations. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	Name    string         `yaml:"name"`
	APIKey  string         `yaml:"api_key"`
	BaseURL string         `yaml:"base_url"`
	Model   string         `yaml:"model"`
	Options map[string]any `yaml:"options"`
}

// ProviderChainConfig is the default+fallback chain shape spec §4.7
// requires of every domain component: a default provider name, an ordered
// fallback list, and the named provider entries to instantiate them from.
type ProviderChainConfig struct {
	DefaultProvider   string                   `yaml:"default_provider"`
	FallbackProviders []string                 `yaml:"fallback_providers"`
	Providers         map[string]ProviderEntry `yaml:"providers"`
}

// Entry looks up a named provider's configuration entry.
func (c ProviderChainConfig) Entry(name string) (ProviderEntry, bool) {
	e, ok := c.Providers[name]
	return e, ok
}

// RateNegotiationConfig is the sample-rate negotiation block spec §4.7
// attaches to ASR and voice-trigger components. When TargetSampleRate is
// non-zero, configuration is authoritative: audio is resampled to it
// regardless of provider preference, unless AllowResampling is false, in
// which case a mismatch is a fatal runtime error rather than a resample.
type RateNegotiationConfig struct {
	TargetSampleRate int  `yaml:"target_sample_rate"`
	AllowResampling  bool `yaml:"allow_resampling"`
}

// ASRConfig configures the speech-to-text domain component.
type ASRConfig struct {
	ProviderChainConfig   `yaml:",inline"`
	RateNegotiationConfig `yaml:",inline"`
}

// VoiceTriggerConfig configures the wake-word domain component.
type VoiceTriggerConfig struct {
	ProviderChainConfig   `yaml:",inline"`
	RateNegotiationConfig `yaml:",inline"`

	// Phrase is the configured wake word/phrase, when the provider supports
	// phrase configuration (e.g. "irene", "hey irene").
	Phrase string `yaml:"phrase"`
}

// TTSConfig configures the text-to-speech domain component.
type TTSConfig struct {
	ProviderChainConfig `yaml:",inline"`

	VoiceID     string  `yaml:"voice_id"`
	SpeedFactor float64 `yaml:"speed_factor"`
	PitchShift  float64 `yaml:"pitch_shift"`
}

// AudioConfig configures the voice-channel/output platform component
// (e.g. Discord).
type AudioConfig struct {
	ProviderChainConfig `yaml:",inline"`
}

// LLMConfig configures the optional enrichment-stage language model.
type LLMConfig struct {
	ProviderChainConfig `yaml:",inline"`
}

// NLUConfig configures the intent-recognition domain component, including
// where donation manifests (spec §6) are loaded from at post-init.
type NLUConfig struct {
	ProviderChainConfig `yaml:",inline"`

	DonationsDir        string  `yaml:"donations_dir"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// TextProcessorConfig configures the optional text-normalization stage.
type TextProcessorConfig struct {
	NumberExpansion    bool `yaml:"number_expansion"`
	PunctuationCleanup bool `yaml:"punctuation_cleanup"`
}

// UnifiedVoiceAssistantConfig is the per-stage enable flag block spec §4.3
// requires under workflows.unified_voice_assistant.
type UnifiedVoiceAssistantConfig struct {
	VoiceTriggerEnabled    bool `yaml:"voice_trigger_enabled"`
	VADEnabled             bool `yaml:"vad_enabled"`
	ASREnabled             bool `yaml:"asr_enabled"`
	TextProcessingEnabled  bool `yaml:"text_processing_enabled"`
	NLUEnabled             bool `yaml:"nlu_enabled"`
	IntentExecutionEnabled bool `yaml:"intent_execution_enabled"`
	LLMEnrichmentEnabled   bool `yaml:"llm_enrichment_enabled"`
	TTSEnabled             bool `yaml:"tts_enabled"`
	AudioOutputEnabled     bool `yaml:"audio_output_enabled"`
}

// WorkflowsConfig holds the workflow engine's stage-flag blocks. Only one
// workflow ("unified_voice_assistant") exists today; the nesting mirrors
// the spec's dotted path and leaves room for future workflows.
type WorkflowsConfig struct {
	UnifiedVoiceAssistant UnifiedVoiceAssistantConfig `yaml:"unified_voice_assistant"`
}

// IntentSystemConfig tunes the recognizer, orchestrator, and context
// manager (spec §4.5/§4.6).
type IntentSystemConfig struct {
	DomainPriorities            map[string]int `yaml:"domain_priorities"`
	ConfidenceThreshold         float64        `yaml:"confidence_threshold"`
	ContextualCommandTTLSeconds int            `yaml:"contextual_command_ttl_seconds"`
	MaxHistoryTurns             int            `yaml:"max_history_turns"`
	SessionTimeoutSeconds       int            `yaml:"session_timeout_seconds"`
}

// VADConfig configures the voice-activity detector (spec §4.4).
type VADConfig struct {
	SampleRate       int     `yaml:"sample_rate"`
	FrameSizeMs      int     `yaml:"frame_size_ms"`
	SpeechThreshold  float64 `yaml:"speech_threshold"`
	SilenceThreshold float64 `yaml:"silence_threshold"`
}

// AssetsConfig names the on-disk directories holding model files, caches,
// and credentials (spec §6 "assets_root" with models/, cache/, credentials/
// subtrees).
type AssetsConfig struct {
	Root            string `yaml:"assets_root"`
	ModelsSubdir    string `yaml:"models_subdir"`
	CacheSubdir     string `yaml:"cache_subdir"`
	CredentialsSubdir string `yaml:"credentials_subdir"`
}

// withDefaults returns a copy of a with the default subdirectory names
// ("models", "cache", "credentials") filled in where unset.
func (a AssetsConfig) withDefaults() AssetsConfig {
	if a.ModelsSubdir == "" {
		a.ModelsSubdir = "models"
	}
	if a.CacheSubdir == "" {
		a.CacheSubdir = "cache"
	}
	if a.CredentialsSubdir == "" {
		a.CredentialsSubdir = "credentials"
	}
	return a
}

// PluginsConfig lists plugin search directories and which discovered
// plugins are enabled by name.
type PluginsConfig struct {
	Dirs    []string `yaml:"plugin_dirs"`
	Enabled []string `yaml:"enabled"`
}

// LongTermMemoryConfig configures the optional Postgres/pgvector-backed
// semantic memory store that backs the conversation.general fallback
// handler's recall of prior turns across sessions (spec §4.6). When
// Enabled is false the handler runs LLM-only, with no persisted memory.
type LongTermMemoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// DSN is the PostgreSQL connection string (pgvector extension required).
	DSN string `yaml:"dsn"`

	// EmbeddingDimensions must match Embedding's provider's output
	// dimensionality; it sizes the pgvector column on first migration.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`

	// TopK caps how many prior chunks are recalled per turn.
	TopK int `yaml:"top_k"`

	Embedding ProviderChainConfig `yaml:"embedding"`
}
