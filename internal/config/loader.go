package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches "${VAR_NAME}" references in a raw config document.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ValidProviderNames lists known provider names per domain component kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr":           {"deepgram", "whisper", "whisper-native"},
	"tts":           {"elevenlabs", "coqui"},
	"audio":         {"discord", "webrtc"},
	"llm":           {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"nlu":           {"rule-based", "embeddings-based"},
	"voice_trigger": {"porcupine", "energy-based"},
	"embedding":     {"openai", "ollama"},
}

// Load reads the YAML configuration file at path, expands ${VAR}
// environment references, and returns a validated [CoreConfig]. Any
// [ValidationResult] error is returned as a non-nil error; warnings and
// infos are logged via slog and do not block startup.
func Load(path string) (*CoreConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expanding ${VAR}
// environment references first, and validates the result. Useful in tests
// where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*CoreConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, err
	}

	cfg := &CoreConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	result := Validate(cfg)
	for _, info := range result.Infos {
		slog.Info("config validation", "detail", info)
	}
	for _, warn := range result.Warnings {
		slog.Warn("config validation", "detail", warn)
	}
	if !result.OK() {
		return nil, result.Err()
	}
	return cfg, nil
}

// expandEnv replaces every "${VAR}" reference in raw with the value of the
// named environment variable. An unresolved reference (the variable is not
// set in the environment, including set-but-empty being treated as
// resolved) is fatal per spec §6, since a half-substituted config would
// silently fall back to wrong or empty values.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	seen := make(map[string]bool)
	out := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := string(envVarPattern.FindSubmatch(match)[1])
		val, ok := os.LookupEnv(name)
		if !ok {
			if !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
			return match
		}
		return []byte(val)
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("config: unresolved environment variable reference(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// ValidationResult is the categorized outcome of [Validate]: Errors are
// fatal (the caller must refuse to start), Warnings indicate a likely
// misconfiguration the system can still run with, and Infos are purely
// informational (e.g. derived deployment profile).
type ValidationResult struct {
	Errors   []string
	Warnings []string
	Infos    []string
}

// OK reports whether no fatal errors were recorded.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err joins all Errors into a single error, or returns nil when OK.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(r.Errors, "; "))
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addInfo(format string, args ...any) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

// Validate checks cfg for the coherence rules spec §4.9 requires:
// capability coherence, workflow/component coherence, provider
// availability, input coherence, and asset directory sanity. It never
// mutates cfg.
func Validate(cfg *CoreConfig) ValidationResult {
	var r ValidationResult

	validateCapabilityCoherence(cfg, &r)
	validateWorkflowComponentCoherence(cfg, &r)
	validateProviderAvailability(cfg, &r)
	validateInputCoherence(cfg, &r)
	validateAssets(cfg, &r)

	if cfg.System.LogLevel != "" && !cfg.System.LogLevel.IsValid() {
		r.addError("system.log_level %q is invalid; valid values: debug, info, warn, error", cfg.System.LogLevel)
	}

	r.addInfo("deployment profile: %s", DeploymentProfile(cfg))

	return r
}

// validateCapabilityCoherence enforces: components.tts ⇒
// system.audio_playback_enabled; inputs.web ⇒ system.web_api_enabled;
// and fatal port conflicts between the web API and metrics listeners.
func validateCapabilityCoherence(cfg *CoreConfig, r *ValidationResult) {
	if cfg.Components.TTS && !cfg.System.AudioPlaybackEnabled {
		r.addError("components.tts is enabled but system.audio_playback_enabled is false")
	}
	if cfg.Inputs.Web.Enabled && !cfg.System.WebAPIEnabled {
		r.addError("inputs.web is enabled but system.web_api_enabled is false")
	}
	if cfg.System.WebAPIEnabled && cfg.System.MetricsEnabled &&
		cfg.System.WebAPIListenAddr != "" && cfg.System.WebAPIListenAddr == cfg.System.MetricsListenAddr {
		r.addError("system.web_api_listen_addr and system.metrics_listen_addr both bind %q", cfg.System.WebAPIListenAddr)
	}
}

// validateWorkflowComponentCoherence enforces that every
// workflows.unified_voice_assistant.<stage>_enabled flag is backed by the
// matching components.<component> toggle, and warns (does not fail) on the
// reverse mismatch — a component enabled with its stage switched off.
func validateWorkflowComponentCoherence(cfg *CoreConfig, r *ValidationResult) {
	uva := cfg.Workflows.UnifiedVoiceAssistant
	pairs := []struct {
		stage, component string
		stageOn, compOn  bool
	}{
		{"voice_trigger_enabled", "voice_trigger", uva.VoiceTriggerEnabled, cfg.Components.VoiceTrigger},
		{"asr_enabled", "asr", uva.ASREnabled, cfg.Components.ASR},
		{"text_processing_enabled", "text_processor", uva.TextProcessingEnabled, cfg.Components.TextProcessor},
		{"nlu_enabled", "nlu", uva.NLUEnabled, cfg.Components.NLU},
		{"llm_enrichment_enabled", "llm", uva.LLMEnrichmentEnabled, cfg.Components.LLM},
		{"tts_enabled", "tts", uva.TTSEnabled, cfg.Components.TTS},
		{"audio_output_enabled", "audio", uva.AudioOutputEnabled, cfg.Components.Audio},
	}
	for _, p := range pairs {
		switch {
		case p.stageOn && !p.compOn:
			r.addError("workflows.unified_voice_assistant.%s is true but components.%s is false", p.stage, p.component)
		case p.compOn && !p.stageOn:
			r.addWarning("components.%s is enabled but workflows.unified_voice_assistant.%s is false", p.component, p.stage)
		}
	}
}

// validateProviderAvailability checks that each enabled domain component's
// default_provider name is non-empty (discoverability of the actual
// implementation is checked against the live [Registry] at startup, which
// this package-level Validate has no access to) and warns about unknown
// provider names and unreachable fallback chains.
func validateProviderAvailability(cfg *CoreConfig, r *ValidationResult) {
	check := func(kind string, enabled bool, chain ProviderChainConfig) {
		if !enabled {
			return
		}
		if chain.DefaultProvider == "" {
			r.addError("components.%s is enabled but %s.default_provider is not set", kind, kind)
			return
		}
		validateProviderName(kind, chain.DefaultProvider, r)
		if _, ok := chain.Providers[chain.DefaultProvider]; !ok {
			r.addError("%s.default_provider %q has no matching entry under %s.providers", kind, chain.DefaultProvider, kind)
		}
		for _, fb := range chain.FallbackProviders {
			validateProviderName(kind, fb, r)
			if _, ok := chain.Providers[fb]; !ok {
				r.addWarning("%s.fallback_providers entry %q has no matching entry under %s.providers", kind, fb, kind)
			}
		}
	}

	check("asr", cfg.Components.ASR, cfg.ASR.ProviderChainConfig)
	check("tts", cfg.Components.TTS, cfg.TTS.ProviderChainConfig)
	check("audio", cfg.Components.Audio, cfg.Audio.ProviderChainConfig)
	check("llm", cfg.Components.LLM, cfg.LLM.ProviderChainConfig)
	check("nlu", cfg.Components.NLU, cfg.NLU.ProviderChainConfig)
	check("voice_trigger", cfg.Components.VoiceTrigger, cfg.VoiceTrigger.ProviderChainConfig)
	check("embedding", cfg.LongTermMemory.Enabled, cfg.LongTermMemory.Embedding)

	if !cfg.ASR.AllowResampling && cfg.ASR.TargetSampleRate == 0 {
		r.addWarning("asr.allow_resampling is false but asr.target_sample_rate is unset; any provider rate mismatch will be fatal at runtime")
	}

	if cfg.LongTermMemory.Enabled {
		if cfg.LongTermMemory.DSN == "" {
			r.addError("long_term_memory.enabled is true but long_term_memory.dsn is not set")
		}
		if cfg.LongTermMemory.EmbeddingDimensions <= 0 {
			r.addError("long_term_memory.enabled is true but long_term_memory.embedding_dimensions is not set")
		}
	}
}

func validateProviderName(kind, name string, r *ValidationResult) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	for _, k := range known {
		if k == name {
			return
		}
	}
	r.addWarning("unknown %s provider name %q (known: %s) — may be a typo or a third-party provider", kind, name, strings.Join(known, ", "))
}

// validateInputCoherence enforces: default_input must name an enabled
// input; at least one input must be enabled; sample rate and channel
// counts on enabled inputs must be sane.
func validateInputCoherence(cfg *CoreConfig, r *ValidationResult) {
	enabled := map[string]InputSourceConfig{}
	if cfg.Inputs.CLI.Enabled {
		enabled["cli"] = cfg.Inputs.CLI
	}
	if cfg.Inputs.Microphone.Enabled {
		enabled["microphone"] = cfg.Inputs.Microphone
	}
	if cfg.Inputs.Web.Enabled {
		enabled["web"] = cfg.Inputs.Web
	}
	if cfg.Inputs.Discord.Enabled {
		enabled["discord"] = cfg.Inputs.Discord
	}

	if len(enabled) == 0 {
		r.addError("no input source is enabled under inputs.*")
		return
	}

	if cfg.Inputs.DefaultInput == "" {
		r.addError("inputs.default_input is required")
	} else if _, ok := enabled[cfg.Inputs.DefaultInput]; !ok {
		r.addError("inputs.default_input %q is not an enabled input", cfg.Inputs.DefaultInput)
	}

	for name, src := range enabled {
		if name == "cli" {
			continue
		}
		if src.SampleRate != 0 && (src.SampleRate < 8000 || src.SampleRate > 192000) {
			r.addError("inputs.%s.sample_rate %d is out of sane range [8000, 192000]", name, src.SampleRate)
		}
		if src.Channels != 0 && (src.Channels < 1 || src.Channels > 8) {
			r.addError("inputs.%s.channels %d is out of sane range [1, 8]", name, src.Channels)
		}
	}

	if cfg.Inputs.Discord.Enabled && cfg.Inputs.Discord.ChannelID == "" {
		r.addError("inputs.discord is enabled but inputs.discord.channel_id is not set")
	}
}

// validateAssets checks that assets_root exists or can be created, and
// that it is usable as a directory.
func validateAssets(cfg *CoreConfig, r *ValidationResult) {
	if cfg.Assets.Root == "" {
		r.addWarning("assets.assets_root is not set; model/cache/credentials subtrees will not be resolvable")
		return
	}
	info, err := os.Stat(cfg.Assets.Root)
	switch {
	case err == nil && !info.IsDir():
		r.addError("assets.assets_root %q exists but is not a directory", cfg.Assets.Root)
	case err != nil && !os.IsNotExist(err):
		r.addError("assets.assets_root %q is not accessible: %v", cfg.Assets.Root, err)
	case err != nil:
		parent := filepath.Dir(cfg.Assets.Root)
		if pinfo, perr := os.Stat(parent); perr != nil || !pinfo.IsDir() {
			r.addError("assets.assets_root %q does not exist and its parent %q is not creatable", cfg.Assets.Root, parent)
		} else {
			r.addInfo("assets.assets_root %q does not exist yet; it will be created on first use", cfg.Assets.Root)
		}
	}
}

// DeploymentProfile derives the deployment profile name from the enabled
// component/input set (spec §4.1): "voice" (mic + tts + audio + asr),
// "api" (web only, no tts), "headless" (cli only), else "custom(N)" where N
// is the number of enabled inputs.
func DeploymentProfile(cfg *CoreConfig) string {
	switch {
	case cfg.Inputs.Microphone.Enabled && cfg.Components.TTS && cfg.Components.Audio && cfg.Components.ASR:
		return "voice"
	case cfg.Inputs.Web.Enabled && !cfg.Inputs.Microphone.Enabled && !cfg.Inputs.CLI.Enabled && !cfg.Components.TTS:
		return "api"
	case cfg.Inputs.CLI.Enabled && !cfg.Inputs.Microphone.Enabled && !cfg.Inputs.Web.Enabled && !cfg.Inputs.Discord.Enabled:
		return "headless"
	default:
		n := 0
		for _, on := range []bool{cfg.Inputs.CLI.Enabled, cfg.Inputs.Microphone.Enabled, cfg.Inputs.Web.Enabled, cfg.Inputs.Discord.Enabled} {
			if on {
				n++
			}
		}
		return fmt.Sprintf("custom(%d)", n)
	}
}
