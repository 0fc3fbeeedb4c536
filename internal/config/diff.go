package config

import "reflect"

// ConfigDiff describes what changed between two configs after a
// [Watcher] reload. Only fields safe to apply without restarting the
// component manager are reported as plain changes; anything that would
// reshape the dependency graph (component/input toggles) is surfaced via
// RestartRequired instead, since the topological re-initialization that
// would require is out of scope for a hot reload (spec §4.1 ordering is
// computed once, at startup).
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ProviderChanges       []ProviderDiff
	WorkflowStagesChanged bool
	TTSVoiceChanged       bool
	IntentSystemChanged   bool

	// RestartRequired is true when components.* toggles or any inputs.*
	// setting (enabled flag, sample rate, channels, channel id, or
	// default_input) differ — the component manager's dependency graph and the
	// input manager's registered source set are both fixed at startup.
	RestartRequired bool
}

// ProviderDiff describes a default/fallback provider chain change for one
// domain component.
type ProviderDiff struct {
	Component              string
	DefaultProviderChanged bool
	OldDefault, NewDefault string
	FallbacksChanged       bool
}

// Diff compares old and new configs and reports what changed, without
// mutating either.
func Diff(old, new *CoreConfig) ConfigDiff {
	d := ConfigDiff{}

	if old.System.LogLevel != new.System.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.System.LogLevel
	}

	if old.Components != new.Components {
		d.RestartRequired = true
	}
	if !inputsEnabledSetEqual(old.Inputs, new.Inputs) {
		d.RestartRequired = true
	}

	appendIfChanged := func(component string, o, n ProviderChainConfig) {
		if pd, changed := diffProviderChain(component, o, n); changed {
			d.ProviderChanges = append(d.ProviderChanges, pd)
		}
	}
	appendIfChanged("asr", old.ASR.ProviderChainConfig, new.ASR.ProviderChainConfig)
	appendIfChanged("tts", old.TTS.ProviderChainConfig, new.TTS.ProviderChainConfig)
	appendIfChanged("audio", old.Audio.ProviderChainConfig, new.Audio.ProviderChainConfig)
	appendIfChanged("llm", old.LLM.ProviderChainConfig, new.LLM.ProviderChainConfig)
	appendIfChanged("nlu", old.NLU.ProviderChainConfig, new.NLU.ProviderChainConfig)
	appendIfChanged("voice_trigger", old.VoiceTrigger.ProviderChainConfig, new.VoiceTrigger.ProviderChainConfig)

	if old.Workflows.UnifiedVoiceAssistant != new.Workflows.UnifiedVoiceAssistant {
		d.WorkflowStagesChanged = true
	}

	if old.TTS.VoiceID != new.TTS.VoiceID || old.TTS.SpeedFactor != new.TTS.SpeedFactor || old.TTS.PitchShift != new.TTS.PitchShift {
		d.TTSVoiceChanged = true
	}

	if old.IntentSystem.ConfidenceThreshold != new.IntentSystem.ConfidenceThreshold ||
		old.IntentSystem.ContextualCommandTTLSeconds != new.IntentSystem.ContextualCommandTTLSeconds ||
		old.IntentSystem.MaxHistoryTurns != new.IntentSystem.MaxHistoryTurns ||
		old.IntentSystem.SessionTimeoutSeconds != new.IntentSystem.SessionTimeoutSeconds ||
		!reflect.DeepEqual(old.IntentSystem.DomainPriorities, new.IntentSystem.DomainPriorities) {
		d.IntentSystemChanged = true
	}

	return d
}

// diffProviderChain compares a single component's default+fallback chain.
func diffProviderChain(component string, old, new ProviderChainConfig) (ProviderDiff, bool) {
	pd := ProviderDiff{Component: component}
	changed := false

	if old.DefaultProvider != new.DefaultProvider {
		pd.DefaultProviderChanged = true
		pd.OldDefault = old.DefaultProvider
		pd.NewDefault = new.DefaultProvider
		changed = true
	}
	if !slicesEqual(old.FallbackProviders, new.FallbackProviders) {
		pd.FallbacksChanged = true
		changed = true
	}

	return pd, changed
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// inputsEnabledSetEqual reports whether the same set of input sources is
// enabled (with the same channel/device settings) between two configs.
func inputsEnabledSetEqual(old, new InputsConfig) bool {
	return old.CLI == new.CLI &&
		old.Microphone == new.Microphone &&
		old.Web == new.Web &&
		old.Discord == new.Discord &&
		old.DefaultInput == new.DefaultInput
}
