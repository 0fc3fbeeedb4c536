package config_test

import (
	"testing"

	"github.com/irenevoice/irenecore/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.CoreConfig{
		System: config.SystemConfig{LogLevel: config.LogLevelInfo},
		ASR: config.ASRConfig{ProviderChainConfig: config.ProviderChainConfig{
			DefaultProvider: "deepgram",
		}},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if len(d.ProviderChanges) != 0 {
		t.Errorf("expected 0 provider changes, got %d", len(d.ProviderChanges))
	}
	if d.RestartRequired {
		t.Error("expected RestartRequired=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{System: config.SystemConfig{LogLevel: config.LogLevelInfo}}
	newCfg := &config.CoreConfig{System: config.SystemConfig{LogLevel: config.LogLevelDebug}}

	d := config.Diff(old, newCfg)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogLevelDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_ProviderDefaultChanged(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{ASR: config.ASRConfig{ProviderChainConfig: config.ProviderChainConfig{
		DefaultProvider: "deepgram",
	}}}
	newCfg := &config.CoreConfig{ASR: config.ASRConfig{ProviderChainConfig: config.ProviderChainConfig{
		DefaultProvider: "whisper",
	}}}

	d := config.Diff(old, newCfg)
	if len(d.ProviderChanges) != 1 {
		t.Fatalf("expected 1 provider change, got %d", len(d.ProviderChanges))
	}
	pc := d.ProviderChanges[0]
	if pc.Component != "asr" || !pc.DefaultProviderChanged {
		t.Errorf("expected asr default provider change, got %+v", pc)
	}
	if pc.OldDefault != "deepgram" || pc.NewDefault != "whisper" {
		t.Errorf("expected deepgram->whisper, got %s->%s", pc.OldDefault, pc.NewDefault)
	}
}

func TestDiff_FallbacksChanged(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{TTS: config.TTSConfig{ProviderChainConfig: config.ProviderChainConfig{
		DefaultProvider:   "elevenlabs",
		FallbackProviders: []string{"coqui"},
	}}}
	newCfg := &config.CoreConfig{TTS: config.TTSConfig{ProviderChainConfig: config.ProviderChainConfig{
		DefaultProvider:   "elevenlabs",
		FallbackProviders: []string{"coqui", "console"},
	}}}

	d := config.Diff(old, newCfg)
	if len(d.ProviderChanges) != 1 || !d.ProviderChanges[0].FallbacksChanged {
		t.Fatalf("expected a tts fallback change, got %+v", d.ProviderChanges)
	}
}

func TestDiff_WorkflowStageChange(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{}
	newCfg := &config.CoreConfig{Workflows: config.WorkflowsConfig{
		UnifiedVoiceAssistant: config.UnifiedVoiceAssistantConfig{LLMEnrichmentEnabled: true},
	}}

	d := config.Diff(old, newCfg)
	if !d.WorkflowStagesChanged {
		t.Error("expected WorkflowStagesChanged=true")
	}
}

func TestDiff_TTSVoiceChanged(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{TTS: config.TTSConfig{VoiceID: "v1"}}
	newCfg := &config.CoreConfig{TTS: config.TTSConfig{VoiceID: "v2"}}

	d := config.Diff(old, newCfg)
	if !d.TTSVoiceChanged {
		t.Error("expected TTSVoiceChanged=true")
	}
}

func TestDiff_IntentSystemChanged(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{IntentSystem: config.IntentSystemConfig{ConfidenceThreshold: 0.5}}
	newCfg := &config.CoreConfig{IntentSystem: config.IntentSystemConfig{ConfidenceThreshold: 0.7}}

	d := config.Diff(old, newCfg)
	if !d.IntentSystemChanged {
		t.Error("expected IntentSystemChanged=true")
	}
}

func TestDiff_ComponentToggleRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{Components: config.ComponentsConfig{ASR: true}}
	newCfg := &config.CoreConfig{Components: config.ComponentsConfig{ASR: false}}

	d := config.Diff(old, newCfg)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true when a component toggle changes")
	}
}

func TestDiff_InputToggleRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.CoreConfig{Inputs: config.InputsConfig{CLI: config.InputSourceConfig{Enabled: true}}}
	newCfg := &config.CoreConfig{Inputs: config.InputsConfig{
		CLI: config.InputSourceConfig{Enabled: true},
		Web: config.InputSourceConfig{Enabled: true},
	}}

	d := config.Diff(old, newCfg)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true when the enabled input set changes")
	}
}
