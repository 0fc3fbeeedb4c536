package main

import (
	"context"
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/irenevoice/irenecore/internal/config"
	"github.com/irenevoice/irenecore/internal/discord"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/workflow"
	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/provider/llm"
	"github.com/irenevoice/irenecore/pkg/provider/llm/anyllm"
	"github.com/irenevoice/irenecore/pkg/provider/nlu/rulebased"
	"github.com/irenevoice/irenecore/pkg/provider/stt"
	"github.com/irenevoice/irenecore/pkg/provider/stt/deepgram"
	"github.com/irenevoice/irenecore/pkg/provider/stt/whisper"
	"github.com/irenevoice/irenecore/pkg/provider/tts"
	"github.com/irenevoice/irenecore/pkg/provider/tts/coqui"
	"github.com/irenevoice/irenecore/pkg/provider/tts/elevenlabs"
	"github.com/irenevoice/irenecore/pkg/provider/voicetrigger/energy"

	embeddingslib "github.com/irenevoice/irenecore/pkg/provider/embeddings"
	"github.com/irenevoice/irenecore/pkg/provider/embeddings/ollama"
	"github.com/irenevoice/irenecore/pkg/provider/embeddings/openai"

	webrtcaudio "github.com/irenevoice/irenecore/pkg/audio/webrtc"
)

// registerCoreProviders wires every concrete provider implementation this
// tree ships into reg, keyed under the names [config.ValidProviderNames]
// advertises. NLU's "rule-based" entry and the voice-trigger entries need
// more than a [config.ProviderEntry] to build (a loaded donation set, a
// target sample rate); those are registered separately by
// registerDonationBackedProviders and registerVoiceTrigger once that extra
// context is available: main.go calls this first, and buildRuntime calls the
// others once it has loaded the donations and read the voice-trigger config.
func registerCoreProviders(reg *config.Registry) {
	reg.RegisterASR("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		return deepgram.New(entry.APIKey)
	})
	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		return whisper.New(entry.BaseURL)
	})
	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath, _ := entry.Options["model_path"].(string)
		return whisper.NewNative(modelPath)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		return elevenlabs.New(entry.APIKey)
	})
	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		return coqui.New(entry.BaseURL)
	})

	reg.RegisterAudio("discord", func(entry config.ProviderEntry) (audio.Platform, error) {
		guildID, _ := entry.Options["guild_id"].(string)
		bot, err := discord.New(context.Background(), discord.Config{Token: entry.APIKey, GuildID: guildID})
		if err != nil {
			return nil, fmt.Errorf("discord audio platform: %w", err)
		}
		return bot.Platform(), nil
	})

	reg.RegisterAudio("webrtc", func(entry config.ProviderEntry) (audio.Platform, error) {
		var opts []webrtcaudio.Option
		if rate := optFloat(entry.Options, "sample_rate", 0); rate > 0 {
			opts = append(opts, webrtcaudio.WithSampleRate(int(rate)))
		}
		if stunList, ok := entry.Options["stun_servers"].([]any); ok {
			servers := make([]string, 0, len(stunList))
			for _, s := range stunList {
				if str, ok := s.(string); ok {
					servers = append(servers, str)
				}
			}
			if len(servers) > 0 {
				opts = append(opts, webrtcaudio.WithSTUNServers(servers...))
			}
		}
		return webrtcaudio.New(opts...), nil
	})

	for _, name := range []string{"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		name := name
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			opts := []anyllmlib.Option{}
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	reg.RegisterEmbedding("openai", func(entry config.ProviderEntry) (embeddingslib.Provider, error) {
		return openai.New(entry.APIKey, entry.Model)
	})
	reg.RegisterEmbedding("ollama", func(entry config.ProviderEntry) (embeddingslib.Provider, error) {
		model := entry.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return ollama.New(entry.BaseURL, model)
	})
}

// registerDonationBackedProviders registers the "rule-based" NLU factory,
// closing over the donation set loaded from nlu.donations_dir — a
// dependency [config.ProviderEntry] alone cannot express.
func registerDonationBackedProviders(reg *config.Registry, donations *intent.DonationSet) {
	reg.RegisterNLU("rule-based", func(entry config.ProviderEntry) (intent.NLUProvider, error) {
		minScore := 0.75
		if v, ok := entry.Options["min_score"].(float64); ok {
			minScore = v
		}
		return rulebased.New(entry.Name, donations, rulebased.Config{MinScore: minScore}), nil
	})
}

// registerVoiceTrigger registers the "energy-based" voice-trigger factory.
// "porcupine" is deliberately left unregistered: no pack example carries a
// real Porcupine Go binding (see DESIGN.md), so a deployment naming it gets
// [config.ErrProviderNotRegistered] and graceful degradation rather than a
// fabricated adapter.
func registerVoiceTrigger(reg *config.Registry, targetSampleRate int) {
	reg.RegisterVoiceTrigger("energy-based", func(entry config.ProviderEntry) (workflow.VoiceTrigger, error) {
		sampleRate := targetSampleRate
		if sampleRate == 0 {
			sampleRate = 16000
		}
		cfg := energy.Config{
			SampleRate:      sampleRate,
			EnergyThreshold: optFloat(entry.Options, "energy_threshold", 0.02),
			Sensitivity:     optFloat(entry.Options, "sensitivity", 1.0),
			FrameDurationMs: int(optFloat(entry.Options, "frame_duration_ms", 20)),
			VoiceDurationMs: int(optFloat(entry.Options, "voice_duration_ms", 200)),
		}
		return energy.NewTrigger(cfg), nil
	})
}

func optFloat(opts map[string]any, key string, def float64) float64 {
	if v, ok := opts[key].(float64); ok {
		return v
	}
	return def
}
