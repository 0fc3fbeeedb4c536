package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irenevoice/irenecore/internal/config"
	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/internal/health"
	"github.com/irenevoice/irenecore/internal/input"
	"github.com/irenevoice/irenecore/internal/input/cli"
	"github.com/irenevoice/irenecore/internal/input/discordsrc"
	"github.com/irenevoice/irenecore/internal/input/mic"
	"github.com/irenevoice/irenecore/internal/input/web"
	"github.com/irenevoice/irenecore/internal/intent"
	"github.com/irenevoice/irenecore/internal/longmem"
	"github.com/irenevoice/irenecore/internal/observe"
	"github.com/irenevoice/irenecore/internal/provider"
	"github.com/irenevoice/irenecore/internal/webapi"
	"github.com/irenevoice/irenecore/internal/workflow"
	"github.com/irenevoice/irenecore/pkg/audio"
	"github.com/irenevoice/irenecore/pkg/audio/resample"
	"github.com/irenevoice/irenecore/pkg/memory/postgres"
	"github.com/irenevoice/irenecore/pkg/provider/llm"
	"github.com/irenevoice/irenecore/pkg/provider/stt"
	"github.com/irenevoice/irenecore/pkg/provider/tts"
)

// runtime holds every subsystem buildRuntime wires, so main.go's run loop and
// components.go's status reporting share one source of truth.
type runtime struct {
	cfg *config.CoreConfig

	engine   *workflow.Engine
	contexts *contextmgr.Manager
	inputs   *input.Manager
	manager  *core.Manager
	enabled  map[string]bool

	asr          stt.Provider
	tts          tts.Provider
	llm          llm.Provider
	nlu          intent.NLUProvider
	voiceTrigger workflow.VoiceTrigger

	audioSink       *platformSink
	audioDisconnect func() error

	webSource  *web.Source
	httpServer *http.Server

	metricsServer   *http.Server
	metricsShutdown func(context.Context) error

	longMemDB *postgres.Store
}

// disabledNLU is the Recognizer's required default provider when
// components.nlu is off: it always returns a zero-confidence intent so the
// Recognizer's own low-confidence fallback (conversation.general) kicks in,
// never this provider's output directly.
type disabledNLU struct{}

func (disabledNLU) Name() string { return "disabled" }
func (disabledNLU) Recognize(context.Context, string, *contextmgr.UnifiedConversationContext) (intent.Intent, error) {
	return intent.Intent{}, nil
}

// noopAudioSink discards synthesized audio; used when no audio output
// platform is wired but TTS is still enabled (e.g. the web-only deployment
// profile, where synthesized audio is returned to the HTTP caller instead of
// played locally — spec §6's execute/audio response).
type noopAudioSink struct{}

func (noopAudioSink) Play(context.Context, audio.AudioFrame) error { return nil }

// buildRuntime instantiates every configured provider, the workflow engine,
// the multiplexed input manager, and (if enabled) the web API server. reg
// must already have every provider factory this process can use registered.
func buildRuntime(cfg *config.CoreConfig, reg *config.Registry) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	if cfg.Components.ASR {
		asrProvider, err := buildChain(cfg.ASR.ProviderChainConfig, reg.CreateASR)
		if err != nil {
			return nil, fmt.Errorf("build asr: %w", err)
		}
		rt.asr = asrProvider
	}

	if cfg.Components.TTS {
		ttsProvider, err := buildChain(cfg.TTS.ProviderChainConfig, reg.CreateTTS)
		if err != nil {
			return nil, fmt.Errorf("build tts: %w", err)
		}
		rt.tts = ttsProvider
	}

	var audioSink workflow.AudioSink
	var audioPlatform audio.Platform
	if cfg.Components.Audio {
		platform, err := buildChain(cfg.Audio.ProviderChainConfig, reg.CreateAudio)
		if err != nil {
			return nil, fmt.Errorf("build audio: %w", err)
		}
		audioPlatform = platform
		channelID := cfg.Inputs.Discord.ChannelID
		conn, err := platform.Connect(context.Background(), channelID)
		if err != nil {
			return nil, fmt.Errorf("connect audio platform to %q: %w", channelID, err)
		}
		rt.audioDisconnect = conn.Disconnect
		sink := newPlatformSink(conn.OutputStream())
		rt.audioSink = sink
		audioSink = sink
	} else if cfg.Components.TTS {
		audioSink = noopAudioSink{}
	}

	var llmEnricher workflow.LLMEnricher
	if cfg.Components.LLM {
		llmProvider, err := buildChain(cfg.LLM.ProviderChainConfig, reg.CreateLLM)
		if err != nil {
			return nil, fmt.Errorf("build llm: %w", err)
		}
		rt.llm = llmProvider
		llmEnricher = newLLMEnricher(llmProvider)
	}

	var nluProviders []intent.NLUProvider
	defaultNLU := "disabled"
	if cfg.Components.NLU {
		donations, err := provider.LoadDonationsDir(cfg.NLU.DonationsDir)
		if err != nil {
			return nil, fmt.Errorf("load donations: %w", err)
		}
		donationSet, err := intent.NewDonationSet(donations)
		if err != nil {
			return nil, fmt.Errorf("build donation set: %w", err)
		}
		registerDonationBackedProviders(reg, donationSet)

		nluProvider, err := buildChain(cfg.NLU.ProviderChainConfig, reg.CreateNLU)
		if err != nil {
			return nil, fmt.Errorf("build nlu: %w", err)
		}
		rt.nlu = nluProvider
		nluProviders = append(nluProviders, nluProvider)
		defaultNLU = nluProvider.Name()
	}
	nluProviders = append(nluProviders, disabledNLU{})
	if defaultNLU == "" {
		defaultNLU = "disabled"
	}
	recognizer, err := intent.NewRecognizer(nluProviders, defaultNLU, cfg.NLU.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("build recognizer: %w", err)
	}

	var voiceTrigger workflow.VoiceTrigger
	if cfg.Components.VoiceTrigger {
		registerVoiceTrigger(reg, cfg.VoiceTrigger.TargetSampleRate)
		trigger, err := buildChain(cfg.VoiceTrigger.ProviderChainConfig, reg.CreateVoiceTrigger)
		if err != nil {
			return nil, fmt.Errorf("build voice trigger: %w", err)
		}
		rt.voiceTrigger = trigger
		voiceTrigger = trigger
	}

	handlers := intent.NewRegistry()
	orchestrator := intent.NewOrchestrator(handlers, nil, intent.OrchestratorConfig{
		DomainPriorities: cfg.IntentSystem.DomainPriorities,
	})

	if rt.llm != nil {
		var mem *longmem.Store
		if cfg.LongTermMemory.Enabled {
			store, memStore, err := buildLongTermMemory(context.Background(), cfg, reg)
			if err != nil {
				return nil, fmt.Errorf("build long-term memory: %w", err)
			}
			rt.longMemDB = store
			mem = memStore
		}
		handlers.Register(intent.GeneralConversationIntent, newConversationHandler(rt.llm, mem))
	}

	contexts := contextmgr.NewManager(contextmgr.Config{
		MaxHistoryTurns: cfg.IntentSystem.MaxHistoryTurns,
		SessionTimeout:  time.Duration(cfg.IntentSystem.SessionTimeoutSeconds) * time.Second,
	})
	rt.contexts = contexts

	var resampler *resample.Converter
	if cfg.ASR.AllowResampling {
		resampler = resample.NewConverter()
	}

	uva := cfg.Workflows.UnifiedVoiceAssistant
	flags := workflow.StageFlags{
		VoiceTriggerEnabled:   uva.VoiceTriggerEnabled && voiceTrigger != nil,
		VADEnabled:            false, // no VAD engine is wired into the workflow here; see DESIGN.md
		ASREnabled:            uva.ASREnabled && rt.asr != nil,
		TextProcessingEnabled: uva.TextProcessingEnabled,
		LLMEnrichmentEnabled:  uva.LLMEnrichmentEnabled && llmEnricher != nil,
		TTSEnabled:            uva.TTSEnabled && rt.tts != nil,
		AudioOutputEnabled:    uva.AudioOutputEnabled && audioSink != nil,
	}
	if uva.VADEnabled {
		slog.Warn("workflows.unified_voice_assistant.vad_enabled is true but no concrete VAD engine is wired in this tree; running with VAD disabled")
	}

	engine, err := workflow.New(workflow.Config{
		Flags:         flags,
		VoiceTrigger:  voiceTrigger,
		ASR:           rt.asr,
		Resampler:     resampler,
		TargetRate:    cfg.ASR.TargetSampleRate,
		TextProcessor: buildTextProcessor(cfg.TextProcessor),
		Recognizer:    recognizer,
		Orchestrator:  orchestrator,
		LLMEnricher:   llmEnricher,
		TTS:           rt.tts,
		AudioOutput:   audioSink,
		Contexts:      contexts,
	})
	if err != nil {
		return nil, fmt.Errorf("build workflow engine: %w", err)
	}
	rt.engine = engine

	inputs, webSource, err := buildInputs(cfg, audioPlatform)
	if err != nil {
		return nil, fmt.Errorf("build inputs: %w", err)
	}
	rt.inputs = inputs
	rt.webSource = webSource

	registry := core.NewRegistry[core.Component]()
	manager := core.NewManager(registry, core.Services{})
	rt.manager = manager

	if cfg.System.WebAPIEnabled {
		server := webapi.New(engine, manager, webSource)
		mux := http.NewServeMux()
		server.Register(mux)
		rt.httpServer = &http.Server{Addr: cfg.System.WebAPIListenAddr, Handler: mux}
	}

	if cfg.System.MetricsEnabled {
		shutdownProvider, err := observe.InitProvider(context.Background(), observe.ProviderConfig{ServiceName: "irenecore"})
		if err != nil {
			return nil, fmt.Errorf("init observability provider: %w", err)
		}
		rt.metricsShutdown = shutdownProvider

		healthHandler := health.New(health.Checker{
			Name: "components",
			Check: func(context.Context) error {
				for _, st := range manager.Status() {
					if st.State == "failed" {
						return fmt.Errorf("component %q failed: %s", st.Name, st.Error)
					}
				}
				return nil
			},
		})
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		healthHandler.Register(mux)
		rt.metricsServer = &http.Server{Addr: cfg.System.MetricsListenAddr, Handler: mux}
	}

	// Registered after httpServer so the "webapi" status component's shutdown
	// callback can close over the final rt.httpServer; Manager.Initialize (run
	// later by main.go) reads the registry lazily, so registering into it here
	// after constructing the Manager is safe.
	rt.enabled = registerStatusComponents(registry, rt)
	manager.SetEnabled(rt.enabled)

	return rt, nil
}

// startHTTP starts the web API listener in the background; it is called
// from the "webapi" [readyComponent]'s Initialize so its success/failure is
// visible through [core.Manager.Status].
func (rt *runtime) startHTTP() error {
	if rt.httpServer == nil {
		return nil
	}
	ln, err := net.Listen("tcp", rt.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", rt.httpServer.Addr, err)
	}
	go func() {
		if err := rt.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("web api server stopped", "err", err)
		}
	}()
	return nil
}

// startMetrics starts the Prometheus /metrics and health /healthz,/readyz
// listener in the background; called from the "metrics" [readyComponent]'s
// Initialize so its success/failure is visible through [core.Manager.Status].
func (rt *runtime) startMetrics() error {
	if rt.metricsServer == nil {
		return nil
	}
	ln, err := net.Listen("tcp", rt.metricsServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", rt.metricsServer.Addr, err)
	}
	go func() {
		if err := rt.metricsServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	return nil
}

// buildChain resolves a [config.ProviderChainConfig] into a single live
// provider value: the default provider, falling back through
// FallbackProviders in order when the default fails to construct. Fallback
// providers beyond the first successful one are not instantiated — runtime
// fallback between already-built providers is [resilience.FallbackGroup]'s
// job inside the workflow engine, not this function's.
func buildChain[T any](chain config.ProviderChainConfig, create func(config.ProviderEntry) (T, error)) (T, error) {
	var zero T
	names := append([]string{chain.DefaultProvider}, chain.FallbackProviders...)
	var lastErr error
	for _, name := range names {
		entry, _ := chain.Entry(name)
		entry.Name = name // providers map key is canonical; entries need not repeat it
		v, err := create(entry)
		if err == nil {
			return v, nil
		}
		lastErr = err
		slog.Warn("provider failed to build, trying next in chain", "provider", name, "err", err)
	}
	return zero, fmt.Errorf("no provider in chain could be built: %w", lastErr)
}

// buildLongTermMemory connects to the Postgres/pgvector store named by
// cfg.LongTermMemory and wraps it in an [longmem.Store] backed by the
// configured embedding provider chain. The returned *postgres.Store is kept
// by the caller so it can be closed on shutdown.
func buildLongTermMemory(ctx context.Context, cfg *config.CoreConfig, reg *config.Registry) (*postgres.Store, *longmem.Store, error) {
	embedder, err := buildChain(cfg.LongTermMemory.Embedding, reg.CreateEmbedding)
	if err != nil {
		return nil, nil, fmt.Errorf("build embedding provider: %w", err)
	}
	store, err := postgres.NewStore(ctx, cfg.LongTermMemory.DSN, cfg.LongTermMemory.EmbeddingDimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres store: %w", err)
	}
	mem := longmem.New(store.L1(), store.L2(), embedder, cfg.LongTermMemory.TopK)
	return store, mem, nil
}

// buildInputs registers every enabled [input.Source] named under
// inputs.<name> in cfg. platform is the already-connected audio.Platform
// built for components.audio, reused for the discord input source rather
// than dialing a second connection (nil when components.audio is disabled).
func buildInputs(cfg *config.CoreConfig, platform audio.Platform) (*input.Manager, *web.Source, error) {
	manager := input.NewManager()
	var webSource *web.Source

	if cfg.Inputs.CLI.Enabled {
		manager.Register("cli", cli.New(os.Stdin))
	}
	if cfg.Inputs.Microphone.Enabled {
		mc := cfg.Inputs.Microphone
		manager.Register("microphone", mic.New(nil, mic.Config{
			SampleRate: mc.SampleRate,
			Channels:   mc.Channels,
		}))
	}
	if cfg.Inputs.Web.Enabled {
		wc := cfg.Inputs.Web
		webSource = web.New(web.Config{SampleRate: wc.SampleRate, Channels: wc.Channels})
		manager.Register("web", webSource)
	}
	if cfg.Inputs.Discord.Enabled {
		if platform == nil {
			return nil, nil, fmt.Errorf("inputs.discord requires components.audio to be enabled")
		}
		manager.Register("discord", discordsrc.New(platform, cfg.Inputs.Discord.ChannelID))
	}

	return manager, webSource, nil
}
