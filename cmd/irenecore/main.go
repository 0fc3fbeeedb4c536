// Command irenecore is the main entry point for the Irene voice assistant
// core runtime server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irenevoice/irenecore/internal/config"
	"github.com/irenevoice/irenecore/internal/input"
	"github.com/irenevoice/irenecore/internal/workflow"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "irenecore: config file %q not found — pass -config with the path to a YAML configuration file\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "irenecore: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.System.LogLevel)
	slog.SetDefault(logger)

	slog.Info("irenecore starting",
		"config", *configPath,
		"log_level", cfg.System.LogLevel,
		"profile", config.DeploymentProfile(cfg),
	)

	reg := config.NewRegistry()
	registerCoreProviders(reg)

	rt, err := buildRuntime(cfg, reg)
	if err != nil {
		slog.Error("failed to build runtime", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.manager.Initialize(ctx); err != nil {
		slog.Error("failed to initialize components", "err", err)
		return 1
	}

	if err := rt.inputs.Start(ctx, nil); err != nil {
		slog.Error("failed to start input sources", "err", err)
		return 1
	}

	slog.Info("irenecore ready — press Ctrl+C to shut down")

	driveLoop(ctx, rt)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	for _, name := range []string{"webapi", "metrics", "input", "context_manager", "audio", "long_term_memory"} {
		if c, ok := rt.manager.Component(name); ok {
			if err := c.Shutdown(shutdownCtx); err != nil {
				slog.Error("component shutdown error", "component", name, "err", err)
			}
		}
	}
	slog.Info("goodbye")
	return 0
}

// driveLoop consumes [input.Manager.Queue] until ctx is cancelled, routing
// each item through the workflow engine's text or audio entry point. The
// cli source has no output sink of its own, so its results are additionally
// printed to stdout here.
func driveLoop(ctx context.Context, rt *runtime) {
	queue := rt.inputs.Queue()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok {
				return
			}
			handleInput(ctx, rt, item)
		}
	}
}

func handleInput(ctx context.Context, rt *runtime, item input.Named) {
	sessionID := item.Source
	clientCtx := workflow.ClientContext{}
	trace := workflow.NewTraceContext()

	var result string
	if item.Data.IsText() {
		res, err := rt.engine.ProcessText(ctx, item.Data.Text, sessionID, false, clientCtx, trace)
		if err != nil {
			slog.Error("process_text_input failed", "source", item.Source, "err", err)
			return
		}
		result = res.Text
	} else {
		res, err := rt.engine.ProcessAudioInput(ctx, *item.Data.Audio, sessionID, item.Source != "cli", clientCtx, trace)
		if err != nil {
			slog.Error("process_audio_input failed", "source", item.Source, "err", err)
			return
		}
		result = res.Text
	}

	if item.Source == "cli" && result != "" {
		fmt.Println(result)
	}
}

// ── Startup summary ─────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.CoreConfig) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        irenecore — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printComponent("ASR", cfg.Components.ASR, cfg.ASR.DefaultProvider)
	printComponent("TTS", cfg.Components.TTS, cfg.TTS.DefaultProvider)
	printComponent("Audio", cfg.Components.Audio, cfg.Audio.DefaultProvider)
	printComponent("LLM", cfg.Components.LLM, cfg.LLM.DefaultProvider)
	printComponent("NLU", cfg.Components.NLU, cfg.NLU.DefaultProvider)
	printComponent("VoiceTrigger", cfg.Components.VoiceTrigger, cfg.VoiceTrigger.DefaultProvider)
	if cfg.System.WebAPIEnabled {
		fmt.Printf("║  Web API         : %-19s ║\n", cfg.System.WebAPIListenAddr)
	}
	fmt.Printf("║  Inputs enabled  : %-19s ║\n", enabledInputs(cfg))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printComponent(kind string, enabled bool, provider string) {
	value := "(disabled)"
	if enabled {
		value = provider
		if value == "" {
			value = "(no provider configured)"
		}
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func enabledInputs(cfg *config.CoreConfig) string {
	var names []string
	if cfg.Inputs.CLI.Enabled {
		names = append(names, "cli")
	}
	if cfg.Inputs.Microphone.Enabled {
		names = append(names, "mic")
	}
	if cfg.Inputs.Web.Enabled {
		names = append(names, "web")
	}
	if cfg.Inputs.Discord.Enabled {
		names = append(names, "discord")
	}
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "," + n
	}
	return out
}

// ── Logger ───────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
