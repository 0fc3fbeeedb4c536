package main

import (
	"context"

	"github.com/irenevoice/irenecore/internal/core"
)

// readyComponent is a thin [core.Component] wrapping a subsystem that was
// already constructed by providers.go/build.go before [core.Manager.Initialize]
// runs. Its Initialize/Shutdown hooks are no-ops beyond the supplied
// callbacks: the point of registering it is so [core.Manager.Status] (and
// therefore internal/webapi's /status and /components endpoints) reports an
// accurate running/failed/disabled picture of every wired subsystem, not to
// redo construction the registry.go factories already performed.
//
// Building a full per-provider Component — with real ComponentDependencies,
// ServiceDependencies, and InjectDependency wiring — is left for a later
// pass; see DESIGN.md.
type readyComponent struct {
	name     string
	init     func(ctx context.Context) error
	shutdown func(ctx context.Context) error
}

func newReadyComponent(name string, init, shutdown func(ctx context.Context) error) *readyComponent {
	return &readyComponent{name: name, init: init, shutdown: shutdown}
}

func (c *readyComponent) Name() string { return c.name }

func (c *readyComponent) Initialize(ctx context.Context, _ core.Services) error {
	if c.init == nil {
		return nil
	}
	return c.init(ctx)
}

func (c *readyComponent) Shutdown(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}
	return c.shutdown(ctx)
}

func (c *readyComponent) ComponentDependencies() []string { return nil }

func (c *readyComponent) ServiceDependencies() []core.ServiceKind { return nil }

func (c *readyComponent) InjectDependency(string, core.Component) {}

var _ core.Component = (*readyComponent)(nil)

// registerStatusComponents registers one [readyComponent] per subsystem
// wired in buildRuntime so [core.Manager.Status] has something to report.
// All are enabled unconditionally: by the time this is called, every
// subsystem named here was already built successfully (a build failure
// aborts startup before this point), so "disabled" is never the honest
// answer. Only the components passed init/shutdown callbacks (audio,
// long_term_memory, context_manager, input, webapi, metrics) do real work in
// those hooks; the rest are status-only.
func registerStatusComponents(reg *core.Registry[core.Component], rt *runtime) map[string]bool {
	enabled := map[string]bool{}

	add := func(name string, init, shutdown func(ctx context.Context) error) {
		reg.Register(name, func() (core.Component, error) {
			return newReadyComponent(name, init, shutdown), nil
		})
		enabled[name] = true
	}

	if rt.asr != nil {
		add("asr", nil, nil)
	}
	if rt.tts != nil {
		add("tts", nil, nil)
	}
	if rt.audioSink != nil {
		add("audio", nil, func(ctx context.Context) error {
			rt.audioSink.Close()
			return rt.audioDisconnect()
		})
	}
	if rt.llm != nil {
		add("llm", nil, nil)
	}
	if rt.longMemDB != nil {
		add("long_term_memory", nil, func(ctx context.Context) error { rt.longMemDB.Close(); return nil })
	}
	if rt.nlu != nil {
		add("nlu", nil, nil)
	}
	if rt.voiceTrigger != nil {
		add("voice_trigger", nil, nil)
	}
	add("workflow", nil, nil)
	add("context_manager", func(ctx context.Context) error { rt.contexts.StartCleanup(ctx); return nil },
		func(context.Context) error { rt.contexts.StopCleanup(); return nil })
	add("input", nil, func(context.Context) error { rt.inputs.Close(); return nil })
	if rt.httpServer != nil {
		add("webapi", func(ctx context.Context) error { return rt.startHTTP() }, func(ctx context.Context) error { return rt.httpServer.Shutdown(ctx) })
	}
	if rt.metricsServer != nil {
		add("metrics", func(ctx context.Context) error { return rt.startMetrics() }, func(ctx context.Context) error {
			err := rt.metricsServer.Shutdown(ctx)
			if rt.metricsShutdown != nil {
				if shutdownErr := rt.metricsShutdown(ctx); shutdownErr != nil && err == nil {
					err = shutdownErr
				}
			}
			return err
		})
	}

	return enabled
}
