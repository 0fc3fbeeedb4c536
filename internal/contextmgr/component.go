package contextmgr

import (
	"context"

	"github.com/irenevoice/irenecore/internal/core"
)

// ComponentWrapper adapts [Manager] to [core.Component] so it can be
// discovered and started by the [core.Manager] lifecycle like any other
// subsystem, and injected into dependents that declare
// [core.ServiceContextManager].
type ComponentWrapper struct {
	*Manager
	cfg Config
}

// NewComponent creates a [core.Component] wrapping a fresh [Manager] built
// from cfg. The underlying Manager is not usable until Initialize runs.
func NewComponent(cfg Config) *ComponentWrapper {
	return &ComponentWrapper{cfg: cfg}
}

func (w *ComponentWrapper) Name() string { return "context_manager" }

func (w *ComponentWrapper) Initialize(ctx context.Context, _ core.Services) error {
	w.Manager = NewManager(w.cfg)
	w.Manager.StartCleanup(ctx)
	return nil
}

func (w *ComponentWrapper) Shutdown(context.Context) error {
	if w.Manager != nil {
		w.Manager.StopCleanup()
	}
	return nil
}

func (w *ComponentWrapper) ComponentDependencies() []string        { return nil }
func (w *ComponentWrapper) ServiceDependencies() []core.ServiceKind { return nil }
func (w *ComponentWrapper) InjectDependency(string, core.Component) {}

var _ core.Component = (*ComponentWrapper)(nil)
