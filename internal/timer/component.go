package timer

import (
	"context"

	"github.com/irenevoice/irenecore/internal/core"
)

// ComponentWrapper adapts [Manager] to [core.Component] under the name
// "timer_manager", the [core.ServiceTimerManager] service dependents
// declare to receive it via injection.
type ComponentWrapper struct {
	*Manager
}

// NewComponent creates a [core.Component] wrapping a fresh timer [Manager].
func NewComponent() *ComponentWrapper {
	return &ComponentWrapper{}
}

func (w *ComponentWrapper) Name() string { return "timer_manager" }

func (w *ComponentWrapper) Initialize(context.Context, core.Services) error {
	w.Manager = NewManager()
	return nil
}

func (w *ComponentWrapper) Shutdown(context.Context) error {
	if w.Manager != nil {
		w.Manager.Close()
	}
	return nil
}

func (w *ComponentWrapper) ComponentDependencies() []string        { return nil }
func (w *ComponentWrapper) ServiceDependencies() []core.ServiceKind { return nil }
func (w *ComponentWrapper) InjectDependency(string, core.Component) {}

var _ core.Component = (*ComponentWrapper)(nil)
