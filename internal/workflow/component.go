package workflow

import (
	"context"

	"github.com/irenevoice/irenecore/internal/core"
)

// ComponentWrapper adapts an [Engine] to [core.Component] under the name
// "workflow_engine", the pipeline node every input source's driver loop
// depends on. Unlike contextmgr/timer, the Engine's collaborators
// (recognizer, orchestrator, providers) are assembled by the caller before
// construction — the wrapper's Initialize step only validates that a
// pre-built Engine was supplied.
type ComponentWrapper struct {
	*Engine
	name string
}

// NewComponent wraps a pre-built Engine. Built this way (rather than
// constructing the Engine inside Initialize) because the Engine's
// collaborators are themselves components resolved by the
// core.Manager's dependency graph one layer up.
func NewComponent(engine *Engine) *ComponentWrapper {
	return &ComponentWrapper{Engine: engine, name: "workflow_engine"}
}

func (w *ComponentWrapper) Name() string { return w.name }

func (w *ComponentWrapper) Initialize(context.Context, core.Services) error {
	if w.Engine == nil {
		return core.NewError(core.KindConfigurationInvalid, "workflow engine not constructed before Initialize", nil)
	}
	return nil
}

func (w *ComponentWrapper) Shutdown(context.Context) error { return nil }

func (w *ComponentWrapper) ComponentDependencies() []string        { return nil }
func (w *ComponentWrapper) ServiceDependencies() []core.ServiceKind { return nil }
func (w *ComponentWrapper) InjectDependency(string, core.Component) {}

var _ core.Component = (*ComponentWrapper)(nil)
