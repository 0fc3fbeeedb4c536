package core

import "context"

// ServiceKind enumerates the fixed set of framework services a component may
// declare a dependency on via [Component.ServiceDependencies].
type ServiceKind string

const (
	ServiceContextManager  ServiceKind = "context_manager"
	ServiceTimerManager    ServiceKind = "timer_manager"
	ServiceWorkflowManager ServiceKind = "workflow_manager"
	ServicePluginManager   ServiceKind = "plugin_manager"
	ServiceInputManager    ServiceKind = "input_manager"
	ServiceConfig          ServiceKind = "config"
)

// Services bundles the framework-level collaborators a [Component] may
// request via [Component.ServiceDependencies]. Fields are populated by the
// [Manager] before Initialize is called; a component must only read the
// fields for services it declared.
type Services struct {
	ContextManager  any
	TimerManager    any
	WorkflowManager any
	PluginManager   any
	InputManager    any
	Config          any
}

// Component is the lifecycle contract every pluggable subsystem implements.
// Initialize must be idempotent: the [Manager] guarantees it is called at
// most once per component per process, but implementations should not rely
// on that invariant holding for direct callers outside the manager.
type Component interface {
	Name() string
	Initialize(ctx context.Context, services Services) error
	Shutdown(ctx context.Context) error

	// ComponentDependencies lists the names of other components this one
	// requires to have already been initialized.
	ComponentDependencies() []string

	// ServiceDependencies lists the framework services this component
	// requires, keyed by the ServiceKind it expects in [Services].
	ServiceDependencies() []ServiceKind

	// InjectDependency is called once per declared component dependency,
	// after that dependency has initialized successfully.
	InjectDependency(name string, dep Component)
}

// Coordinator is an optional extension a [Component] may implement to
// participate in the second, post-initialization wiring pass (spec §4.1
// "Post-initialization coordination"): NLU donation loading, per-handler
// component-dependency injection, and context-manager injection into intent
// handlers for fire-and-forget tracking all happen here, once every
// component that initialized successfully is visible to every other one.
type Coordinator interface {
	PostInitialize(ctx context.Context, m *Manager) error
}
