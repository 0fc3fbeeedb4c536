package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Profile is the deployment profile derived from the enabled component set.
type Profile string

const (
	ProfileVoice    Profile = "voice"
	ProfileAPI      Profile = "api"
	ProfileHeadless Profile = "headless"
)

// Factory constructs a fresh, uninitialized [Component] instance. Registered
// per component name in a [Manager]'s component registry.
type Factory func() (Component, error)

// Manager discovers component factories from a namespaced [Registry],
// resolves a topological initialization order restricted to the enabled
// set, initializes components with dependency injection and graceful
// degradation, and shuts them down in reverse order.
//
// The zero value is not usable; construct with [NewManager].
type Manager struct {
	registry *Registry[Component]
	services Services

	mu        sync.RWMutex
	enabled   map[string]bool
	components map[string]Component
	failed     map[string]error
	order      []string // successful initialization order, for reverse shutdown
	initialized bool    // set by the first Initialize call
}

// NewManager creates a Manager backed by registry. services is the framework
// service bundle injected into every component that declares a need for it.
func NewManager(registry *Registry[Component], services Services) *Manager {
	return &Manager{
		registry:   registry,
		services:   services,
		enabled:    make(map[string]bool),
		components: make(map[string]Component),
		failed:     make(map[string]error),
	}
}

// SetEnabled configures which component names are eligible for
// initialization. Names absent from this map (or set to false) are skipped
// entirely — they are neither instantiated nor considered for dependency
// resolution.
func (m *Manager) SetEnabled(enabled map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = make(map[string]bool, len(enabled))
	for k, v := range enabled {
		m.enabled[k] = v
	}
}

// Initialize instantiates every enabled component in dependency order,
// injecting declared component and service dependencies, then runs the
// post-initialization coordination pass. A component that fails to
// initialize is recorded in the failed set and does not abort the overall
// sequence — dependents of a failed component are still attempted (and may
// themselves fail, cascading gracefully rather than aborting). Calls after
// the first return nil immediately.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	names := m.registry.Names()
	enabledNames := make([]string, 0, len(names))
	for _, n := range names {
		if m.enabled[n] {
			enabledNames = append(enabledNames, n)
		}
	}
	m.mu.Unlock()

	order, err := m.resolveOrder(enabledNames)
	if err != nil {
		return NewError(KindConfigurationInvalid, "cannot resolve component initialization order", err)
	}
	slog.Info("component initialization order resolved", "order", order)

	for _, name := range order {
		m.initOne(ctx, name)
	}

	if err := m.postInitialize(ctx); err != nil {
		slog.Error("post-initialization coordination failed", "err", err)
	}

	m.mu.RLock()
	profile := m.deploymentProfile()
	succeeded := len(m.components)
	failedCount := len(m.failed)
	m.mu.RUnlock()
	slog.Info("components initialized", "profile", profile, "succeeded", succeeded, "failed", failedCount)

	return nil
}

// initOne instantiates and initializes a single component, recording
// success in m.components/m.order or failure in m.failed. Dependencies that
// themselves failed are simply absent from InjectDependency calls; the
// component's own Initialize call decides whether to tolerate a missing
// dependency or fail.
func (m *Manager) initOne(ctx context.Context, name string) {
	comp, err := m.registry.Create(name)
	if err != nil {
		m.recordFailure(name, err)
		return
	}

	m.mu.RLock()
	for _, depName := range comp.ComponentDependencies() {
		if dep, ok := m.components[depName]; ok {
			comp.InjectDependency(depName, dep)
		} else {
			slog.Warn("component dependency unavailable, continuing in degraded mode",
				"component", name, "dependency", depName)
		}
	}
	m.mu.RUnlock()

	if err := comp.Initialize(ctx, m.servicesFor(comp)); err != nil {
		m.recordFailure(name, err)
		return
	}

	m.mu.Lock()
	m.components[name] = comp
	m.order = append(m.order, name)
	m.mu.Unlock()
	slog.Info("component initialized", "component", name)
}

// servicesFor returns the subset of the global [Services] bundle that comp
// declared a dependency on; undeclared fields are left as their zero value
// so a component cannot accidentally read a service it never asked for.
func (m *Manager) servicesFor(comp Component) Services {
	var out Services
	for _, svc := range comp.ServiceDependencies() {
		switch svc {
		case ServiceContextManager:
			out.ContextManager = m.services.ContextManager
		case ServiceTimerManager:
			out.TimerManager = m.services.TimerManager
		case ServiceWorkflowManager:
			out.WorkflowManager = m.services.WorkflowManager
		case ServicePluginManager:
			out.PluginManager = m.services.PluginManager
		case ServiceInputManager:
			out.InputManager = m.services.InputManager
		case ServiceConfig:
			out.Config = m.services.Config
		}
	}
	return out
}

func (m *Manager) recordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[name] = err
	slog.Warn("component failed to initialize, continuing with graceful degradation",
		"component", name, "err", err)
}

// postInitialize runs the second wiring pass: every [Component] that
// implements [Coordinator] and initialized successfully gets a chance to
// cross-wire against the now-complete component set. A coordination failure
// is logged but never aborts startup.
func (m *Manager) postInitialize(ctx context.Context) error {
	m.mu.RLock()
	coordinators := make([]Coordinator, 0)
	for _, name := range m.order {
		if c, ok := m.components[name].(Coordinator); ok {
			coordinators = append(coordinators, c)
		}
	}
	m.mu.RUnlock()

	var firstErr error
	for _, c := range coordinators {
		if err := c.PostInitialize(ctx, m); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("coordinator post-initialization failed", "err", err)
		}
	}
	return firstErr
}

// Component returns the initialized component registered under name, or
// (nil, false) if it was never initialized (disabled or failed).
func (m *Manager) Component(name string) (Component, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.components[name]
	return c, ok
}

// Failed returns a snapshot of component name to initialization error for
// every component that failed to initialize.
func (m *Manager) Failed() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]error, len(m.failed))
	for k, v := range m.failed {
		out[k] = v
	}
	return out
}

// Status is a point-in-time summary of one registered component, reported
// by [Manager.Status] for the web API's /status and /components endpoints.
type Status struct {
	Name  string `json:"name"`
	State string `json:"state"` // "running", "failed", or "disabled"
	Error string `json:"error,omitempty"`
}

// Status returns a snapshot of every component the registry knows about,
// regardless of whether it was enabled, successfully initialized, or
// failed — the web API surfaces this verbatim so an operator can see the
// full registered set, not just the running subset.
func (m *Manager) Status() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := m.registry.Names()
	out := make([]Status, 0, len(names))
	for _, name := range names {
		st := Status{Name: name}
		switch {
		case m.components[name] != nil:
			st.State = "running"
		case m.failed[name] != nil:
			st.State = "failed"
			st.Error = m.failed[name].Error()
		default:
			st.State = "disabled"
		}
		out = append(out, st)
	}
	return out
}

// Shutdown tears down all successfully initialized components in reverse
// initialization order. Errors from individual components are logged and
// collected but do not stop remaining shutdowns.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	order := make([]string, len(m.order))
	copy(order, m.order)
	m.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		m.mu.RLock()
		comp := m.components[name]
		m.mu.RUnlock()
		if err := comp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %q: %w", name, err))
			slog.Warn("component shutdown error", "component", name, "err", err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("core: %d component(s) failed to shut down cleanly: %v", len(errs), errs)
	}
	return nil
}

// DeploymentProfile derives the running deployment profile from the set of
// successfully initialized components.
func (m *Manager) DeploymentProfile() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deploymentProfile()
}

func (m *Manager) deploymentProfile() Profile {
	has := func(name string) bool {
		_, ok := m.components[name]
		return ok
	}
	switch {
	case has("mic") && has("tts") && has("audio_output") && has("asr"):
		return ProfileVoice
	case has("web") && !has("tts"):
		return ProfileAPI
	case has("cli") && !has("mic") && !has("web"):
		return ProfileHeadless
	default:
		return Profile(fmt.Sprintf("custom(%d)", len(m.components)))
	}
}

// resolveOrder performs Kahn's algorithm over the dependency graph
// restricted to enabledNames. A component dependency edge not present in
// enabledNames is ignored (it cannot be satisfied, which is handled as a
// warning at injection time, not a topology error). A cycle is a
// configuration error.
func (m *Manager) resolveOrder(enabledNames []string) ([]string, error) {
	enabledSet := make(map[string]bool, len(enabledNames))
	for _, n := range enabledNames {
		enabledSet[n] = true
	}

	inDegree := make(map[string]int, len(enabledNames))
	graph := make(map[string][]string, len(enabledNames))
	for _, n := range enabledNames {
		inDegree[n] = 0
		graph[n] = nil
	}

	for _, n := range enabledNames {
		comp, err := m.registry.Create(n)
		if err != nil {
			continue // unresolved dependencies surface later as init failures
		}
		for _, dep := range comp.ComponentDependencies() {
			if !enabledSet[dep] {
				continue
			}
			graph[dep] = append(graph[dep], n)
			inDegree[n]++
		}
	}

	var queue []string
	for _, n := range enabledNames {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue) // deterministic ordering among ties

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var next []string
		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				next = append(next, neighbor)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	if len(order) != len(enabledNames) {
		return nil, fmt.Errorf("cycle detected among enabled components")
	}
	return order, nil
}
