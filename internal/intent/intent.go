// Package intent implements natural-language routing: a [Recognizer] that
// delegates to pluggable NLU providers, a [Registry] that maps intents to
// handlers by exact name, wildcard pattern, or domain fallback, and an
// [Orchestrator] that runs the full execution pipeline including contextual
// command disambiguation across concurrently running fire-and-forget
// actions.
//
// Grounded on internal/agent/orchestrator/orchestrator.go (snapshot-under-lock
// then release-before-IO locking discipline) and internal/mcp/mcphost/host.go
// (discover-then-register tool/handler indexing), generalized from NPC
// routing and MCP tool dispatch to intent routing.
package intent

import (
	"time"

	"github.com/irenevoice/irenecore/internal/contextmgr"
)

// Intent is a single recognized user request: a dot-separated name
// ("domain.action"), the entities extracted from the utterance, and a
// recognizer confidence.
type Intent struct {
	Name       string
	Domain     string
	Action     string
	Text       string
	Entities   map[string]any
	Confidence float64
	SessionID  string
}

// WithEntity returns a copy of i with key set to value in Entities.
func (i Intent) WithEntity(key string, value any) Intent {
	entities := make(map[string]any, len(i.Entities)+1)
	for k, v := range i.Entities {
		entities[k] = v
	}
	entities[key] = value
	i.Entities = entities
	return i
}

// Rewrite returns a copy of i with Name/Domain/Action replaced by rewriting
// to "{domain}.{action}", as the contextual resolution step does.
func (i Intent) Rewrite(domain, action string) Intent {
	i.Domain = domain
	i.Action = action
	i.Name = domain + "." + action
	return i
}

// ContextualDomain is the synthetic domain used for commands that must be
// resolved against currently active fire-and-forget actions rather than
// matched directly to a handler (spec §4.5 step 2).
const ContextualDomain = "contextual"

// GeneralConversationIntent is emitted by the [Recognizer] when no provider
// produces a confident result; the original utterance is carried as the
// "text" entity.
const GeneralConversationIntent = "conversation.general"

// Result is what a [Handler] returns from a successful or failed execution.
type Result struct {
	Text                 string
	Success              bool
	Metadata             map[string]any
	RequiresConfirmation bool
	DisambiguationPrompt string

	// ShouldSpeak gates TTS synthesis of Text in the workflow engine's
	// tts/audio_output stages (spec §4.3): audio is only produced when the
	// caller asked for it (wants_audio) AND the handler set this. Handlers
	// that only ever act (no spoken confirmation) leave this false.
	ShouldSpeak bool
}

// Handler is the contract every intent handler implements.
type Handler interface {
	CanHandle(i Intent) bool
	Execute(ctx *contextmgr.UnifiedConversationContext, i Intent) (Result, error)
}

// DonationRouter is an optional extension a [Handler] may implement to
// dispatch via a named donation method instead of a single Execute entry
// point (spec §4.5 "execute_with_donation_routing").
type DonationRouter interface {
	ExecuteWithDonationRouting(ctx *contextmgr.UnifiedConversationContext, i Intent, methodName string) (Result, error)
}

// DomainProvider is an optional extension exposing the domains a [Handler]
// serves, used for domain-fallback registry resolution.
type DomainProvider interface {
	SupportedDomains() []string
}

// ActionProvider is an optional extension exposing the specific actions a
// [Handler] serves.
type ActionProvider interface {
	SupportedActions() []string
}

// ContextualCommandProvider is an optional extension exposing the
// contextual commands (stop, pause, resume, cancel, volume, next, previous)
// a [Handler] can service, used to index handlers for contextual resolution.
type ContextualCommandProvider interface {
	SupportedContextualCommands() []string
}

// ErrorHandler is an optional extension a [Handler] may implement to match
// on the kind of exception raised during execution and produce a recovery
// [Result] instead of surfacing execution_error.
type ErrorHandler interface {
	HandleError(ctx *contextmgr.UnifiedConversationContext, i Intent, err error) (Result, bool)
}

// ExecutionRecord is what [Orchestrator.Execute] passes to
// [OrchestratorConfig.OnExecution], when set, for every attempted execution.
type ExecutionRecord struct {
	IntentName string
	Success    bool
	Latency    time.Duration
	Err        error
}
