package intent

import (
	"log/slog"
	"sort"
	"time"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/core"
	"github.com/irenevoice/irenecore/pkg/memory"
)

// Middleware transforms an intent before dispatch (e.g. entity
// normalization, profanity filtering). A middleware failure is logged and
// skipped — it never aborts the pipeline (spec §4.5 step 1).
type Middleware func(i Intent, convCtx *contextmgr.UnifiedConversationContext) (Intent, error)

// defaultDestructiveCommands are the contextual actions that always force a
// disambiguation prompt on a multi-domain tie, regardless of domain count
// (spec §4.5 step 2e).
var defaultDestructiveCommands = []string{"stop", "cancel", "delete", "remove"}

// OrchestratorConfig configures an [Orchestrator].
type OrchestratorConfig struct {
	// DomainPriorities scores a domain's standing in contextual resolution
	// ties; missing domains score 0.
	DomainPriorities map[string]int

	// DestructiveCommands overrides [defaultDestructiveCommands] when
	// non-nil.
	DestructiveCommands []string

	// OnExecution, when non-nil, is called once per attempted handler
	// execution with latency and outcome, for callers that record metrics.
	OnExecution func(ExecutionRecord)
}

func (c OrchestratorConfig) destructive() map[string]bool {
	cmds := c.DestructiveCommands
	if cmds == nil {
		cmds = defaultDestructiveCommands
	}
	out := make(map[string]bool, len(cmds))
	for _, c := range cmds {
		out[c] = true
	}
	return out
}

// Orchestrator runs the full intent execution pipeline: middleware,
// contextual resolution, registry lookup, handler dispatch (preferring
// donation routing), metrics recording, context update, and error-handler
// recovery.
//
// Grounded on internal/agent/orchestrator/orchestrator.go's Route pipeline
// shape and on spec §4.5's seven-step execution pipeline.
type Orchestrator struct {
	registry   *Registry
	middleware []Middleware
	cfg        OrchestratorConfig
	destructive map[string]bool
}

// NewOrchestrator creates an Orchestrator backed by registry.
func NewOrchestrator(registry *Registry, middleware []Middleware, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		middleware:  middleware,
		cfg:         cfg,
		destructive: cfg.destructive(),
	}
}

// Execute runs the full pipeline for intent i against session convCtx.
func (o *Orchestrator) Execute(convCtx *contextmgr.UnifiedConversationContext, i Intent) (Result, error) {
	i = o.applyMiddleware(i, convCtx)

	if i.Domain == ContextualDomain {
		resolved, result, handled, err := o.resolveContextual(convCtx, i)
		if err != nil {
			return Result{}, err
		}
		if handled {
			return result, nil
		}
		i = resolved
	}

	handler, ok := o.registry.Resolve(i.Name)
	if !ok {
		return Result{}, core.NewError(core.KindNoHandler, "no handler registered for intent "+i.Name, nil)
	}
	if !handler.CanHandle(i) {
		return Result{}, core.NewError(core.KindHandlerUnavailable, "handler declined intent "+i.Name, nil)
	}

	start := time.Now()
	result, err := o.dispatch(handler, convCtx, i)
	latency := time.Since(start)

	if err != nil {
		if eh, ok := handler.(ErrorHandler); ok {
			if recovered, handled := eh.HandleError(convCtx, i, err); handled {
				o.recordExecution(i.Name, true, latency, nil)
				o.updateContext(convCtx, i, recovered)
				return recovered, nil
			}
		}
		o.recordExecution(i.Name, false, latency, err)
		return Result{}, core.NewError(core.KindExecutionError, "handler execution failed for "+i.Name, err)
	}

	o.recordExecution(i.Name, true, latency, nil)
	o.updateContext(convCtx, i, result)
	return result, nil
}

func (o *Orchestrator) applyMiddleware(i Intent, convCtx *contextmgr.UnifiedConversationContext) Intent {
	for _, mw := range o.middleware {
		transformed, err := mw(i, convCtx)
		if err != nil {
			slog.Warn("intent middleware failed, continuing with untransformed intent", "intent", i.Name, "err", err)
			continue
		}
		i = transformed
	}
	return i
}

func (o *Orchestrator) dispatch(handler Handler, convCtx *contextmgr.UnifiedConversationContext, i Intent) (Result, error) {
	methodName, hasDonation := i.Entities["_donation_method"].(string)
	if router, ok := handler.(DonationRouter); ok && hasDonation {
		return router.ExecuteWithDonationRouting(convCtx, i, methodName)
	}
	return handler.Execute(convCtx, i)
}

func (o *Orchestrator) recordExecution(name string, success bool, latency time.Duration, err error) {
	if o.cfg.OnExecution != nil {
		o.cfg.OnExecution(ExecutionRecord{IntentName: name, Success: success, Latency: latency, Err: err})
	}
}

func (o *Orchestrator) updateContext(convCtx *contextmgr.UnifiedConversationContext, i Intent, result Result) {
	convCtx.AddTurn(memory.TranscriptEntry{Text: i.Text, Timestamp: time.Now()})
	if result.Text != "" {
		convCtx.AddTurn(memory.TranscriptEntry{Text: result.Text, IsNPC: true, Timestamp: time.Now()})
	}
	convCtx.RecordIntent(i.Name, i.Domain)
}

// domainScore is a domain's contextual-resolution standing, per spec §4.5
// step 2c.
type domainScore struct {
	domain string
	total  float64
}

// resolveContextual implements spec §4.5 step 2: resolving a "contextual"
// intent (stop/pause/resume/...) against the domains of currently active
// fire-and-forget actions. It returns either a rewritten intent ready for
// normal registry dispatch (handled=false), or a terminal disambiguation
// [Result] (handled=true) when the candidates are too ambiguous to resolve
// automatically.
func (o *Orchestrator) resolveContextual(convCtx *contextmgr.UnifiedConversationContext, i Intent) (Intent, Result, bool, error) {
	active := convCtx.ActiveActions()
	if len(active) == 0 {
		return Intent{}, Result{}, false, core.NewError(core.KindNoActiveActions, "no active actions to target contextual command "+i.Action, nil)
	}

	capableHandlers := o.registry.HandlersForContextualCommand(i.Action)
	if len(capableHandlers) == 0 {
		return Intent{}, Result{}, false, core.NewError(core.KindNoCapableHandlers, "no handler supports contextual command "+i.Action, nil)
	}
	capableDomains := domainsOf(capableHandlers)

	now := time.Now()
	byDomain := make(map[string][]contextmgr.ActiveAction)
	for _, a := range active {
		if capableDomains != nil && !capableDomains[a.Domain] {
			continue
		}
		byDomain[a.Domain] = append(byDomain[a.Domain], a)
	}
	if len(byDomain) == 0 {
		return Intent{}, Result{}, false, core.NewError(core.KindNoCapableHandlers, "no capable handler services any domain with an active action", nil)
	}

	scores := make([]domainScore, 0, len(byDomain))
	for domain, actions := range byDomain {
		priority := float64(min(o.cfg.DomainPriorities[domain], 100))

		latest := actions[0].StartedAt
		for _, a := range actions[1:] {
			if a.StartedAt.After(latest) {
				latest = a.StartedAt
			}
		}
		ageMinutes := now.Sub(latest).Minutes()
		recency := max(0, 50-ageMinutes)

		multiplicity := float64(min(5*len(actions), 20))

		scores = append(scores, domainScore{domain: domain, total: priority + recency + multiplicity})
	}
	sort.Slice(scores, func(a, b int) bool {
		if scores[a].total != scores[b].total {
			return scores[a].total > scores[b].total
		}
		return scores[a].domain < scores[b].domain // deterministic tie-break
	})

	top := scores[0].total
	var ties []string
	for _, s := range scores {
		if top-s.total <= 10 {
			ties = append(ties, s.domain)
		}
	}

	if len(ties) > 1 && (o.destructive[i.Action] || len(byDomain) >= 3) {
		convCtx.StoreDisambiguation(i.Action, ties)
		return Intent{}, Result{
			Success:              false,
			RequiresConfirmation: true,
			DisambiguationPrompt: disambiguationPrompt(i.Action, ties),
			Metadata:             map[string]any{"requires_disambiguation": true, "candidates": ties},
		}, true, nil
	}

	chosen := scores[0].domain
	rewritten := i.Rewrite(chosen, i.Action).WithEntity("_contextual_resolution", map[string]any{
		"domain":     chosen,
		"confidence": min(top/150.0, 1.0),
	})
	return rewritten, Result{}, false, nil
}

func domainsOf(handlers []Handler) map[string]bool {
	var out map[string]bool
	for _, h := range handlers {
		dp, ok := h.(DomainProvider)
		if !ok {
			return nil // at least one handler declares no domain restriction: treat as universal
		}
		if out == nil {
			out = make(map[string]bool)
		}
		for _, d := range dp.SupportedDomains() {
			out[d] = true
		}
	}
	return out
}

func disambiguationPrompt(action string, domains []string) string {
	prompt := "Which did you mean by \"" + action + "\"? Options: "
	for idx, d := range domains {
		if idx > 0 {
			prompt += ", "
		}
		prompt += d
	}
	return prompt
}
