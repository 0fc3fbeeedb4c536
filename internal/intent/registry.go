package intent

import (
	"regexp"
	"strings"
	"sync"
)

// pattern is one compiled matching rule a [Handler] was registered under.
type pattern struct {
	raw      string
	handler  Handler
	re       *regexp.Regexp // nil for an exact-name pattern
	specificity int          // longer/more specific patterns win ties
}

// Registry maps intent names to [Handler]s via exact names, wildcard
// patterns ("weather.*", "timer.?"), or implicit domain fallback (a handler
// registered for domain "weather" serves any "weather.<any>" intent lacking
// a more specific match).
//
// Grounded on internal/mcp/mcphost/host.go's tool registration map, indexed
// here by intent pattern instead of tool name, plus a parallel index by
// contextual command (spec §4.5 "indexes handlers by supported contextual
// command").
type Registry struct {
	mu sync.RWMutex

	exact    map[string]Handler
	wildcard []pattern
	domains  map[string]Handler // domain fallback: bare "weather" registration

	byContextualCommand map[string][]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:                make(map[string]Handler),
		domains:              make(map[string]Handler),
		byContextualCommand:  make(map[string][]Handler),
	}
}

// Register associates handler with pattern, which may be an exact intent
// name ("timer.set"), a wildcard ("weather.*", "timer.?"), or a bare domain
// name ("weather") used as a fallback for any "weather.<any>" intent that no
// more specific pattern matches.
func (r *Registry) Register(patternStr string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case !strings.ContainsAny(patternStr, ".*?"):
		r.domains[patternStr] = handler
	case !strings.ContainsAny(patternStr, "*?"):
		r.exact[patternStr] = handler
	default:
		re := compileWildcard(patternStr)
		r.wildcard = append(r.wildcard, pattern{raw: patternStr, handler: handler, re: re, specificity: len(patternStr)})
	}

	if cp, ok := handler.(ContextualCommandProvider); ok {
		for _, cmd := range cp.SupportedContextualCommands() {
			r.byContextualCommand[cmd] = append(r.byContextualCommand[cmd], handler)
		}
	}
}

// compileWildcard turns a pattern like "weather.*" or "timer.?" into a
// regular expression: "*" matches one dot-free segment's remainder greedily,
// "?" matches a single character, and "." is escaped so it only matches a
// literal dot.
func compileWildcard(patternStr string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range patternStr {
		switch r {
		case '*':
			b.WriteString("[^.]*")
		case '?':
			b.WriteString(".")
		case '.':
			b.WriteString(`\.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// Resolve finds the handler for intentName, preferring the longest/most
// specific matching pattern, then exact domain fallback. ok is false if no
// handler matches.
func (r *Registry) Resolve(intentName string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.exact[intentName]; ok {
		return h, true
	}

	var best Handler
	bestSpecificity := -1
	for _, p := range r.wildcard {
		if p.re.MatchString(intentName) && p.specificity > bestSpecificity {
			best = p.handler
			bestSpecificity = p.specificity
		}
	}
	if best != nil {
		return best, true
	}

	if domain, _, ok := strings.Cut(intentName, "."); ok {
		if h, ok := r.domains[domain]; ok {
			return h, true
		}
	}

	return nil, false
}

// HandlersForContextualCommand returns every handler registered as capable
// of servicing the given contextual command (stop, pause, resume, ...).
func (r *Registry) HandlersForContextualCommand(command string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, len(r.byContextualCommand[command]))
	copy(out, r.byContextualCommand[command])
	return out
}
