package contextmgr

import (
	"sync"
	"time"

	"github.com/irenevoice/irenecore/pkg/memory"
)

// ActiveAction is a fire-and-forget task a handler registered as still
// running, keyed by action name in [UnifiedConversationContext.ActiveActions].
type ActiveAction struct {
	Domain    string
	Handler   string
	StartedAt time.Time
}

// DisambiguationContext is the short-lived state stored when a contextual
// command could not be resolved unambiguously, so the next turn can resolve
// against it (e.g. a direct answer to "which one did you mean?").
type DisambiguationContext struct {
	Action     string
	Candidates []string
	StoredAt   time.Time
}

func (d DisambiguationContext) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(d.StoredAt) > ttl
}

// disambiguationTTL is the fixed lifetime of stored disambiguation context
// (spec §4.6: "stored object expires after 300 s").
const disambiguationTTL = 300 * time.Second

// UnifiedConversationContext is the per-session mutable record threaded
// through the intent pipeline: bounded turn history, currently running
// fire-and-forget actions, and free-form metadata.
//
// All exported methods are safe for concurrent use; callers outside this
// package should prefer the accessor methods over touching fields directly,
// since every mutation must also bump LastUpdated.
type UnifiedConversationContext struct {
	SessionID string
	Language  string

	mu              sync.Mutex
	history         []memory.TranscriptEntry
	maxHistoryTurns int
	activeActions   map[string]ActiveAction
	recentIntents   []string
	currentDomain   string
	disambiguation  *DisambiguationContext
	preferences     map[string]string

	CreatedAt   time.Time
	LastUpdated time.Time
}

// newContext creates a context for sessionID with the given history bound.
// language defaults to "ru" per spec §4.6 ("On first access ... create a
// context with language = ru").
func newContext(sessionID string, maxHistoryTurns int) *UnifiedConversationContext {
	now := time.Now()
	return &UnifiedConversationContext{
		SessionID:       sessionID,
		Language:        "ru",
		maxHistoryTurns: maxHistoryTurns,
		activeActions:   make(map[string]ActiveAction),
		preferences:     make(map[string]string),
		CreatedAt:       now,
		LastUpdated:     now,
	}
}

// AddTurn appends entry to the bounded ring buffer, evicting the oldest turn
// if the buffer is already at maxHistoryTurns.
func (c *UnifiedConversationContext) AddTurn(entry memory.TranscriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, entry)
	if c.maxHistoryTurns > 0 && len(c.history) > c.maxHistoryTurns {
		c.history = c.history[len(c.history)-c.maxHistoryTurns:]
	}
	c.touch()
}

// History returns a snapshot of the bounded turn history.
func (c *UnifiedConversationContext) History() []memory.TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]memory.TranscriptEntry, len(c.history))
	copy(out, c.history)
	return out
}

// RegisterActiveAction records a fire-and-forget task under name. Handlers
// must call [UnifiedConversationContext.RemoveActiveAction] on completion.
func (c *UnifiedConversationContext) RegisterActiveAction(name string, action ActiveAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if action.StartedAt.IsZero() {
		action.StartedAt = time.Now()
	}
	c.activeActions[name] = action
	c.touch()
}

// RemoveActiveAction removes a completed or cancelled fire-and-forget task.
func (c *UnifiedConversationContext) RemoveActiveAction(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeActions, name)
	c.touch()
}

// ActiveActions returns a snapshot of currently registered actions.
func (c *UnifiedConversationContext) ActiveActions() map[string]ActiveAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ActiveAction, len(c.activeActions))
	for k, v := range c.activeActions {
		out[k] = v
	}
	return out
}

// RecordIntent appends name to the rolling window of the 5 most recent
// intents and sets the current domain to domain.
func (c *UnifiedConversationContext) RecordIntent(name, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recentIntents = append(c.recentIntents, name)
	const maxRecent = 5
	if len(c.recentIntents) > maxRecent {
		c.recentIntents = c.recentIntents[len(c.recentIntents)-maxRecent:]
	}
	c.currentDomain = domain
	c.touch()
}

// RecentIntents returns the rolling window of the last 5 intent names.
func (c *UnifiedConversationContext) RecentIntents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.recentIntents))
	copy(out, c.recentIntents)
	return out
}

// CurrentDomain returns the domain of the most recently recorded intent.
func (c *UnifiedConversationContext) CurrentDomain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentDomain
}

// StoreDisambiguation records the pending disambiguation state, expiring
// after [disambiguationTTL].
func (c *UnifiedConversationContext) StoreDisambiguation(action string, candidates []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disambiguation = &DisambiguationContext{
		Action:     action,
		Candidates: candidates,
		StoredAt:   time.Now(),
	}
	c.touch()
}

// GetDisambiguation returns the pending disambiguation context, or
// (zero, false) if none is stored or it has expired.
func (c *UnifiedConversationContext) GetDisambiguation() (DisambiguationContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disambiguation == nil || c.disambiguation.expired(time.Now(), disambiguationTTL) {
		return DisambiguationContext{}, false
	}
	return *c.disambiguation, true
}

// ClearDisambiguation discards any pending disambiguation context.
func (c *UnifiedConversationContext) ClearDisambiguation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disambiguation = nil
	c.touch()
}

// SetPreference persists a per-session user preference (e.g. "language").
func (c *UnifiedConversationContext) SetPreference(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferences[key] = value
	c.touch()
}

// Preference returns a stored per-session preference.
func (c *UnifiedConversationContext) Preference(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.preferences[key]
	return v, ok
}

// idleSince reports how long the context has gone without a mutation.
func (c *UnifiedConversationContext) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.LastUpdated)
}

// touch bumps LastUpdated. Callers must hold c.mu.
func (c *UnifiedConversationContext) touch() {
	c.LastUpdated = time.Now()
}
