package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irenevoice/irenecore/internal/contextmgr"
	"github.com/irenevoice/irenecore/internal/core"
)

type domainHandler struct {
	domain   string
	commands []string
	executed []Intent
}

func (d *domainHandler) CanHandle(Intent) bool { return true }
func (d *domainHandler) SupportedDomains() []string            { return []string{d.domain} }
func (d *domainHandler) SupportedContextualCommands() []string { return d.commands }
func (d *domainHandler) Execute(convCtx *contextmgr.UnifiedConversationContext, i Intent) (Result, error) {
	d.executed = append(d.executed, i)
	for name, a := range convCtx.ActiveActions() {
		if a.Domain == d.domain {
			convCtx.RemoveActiveAction(name)
		}
	}
	return Result{Success: true, Text: d.domain + " stopped"}, nil
}

func newTestContext() *contextmgr.UnifiedConversationContext {
	m := contextmgr.NewManager(contextmgr.Config{})
	return m.Get("kitchen_session")
}

func TestOrchestrator_NoActiveActions(t *testing.T) {
	reg := NewRegistry()
	o := NewOrchestrator(reg, nil, OrchestratorConfig{})
	convCtx := newTestContext()

	_, err := o.Execute(convCtx, Intent{Name: "contextual.stop", Domain: ContextualDomain, Action: "stop"})
	require.Error(t, err)
	assert.Equal(t, core.KindNoActiveActions, core.KindOf(err))
}

func TestOrchestrator_ContextualStopWithPriority(t *testing.T) {
	reg := NewRegistry()
	audio := &domainHandler{domain: "audio", commands: []string{"stop"}}
	timer := &domainHandler{domain: "timer", commands: []string{"stop"}}
	reg.Register("audio.stop", audio)
	reg.Register("timer.stop", timer)

	o := NewOrchestrator(reg, nil, OrchestratorConfig{
		DomainPriorities: map[string]int{"audio": 90, "timer": 70},
	})
	convCtx := newTestContext()
	convCtx.RegisterActiveAction("play_music", contextmgr.ActiveAction{Domain: "audio", StartedAt: time.Now().Add(-30 * time.Second)})
	convCtx.RegisterActiveAction("set_timer", contextmgr.ActiveAction{Domain: "timer", StartedAt: time.Now().Add(-10 * time.Second)})

	result, err := o.Execute(convCtx, Intent{Name: "contextual.stop", Domain: ContextualDomain, Action: "stop"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, audio.executed, 1)
	assert.Empty(t, timer.executed)

	_, stillActive := convCtx.ActiveActions()["play_music"]
	assert.False(t, stillActive)
}

func TestOrchestrator_ContextualStopAmbiguousDestructive(t *testing.T) {
	reg := NewRegistry()
	audio := &domainHandler{domain: "audio", commands: []string{"stop"}}
	timer := &domainHandler{domain: "timer", commands: []string{"stop"}}
	reg.Register("audio.stop", audio)
	reg.Register("timer.stop", timer)

	o := NewOrchestrator(reg, nil, OrchestratorConfig{
		DomainPriorities: map[string]int{"audio": 70, "timer": 75},
	})
	convCtx := newTestContext()
	convCtx.RegisterActiveAction("a1", contextmgr.ActiveAction{Domain: "audio", StartedAt: time.Now()})
	convCtx.RegisterActiveAction("t1", contextmgr.ActiveAction{Domain: "timer", StartedAt: time.Now()})

	result, err := o.Execute(convCtx, Intent{Name: "contextual.stop", Domain: ContextualDomain, Action: "stop"})
	require.NoError(t, err)
	assert.True(t, result.RequiresConfirmation)
	assert.Empty(t, audio.executed)
	assert.Empty(t, timer.executed)

	_, stored := convCtx.GetDisambiguation()
	assert.True(t, stored)
}

func TestOrchestrator_NoCapableHandlers(t *testing.T) {
	reg := NewRegistry()
	o := NewOrchestrator(reg, nil, OrchestratorConfig{})
	convCtx := newTestContext()
	convCtx.RegisterActiveAction("play_music", contextmgr.ActiveAction{Domain: "audio"})

	_, err := o.Execute(convCtx, Intent{Name: "contextual.volume", Domain: ContextualDomain, Action: "volume"})
	require.Error(t, err)
	assert.Equal(t, core.KindNoCapableHandlers, core.KindOf(err))
}

func TestOrchestrator_NoHandlerRegistered(t *testing.T) {
	reg := NewRegistry()
	o := NewOrchestrator(reg, nil, OrchestratorConfig{})
	convCtx := newTestContext()

	_, err := o.Execute(convCtx, Intent{Name: "timer.set", Domain: "timer", Action: "set"})
	require.Error(t, err)
	assert.Equal(t, core.KindNoHandler, core.KindOf(err))
}

func TestOrchestrator_MiddlewareFailureIsNonFatal(t *testing.T) {
	reg := NewRegistry()
	h := &domainHandler{domain: "timer"}
	reg.Register("timer.set", h)

	failing := func(i Intent, _ *contextmgr.UnifiedConversationContext) (Intent, error) {
		return Intent{}, assertErr
	}
	o := NewOrchestrator(reg, []Middleware{failing}, OrchestratorConfig{})
	convCtx := newTestContext()

	result, err := o.Execute(convCtx, Intent{Name: "timer.set", Domain: "timer", Action: "set"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

var assertErr = core.NewError(core.KindExecutionError, "induced middleware failure", nil)
