package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/agenda"
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Operation identifies the top-level session call a propagation belongs to.
type Operation int

const (
	OpNone Operation = iota
	OpInsert
	OpUpdate
	OpRetract
	OpFire
)

func (o Operation) String() string {
	return [...]string{"none", "insert", "update", "retract", "fire"}[o]
}

// ExecutionContext is the per-propagation scratch passed by reference to
// every node. A single instance is reused across calls; Reset clears its
// mutable fields at the start of each top-level operation.
type ExecutionContext struct {
	wm      *WorkingMemory
	agenda  *agenda.Agenda
	events  *core.Publisher
	session core.SessionOperations
	op      Operation
	condErr error
}

// NewExecutionContext creates the context a session threads through its
// network propagations.
func NewExecutionContext(wm *WorkingMemory, ag *agenda.Agenda, events *core.Publisher) *ExecutionContext {
	return &ExecutionContext{wm: wm, agenda: ag, events: events}
}

// Reset prepares the context for a new top-level operation.
func (c *ExecutionContext) Reset(op Operation) {
	c.op = op
	c.condErr = nil
}

// Operation returns the current top-level operation.
func (c *ExecutionContext) Operation() Operation {
	return c.op
}

// WorkingMemory returns the session's working memory.
func (c *ExecutionContext) WorkingMemory() *WorkingMemory {
	return c.wm
}

// Agenda returns the session's agenda.
func (c *ExecutionContext) Agenda() *agenda.Agenda {
	return c.agenda
}

// Events returns the session's event publisher.
func (c *ExecutionContext) Events() *core.Publisher {
	return c.events
}

// SetSession attaches the owning session handle for re-entrant access.
func (c *ExecutionContext) SetSession(s core.SessionOperations) {
	c.session = s
}

// Session returns the owning session handle.
func (c *ExecutionContext) Session() core.SessionOperations {
	return c.session
}

// RecordConditionError keeps the first condition failure of the current
// operation; the session surfaces it once the batch finishes propagating.
func (c *ExecutionContext) RecordConditionError(err error) {
	if err != nil && c.condErr == nil {
		c.condErr = err
	}
}

// ConditionError returns the first condition failure recorded since Reset.
func (c *ExecutionContext) ConditionError() error {
	return c.condErr
}
