package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// TerminalNode is the last node on a rule's network path. Every admitted
// tuple becomes an activation on the agenda.
type TerminalNode struct {
	id   int
	rule *core.Rule
}

type terminalState struct {
	activations map[*core.Tuple]*core.Activation
}

func newTerminalNode(id int, rule *core.Rule) *TerminalNode {
	return &TerminalNode{id: id, rule: rule}
}

func (n *TerminalNode) ID() int {
	return n.id
}

func (n *TerminalNode) Kind() string {
	return "terminal"
}

// Rule returns the rule this terminal materializes matches for.
func (n *TerminalNode) Rule() *core.Rule {
	return n.rule
}

func (n *TerminalNode) state(ctx *ExecutionContext) *terminalState {
	return ctx.WorkingMemory().NodeState(n.id, func() any {
		return &terminalState{activations: make(map[*core.Tuple]*core.Activation)}
	}).(*terminalState)
}

func (n *TerminalNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		if mem.Contains(t) {
			continue
		}
		mem.Add(t)
		activation := core.NewActivation(n.rule, t)
		st.activations[t] = activation
		ctx.Agenda().Add(activation)
		ctx.Events().RaiseActivationCreated(core.AgendaEvent{Activation: activation})
	}
}

// PropagateUpdate reorders a still-queued activation and announces the
// change; an activation that already fired stays consumed.
func (n *TerminalNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	for _, t := range tuples {
		activation, ok := st.activations[t]
		if !ok {
			n.PropagateAssert(ctx, []*core.Tuple{t})
			continue
		}
		ctx.Agenda().Modify(activation)
		ctx.Events().RaiseActivationUpdated(core.AgendaEvent{Activation: activation})
	}
}

func (n *TerminalNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		activation, ok := st.activations[t]
		if !ok {
			continue
		}
		delete(st.activations, t)
		mem.Remove(t)
		ctx.Agenda().Remove(n.rule, t)
		ctx.Events().RaiseActivationDeleted(core.AgendaEvent{Activation: activation})
	}
}

func (n *TerminalNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		Label:        n.rule.Name(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
	}
}
