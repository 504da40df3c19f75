package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// BindingNode projects a computed value into the tuple stream as a
// synthetic fact, for use by downstream filters, joins, and actions.
type BindingNode struct {
	id int
	tupleSource
	expression func(t *core.Tuple) any
}

type bindingEntry struct {
	synthetic *core.Fact
	child     *core.Tuple
}

type bindingState struct {
	entries map[*core.Tuple]*bindingEntry
}

func newBindingNode(id int, expression func(*core.Tuple) any) *BindingNode {
	return &BindingNode{id: id, expression: expression}
}

func (n *BindingNode) ID() int {
	return n.id
}

func (n *BindingNode) Kind() string {
	return "binding"
}

func (n *BindingNode) state(ctx *ExecutionContext) *bindingState {
	return ctx.WorkingMemory().NodeState(n.id, func() any {
		return &bindingState{entries: make(map[*core.Tuple]*bindingEntry)}
	}).(*bindingState)
}

func (n *BindingNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.assertOne(ctx, t)
	}
}

// PropagateUpdate recomputes the projection in place: the synthetic fact
// wrapper keeps its identity, so the child tuple does too.
func (n *BindingNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	for _, t := range tuples {
		e := st.entries[t]
		value, ok := evalValue(ctx, nil, t, func() any { return n.expression(t) })
		switch {
		case e == nil && ok:
			n.assertOne(ctx, t)
		case e != nil && ok:
			e.synthetic.SetValue(value)
			n.updateDownstream(ctx, []*core.Tuple{e.child})
		case e != nil && !ok:
			n.retractOne(ctx, t)
		}
	}
}

func (n *BindingNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.retractOne(ctx, t)
	}
}

func (n *BindingNode) assertOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	value, ok := evalValue(ctx, nil, t, func() any { return n.expression(t) })
	if !ok {
		return
	}
	synthetic := core.NewSyntheticFact(value)
	child, _ := ctx.WorkingMemory().Beta(n.id).GetOrCreate(t, synthetic)
	st.entries[t] = &bindingEntry{synthetic: synthetic, child: child}
	n.assertDownstream(ctx, []*core.Tuple{child})
}

func (n *BindingNode) retractOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	e := st.entries[t]
	if e == nil {
		return
	}
	delete(st.entries, t)
	ctx.WorkingMemory().Beta(n.id).Remove(e.child)
	n.retractDownstream(ctx, []*core.Tuple{e.child})
}

func (n *BindingNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
		Children:     n.sinkIDs(),
	}
}
