package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// FilterNode filters tuples by a predicate over the full tuple. Admitted
// tuples pass through unchanged, so downstream identity is preserved.
type FilterNode struct {
	id int
	tupleSource
	predicate func(t *core.Tuple) bool
}

func newFilterNode(id int, predicate func(*core.Tuple) bool) *FilterNode {
	return &FilterNode{id: id, predicate: predicate}
}

func (n *FilterNode) ID() int {
	return n.id
}

func (n *FilterNode) Kind() string {
	return "filter"
}

func (n *FilterNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		if evalPredicate(ctx, nil, t, func() bool { return n.predicate(t) }) {
			mem.Add(t)
			n.assertDownstream(ctx, []*core.Tuple{t})
		}
	}
}

// PropagateUpdate re-evaluates the predicate: a tuple that flips in or out
// is asserted or retracted downstream, one that stays in is updated.
func (n *FilterNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		was := mem.Contains(t)
		now := evalPredicate(ctx, nil, t, func() bool { return n.predicate(t) })
		switch {
		case was && now:
			n.updateDownstream(ctx, []*core.Tuple{t})
		case was && !now:
			mem.Remove(t)
			n.retractDownstream(ctx, []*core.Tuple{t})
		case !was && now:
			mem.Add(t)
			n.assertDownstream(ctx, []*core.Tuple{t})
		}
	}
}

func (n *FilterNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		if !mem.Contains(t) {
			continue
		}
		mem.Remove(t)
		n.retractDownstream(ctx, []*core.Tuple{t})
	}
}

func (n *FilterNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
		Children:     n.sinkIDs(),
	}
}
