package rete

import (
	"fmt"

	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// JoinNode extends each left tuple with every right fact whose join key
// matches. Both sides are hash-indexed; emission follows arrival order on
// the opposite side.
type JoinNode struct {
	id int
	tupleSource
	leftKey  func(t *core.Tuple) any
	rightKey func(fact any) any
}

type joinState struct {
	left  *leftIndex
	right *rightIndex
}

func newJoinNode(id int, leftKey func(*core.Tuple) any, rightKey func(any) any) *JoinNode {
	return &JoinNode{id: id, leftKey: leftKey, rightKey: rightKey}
}

func (n *JoinNode) ID() int {
	return n.id
}

func (n *JoinNode) Kind() string {
	return "join"
}

func (n *JoinNode) state(ctx *ExecutionContext) *joinState {
	return ctx.WorkingMemory().NodeState(n.id, func() any {
		return &joinState{left: newLeftIndex(), right: newRightIndex()}
	}).(*joinState)
}

func (n *JoinNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftAssertOne(ctx, t)
	}
}

func (n *JoinNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		oldKey, had := st.left.get(t)
		newKey, ok := evalKey(ctx, nil, t, func() any { return n.leftKey(t) })
		switch {
		case !had && !ok:
			// Never matched, still unmatched.
		case !had && ok:
			n.leftAssertOne(ctx, t)
		case had && !ok:
			n.leftRetractOne(ctx, t)
		case oldKey == newKey:
			for _, child := range mem.ChildrenOf(t) {
				n.updateDownstream(ctx, []*core.Tuple{child})
			}
		default:
			n.leftRetractOne(ctx, t)
			n.leftAssertOne(ctx, t)
		}
	}
}

func (n *JoinNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftRetractOne(ctx, t)
	}
}

func (n *JoinNode) leftAssertOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	key, ok := evalKey(ctx, nil, t, func() any { return n.leftKey(t) })
	if !ok {
		return
	}
	st.left.add(t, key)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, f := range st.right.facts(key) {
		child, created := mem.GetOrCreate(t, f)
		if created {
			n.assertDownstream(ctx, []*core.Tuple{child})
		}
	}
}

func (n *JoinNode) leftRetractOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	st.left.remove(t)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, child := range mem.ChildrenOf(t) {
		mem.Remove(child)
		n.retractDownstream(ctx, []*core.Tuple{child})
	}
}

func (n *JoinNode) RightAssert(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		n.rightAssertOne(ctx, f)
	}
}

func (n *JoinNode) RightUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, f := range facts {
		oldKey, had := st.right.get(f)
		newKey, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
		switch {
		case !had && !ok:
		case !had && ok:
			n.rightAssertOne(ctx, f)
		case had && !ok:
			n.rightRetractOne(ctx, f)
		case oldKey == newKey:
			for _, child := range mem.WithFact(f) {
				n.updateDownstream(ctx, []*core.Tuple{child})
			}
		default:
			n.rightRetractOne(ctx, f)
			n.rightAssertOne(ctx, f)
		}
	}
}

func (n *JoinNode) RightRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		n.rightRetractOne(ctx, f)
	}
}

func (n *JoinNode) rightAssertOne(ctx *ExecutionContext, f *core.Fact) {
	st := n.state(ctx)
	key, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
	if !ok {
		return
	}
	st.right.add(f, key)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range st.left.tuples(key) {
		child, created := mem.GetOrCreate(t, f)
		if created {
			n.assertDownstream(ctx, []*core.Tuple{child})
		}
	}
}

func (n *JoinNode) rightRetractOne(ctx *ExecutionContext, f *core.Fact) {
	st := n.state(ctx)
	st.right.remove(f)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, child := range mem.WithFact(f) {
		mem.Remove(child)
		n.retractDownstream(ctx, []*core.Tuple{child})
	}
}

func (n *JoinNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
		Children:     n.sinkIDs(),
	}
}

func sampleTuples(mem *BetaMemory) []string {
	samples := make([]string, 0, 3)
	for i, t := range mem.Tuples() {
		if i == 3 {
			break
		}
		values := make([]any, 0, t.Size())
		for _, f := range t.Facts() {
			values = append(values, f.Value())
		}
		samples = append(samples, fmt.Sprintf("%v", values))
	}
	return samples
}
