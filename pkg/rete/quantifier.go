package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// quantifierNode implements the shared mechanics of Not and Exists: a count
// of matching right facts per join key, and a transition when a left
// tuple's count crosses zero. The left tuple itself passes through; right
// facts never appear in downstream tuples.
type quantifierNode struct {
	id int
	tupleSource
	negated  bool // true for Not, false for Exists
	leftKey  func(t *core.Tuple) any
	rightKey func(fact any) any
}

type quantifierState struct {
	left       *leftIndex
	rightKeys  map[*core.Fact]any
	rightCount map[any]int
}

func (n *quantifierNode) ID() int {
	return n.id
}

func (n *quantifierNode) state(ctx *ExecutionContext) *quantifierState {
	return ctx.WorkingMemory().NodeState(n.id, func() any {
		return &quantifierState{
			left:       newLeftIndex(),
			rightKeys:  make(map[*core.Fact]any),
			rightCount: make(map[any]int),
		}
	}).(*quantifierState)
}

func (n *quantifierNode) passes(count int) bool {
	if n.negated {
		return count == 0
	}
	return count > 0
}

func (n *quantifierNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftAssertOne(ctx, t)
	}
}

func (n *quantifierNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	for _, t := range tuples {
		oldKey, had := st.left.get(t)
		newKey, ok := evalKey(ctx, nil, t, func() any { return n.leftKey(t) })
		switch {
		case !had && !ok:
		case !had && ok:
			n.leftAssertOne(ctx, t)
		case had && !ok:
			n.leftRetractOne(ctx, t)
		case oldKey == newKey:
			if mem.Contains(t) {
				n.updateDownstream(ctx, []*core.Tuple{t})
			}
		default:
			st.left.remove(t)
			st.left.add(t, newKey)
			was := mem.Contains(t)
			now := n.passes(st.rightCount[newKey])
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
}

func (n *quantifierNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftRetractOne(ctx, t)
	}
}

func (n *quantifierNode) leftAssertOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	key, ok := evalKey(ctx, nil, t, func() any { return n.leftKey(t) })
	if !ok {
		return
	}
	st.left.add(t, key)
	if n.passes(st.rightCount[key]) {
		mem := ctx.WorkingMemory().Beta(n.id)
		mem.Add(t)
		n.assertDownstream(ctx, []*core.Tuple{t})
	}
}

func (n *quantifierNode) leftRetractOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	st.left.remove(t)
	mem := ctx.WorkingMemory().Beta(n.id)
	if mem.Contains(t) {
		mem.Remove(t)
		n.retractDownstream(ctx, []*core.Tuple{t})
	}
}

func (n *quantifierNode) RightAssert(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		n.rightAssertOne(ctx, f)
	}
}

func (n *quantifierNode) RightUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	st := n.state(ctx)
	for _, f := range facts {
		oldKey, had := st.rightKeys[f]
		newKey, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
		switch {
		case !had && !ok:
		case !had && ok:
			n.rightAssertOne(ctx, f)
		case had && !ok:
			n.rightRetractOne(ctx, f)
		case oldKey == newKey:
			// The right fact is invisible downstream; no change.
		default:
			n.rightRetractOne(ctx, f)
			n.rightAssertOne(ctx, f)
		}
	}
}

func (n *quantifierNode) RightRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		n.rightRetractOne(ctx, f)
	}
}

func (n *quantifierNode) rightAssertOne(ctx *ExecutionContext, f *core.Fact) {
	st := n.state(ctx)
	key, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
	if !ok {
		return
	}
	st.rightKeys[f] = key
	count := st.rightCount[key]
	st.rightCount[key] = count + 1
	if count == 0 {
		n.transition(ctx, key)
	}
}

func (n *quantifierNode) rightRetractOne(ctx *ExecutionContext, f *core.Fact) {
	st := n.state(ctx)
	key, had := st.rightKeys[f]
	if !had {
		return
	}
	delete(st.rightKeys, f)
	count := st.rightCount[key] - 1
	if count <= 0 {
		delete(st.rightCount, key)
		n.transition(ctx, key)
	} else {
		st.rightCount[key] = count
	}
}

// transition flips every left tuple under key between emitted and withheld
// when the key's match count crosses zero.
func (n *quantifierNode) transition(ctx *ExecutionContext, key any) {
	st := n.state(ctx)
	mem := ctx.WorkingMemory().Beta(n.id)
	nowPasses := n.passes(st.rightCount[key])
	for _, t := range st.left.tuples(key) {
		if nowPasses {
			if !mem.Contains(t) {
				mem.Add(t)
				n.assertDownstream(ctx, []*core.Tuple{t})
			}
		} else {
			if mem.Contains(t) {
				mem.Remove(t)
				n.retractDownstream(ctx, []*core.Tuple{t})
			}
		}
	}
}

func (n *quantifierNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.kindName(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
		Children:     n.sinkIDs(),
	}
}

func (n *quantifierNode) kindName() string {
	if n.negated {
		return "not"
	}
	return "exists"
}

// NotNode emits its left tuple exactly while zero right facts match it.
type NotNode struct {
	quantifierNode
}

func newNotNode(id int, leftKey func(*core.Tuple) any, rightKey func(any) any) *NotNode {
	return &NotNode{quantifierNode{id: id, negated: true, leftKey: leftKey, rightKey: rightKey}}
}

func (n *NotNode) Kind() string {
	return "not"
}

// ExistsNode emits its left tuple exactly while at least one right fact
// matches it.
type ExistsNode struct {
	quantifierNode
}

func newExistsNode(id int, leftKey func(*core.Tuple) any, rightKey func(any) any) *ExistsNode {
	return &ExistsNode{quantifierNode{id: id, negated: false, leftKey: leftKey, rightKey: rightKey}}
}

func (n *ExistsNode) Kind() string {
	return "exists"
}
