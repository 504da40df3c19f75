package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Aggregator reduces the right facts matched to one left tuple into a
// single synthetic value. Implementations maintain incremental state; the
// engine never replays a group from scratch.
type Aggregator interface {
	// Add accounts for a fact joining the group.
	Add(f *core.Fact)

	// Modify accounts for an in-place change to a group member.
	Modify(f *core.Fact)

	// Remove accounts for a fact leaving the group.
	Remove(f *core.Fact)

	// Result returns the current aggregate value and whether the group
	// emits at all. A sum over an empty group typically does not.
	Result() (any, bool)
}

// AggregatorFactory creates one Aggregator instance per group.
type AggregatorFactory func() Aggregator

// AggregateNode groups the right facts matched to each left tuple and emits
// one synthetic fact per group. Inserts, updates, and retracts on the right
// touch exactly the affected group and surface downstream as a matching
// assert, update, or retract of the group's child tuple.
type AggregateNode struct {
	id int
	tupleSource
	leftKey  func(t *core.Tuple) any
	rightKey func(fact any) any
	factory  AggregatorFactory
}

type aggGroup struct {
	agg       Aggregator
	synthetic *core.Fact  // nil until the group emits
	child     *core.Tuple // nil until the group emits
}

type aggregateState struct {
	left   *leftIndex
	right  *rightIndex
	groups map[*core.Tuple]*aggGroup
}

func newAggregateNode(id int, leftKey func(*core.Tuple) any, rightKey func(any) any, factory AggregatorFactory) *AggregateNode {
	return &AggregateNode{id: id, leftKey: leftKey, rightKey: rightKey, factory: factory}
}

func (n *AggregateNode) ID() int {
	return n.id
}

func (n *AggregateNode) Kind() string {
	return "aggregate"
}

func (n *AggregateNode) state(ctx *ExecutionContext) *aggregateState {
	return ctx.WorkingMemory().NodeState(n.id, func() any {
		return &aggregateState{
			left:   newLeftIndex(),
			right:  newRightIndex(),
			groups: make(map[*core.Tuple]*aggGroup),
		}
	}).(*aggregateState)
}

func (n *AggregateNode) PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftAssertOne(ctx, t)
	}
}

func (n *AggregateNode) PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple) {
	st := n.state(ctx)
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
			if g := st.groups[t]; g != nil && g.child != nil {
				n.updateDownstream(ctx, []*core.Tuple{g.child})
			}
		default:
			// Group key changed: rebuild over the new key's facts.
			n.leftRetractOne(ctx, t)
			n.leftAssertOne(ctx, t)
		}
	}
}

func (n *AggregateNode) PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, t := range tuples {
		n.leftRetractOne(ctx, t)
	}
}

func (n *AggregateNode) leftAssertOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	key, ok := evalKey(ctx, nil, t, func() any { return n.leftKey(t) })
	if !ok {
		return
	}
	st.left.add(t, key)
	g := &aggGroup{agg: n.factory()}
	st.groups[t] = g
	for _, f := range st.right.facts(key) {
		g.agg.Add(f)
	}
	n.settle(ctx, t, g)
}

func (n *AggregateNode) leftRetractOne(ctx *ExecutionContext, t *core.Tuple) {
	st := n.state(ctx)
	st.left.remove(t)
	g := st.groups[t]
	delete(st.groups, t)
	if g != nil && g.child != nil {
		ctx.WorkingMemory().Beta(n.id).Remove(g.child)
		n.retractDownstream(ctx, []*core.Tuple{g.child})
	}
}

func (n *AggregateNode) RightAssert(ctx *ExecutionContext, facts []*core.Fact) {
	st := n.state(ctx)
	for _, f := range facts {
		key, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
		if !ok {
			continue
		}
		st.right.add(f, key)
		for _, t := range st.left.tuples(key) {
			g := st.groups[t]
			g.agg.Add(f)
			n.settle(ctx, t, g)
		}
	}
}

func (n *AggregateNode) RightUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	st := n.state(ctx)
	for _, f := range facts {
		oldKey, had := st.right.get(f)
		newKey, ok := evalKey(ctx, f.Value(), nil, func() any { return n.rightKey(f.Value()) })
		switch {
		case !had && !ok:
		case !had && ok:
			n.RightAssert(ctx, []*core.Fact{f})
		case had && !ok:
			n.rightRetractOne(ctx, f)
		case oldKey == newKey:
			for _, t := range st.left.tuples(newKey) {
				g := st.groups[t]
				g.agg.Modify(f)
				n.settle(ctx, t, g)
			}
		default:
			n.rightRetractOne(ctx, f)
			n.RightAssert(ctx, []*core.Fact{f})
		}
	}
}

func (n *AggregateNode) RightRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		n.rightRetractOne(ctx, f)
	}
}

func (n *AggregateNode) rightRetractOne(ctx *ExecutionContext, f *core.Fact) {
	st := n.state(ctx)
	key, had := st.right.remove(f)
	if !had {
		return
	}
	for _, t := range st.left.tuples(key) {
		g := st.groups[t]
		g.agg.Remove(f)
		n.settle(ctx, t, g)
	}
}

// settle reconciles a group's downstream presence with its aggregator
// result. The synthetic fact wrapper is reused across result changes so
// dependent tuples keep their identity.
func (n *AggregateNode) settle(ctx *ExecutionContext, t *core.Tuple, g *aggGroup) {
	mem := ctx.WorkingMemory().Beta(n.id)
	result, emit := g.agg.Result()
	switch {
	case g.child == nil && emit:
		g.synthetic = core.NewSyntheticFact(result)
		child, _ := mem.GetOrCreate(t, g.synthetic)
		g.child = child
		n.assertDownstream(ctx, []*core.Tuple{child})
	case g.child != nil && emit:
		g.synthetic.SetValue(result)
		n.updateDownstream(ctx, []*core.Tuple{g.child})
	case g.child != nil && !emit:
		mem.Remove(g.child)
		child := g.child
		g.child = nil
		g.synthetic = nil
		n.retractDownstream(ctx, []*core.Tuple{child})
	}
}

func (n *AggregateNode) describe(wm *WorkingMemory) NodeInfo {
	mem := wm.Beta(n.id)
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		MemorySize:   mem.Len(),
		TupleSamples: sampleTuples(mem),
		Children:     n.sinkIDs(),
	}
}
