package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Network is a compiled Rete discrimination network. It holds no match
// state of its own; memories live in each session's WorkingMemory, so one
// network can back any number of sessions.
type Network struct {
	root          *RootNode
	dummy         *DummyNode
	nodes         []Node // arena, indexed by node id
	alphaMemories map[int]*AlphaMemoryNode
	terminals     []*TerminalNode
}

// Bootstrap seeds the beta network with the shared root tuple. Sessions
// call it once before the first fact operation.
func (n *Network) Bootstrap(ctx *ExecutionContext) {
	n.dummy.Bootstrap(ctx)
}

// PropagateAssert walks a batch of new facts through the alpha network.
func (n *Network) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	n.root.PropagateAssert(ctx, facts)
}

// PropagateUpdate re-walks updated facts. Paths whose predicates still hold
// preserve tuple identity downstream; flipped paths retract and re-assert.
func (n *Network) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	n.root.PropagateUpdate(ctx, facts)
}

// PropagateRetract removes facts using their recorded alpha memberships,
// avoiding any predicate re-evaluation.
func (n *Network) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		for _, nodeID := range f.Memberships() {
			if mem, ok := n.alphaMemories[nodeID]; ok {
				mem.PropagateRetract(ctx, []*core.Fact{f})
			}
		}
	}
}

// Terminals returns the network's terminal nodes in rule-addition order.
func (n *Network) Terminals() []*TerminalNode {
	return n.terminals
}

// Accept walks every node in id order, then every working-memory fact in
// insertion order.
func (n *Network) Accept(v Visitor, wm *WorkingMemory) {
	for _, node := range n.nodes {
		v.VisitNode(node.describe(wm))
	}
	for _, f := range wm.Facts() {
		v.VisitFact(f.Value())
	}
}
