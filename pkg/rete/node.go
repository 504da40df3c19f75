package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Node is the common surface of every network node. Nodes are arranged in an
// arena owned by the Network and refer to each other by id; memories live in
// the session's WorkingMemory, never on the node.
type Node interface {
	ID() int
	Kind() string
	describe(wm *WorkingMemory) NodeInfo
}

// ObjectSink receives fact batches on the alpha side of the network.
type ObjectSink interface {
	Node
	PropagateAssert(ctx *ExecutionContext, facts []*core.Fact)
	PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact)
	PropagateRetract(ctx *ExecutionContext, facts []*core.Fact)
}

// TupleSink receives tuple batches on the beta side of the network.
type TupleSink interface {
	Node
	PropagateAssert(ctx *ExecutionContext, tuples []*core.Tuple)
	PropagateUpdate(ctx *ExecutionContext, tuples []*core.Tuple)
	PropagateRetract(ctx *ExecutionContext, tuples []*core.Tuple)
}

// tupleSource manages the downstream tuple sinks of a beta node and the
// depth-first emission helpers. Emission order follows sink registration
// order, which the builder fixes at compile time.
type tupleSource struct {
	sinks []TupleSink
}

func (s *tupleSource) addSink(sink TupleSink) {
	s.sinks = append(s.sinks, sink)
}

func (s *tupleSource) assertDownstream(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, sink := range s.sinks {
		sink.PropagateAssert(ctx, tuples)
	}
}

func (s *tupleSource) updateDownstream(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, sink := range s.sinks {
		sink.PropagateUpdate(ctx, tuples)
	}
}

func (s *tupleSource) retractDownstream(ctx *ExecutionContext, tuples []*core.Tuple) {
	for _, sink := range s.sinks {
		sink.PropagateRetract(ctx, tuples)
	}
}

func (s *tupleSource) sinkIDs() []int {
	out := make([]int, len(s.sinks))
	for i, sink := range s.sinks {
		out[i] = sink.ID()
	}
	return out
}

// DummyNode is the root tuple source seeding every rule's beta chain with
// the shared empty tuple. It is activated once when a session bootstraps.
type DummyNode struct {
	id int
	tupleSource
	root *core.Tuple
}

func newDummyNode(id int) *DummyNode {
	return &DummyNode{id: id, root: core.NewRootTuple()}
}

func (n *DummyNode) ID() int {
	return n.id
}

func (n *DummyNode) Kind() string {
	return "dummy"
}

// Bootstrap asserts the root tuple into the beta network.
func (n *DummyNode) Bootstrap(ctx *ExecutionContext) {
	n.assertDownstream(ctx, []*core.Tuple{n.root})
}

func (n *DummyNode) describe(wm *WorkingMemory) NodeInfo {
	return NodeInfo{ID: n.id, Kind: n.Kind(), Children: n.sinkIDs()}
}
