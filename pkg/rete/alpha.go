package rete

import (
	"fmt"
	"reflect"

	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// RootNode dispatches facts to the type-discriminated sub-roots of the alpha
// network. The applicable sub-root set is resolved once per concrete fact
// type and cached.
type RootNode struct {
	id        int
	typeNodes []*TypeNode
	cache     map[reflect.Type][]*TypeNode
}

func newRootNode(id int) *RootNode {
	return &RootNode{id: id, cache: make(map[reflect.Type][]*TypeNode)}
}

func (n *RootNode) ID() int {
	return n.id
}

func (n *RootNode) Kind() string {
	return "root"
}

func (n *RootNode) addTypeNode(tn *TypeNode) {
	n.typeNodes = append(n.typeNodes, tn)
	// New sub-roots invalidate previously cached dispatch sets.
	n.cache = make(map[reflect.Type][]*TypeNode)
}

// match returns the sub-roots whose declared type the concrete fact type is
// assignable to.
func (n *RootNode) match(t reflect.Type) []*TypeNode {
	if cached, ok := n.cache[t]; ok {
		return cached
	}
	var matched []*TypeNode
	for _, tn := range n.typeNodes {
		if t.AssignableTo(tn.factType) {
			matched = append(matched, tn)
		}
	}
	n.cache[t] = matched
	return matched
}

// PropagateAssert walks each fact through every applicable sub-root.
func (n *RootNode) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		for _, tn := range n.match(reflect.TypeOf(f.Value())) {
			tn.PropagateAssert(ctx, []*core.Fact{f})
		}
	}
}

// PropagateUpdate re-walks each fact; selection nodes downgrade the walk to
// a retract on paths whose predicates no longer hold.
func (n *RootNode) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		for _, tn := range n.match(reflect.TypeOf(f.Value())) {
			tn.PropagateUpdate(ctx, []*core.Fact{f})
		}
	}
}

// PropagateRetract walks each fact through every applicable sub-root. The
// Network's own retract path does not call it: it resolves retracts through
// the fact's recorded alpha memberships instead.
func (n *RootNode) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		for _, tn := range n.match(reflect.TypeOf(f.Value())) {
			tn.PropagateRetract(ctx, []*core.Fact{f})
		}
	}
}

func (n *RootNode) describe(wm *WorkingMemory) NodeInfo {
	children := make([]int, len(n.typeNodes))
	for i, tn := range n.typeNodes {
		children[i] = tn.id
	}
	return NodeInfo{ID: n.id, Kind: n.Kind(), Children: children}
}

// alphaNode carries the child management shared by TypeNode and
// SelectionNode.
type alphaNode struct {
	id       int
	children []ObjectSink
}

func (n *alphaNode) ID() int {
	return n.id
}

func (n *alphaNode) addChild(child ObjectSink) {
	n.children = append(n.children, child)
}

func (n *alphaNode) childIDs() []int {
	out := make([]int, len(n.children))
	for i, c := range n.children {
		out[i] = c.ID()
	}
	return out
}

// TypeNode is a type-discriminated sub-root. The root has already matched
// the fact's type, so propagation just forwards.
type TypeNode struct {
	alphaNode
	factType reflect.Type
}

func newTypeNode(id int, factType reflect.Type) *TypeNode {
	return &TypeNode{alphaNode: alphaNode{id: id}, factType: factType}
}

func (n *TypeNode) Kind() string {
	return "type"
}

func (n *TypeNode) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	for _, c := range n.children {
		c.PropagateAssert(ctx, facts)
	}
}

func (n *TypeNode) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	for _, c := range n.children {
		c.PropagateUpdate(ctx, facts)
	}
}

func (n *TypeNode) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, c := range n.children {
		c.PropagateRetract(ctx, facts)
	}
}

func (n *TypeNode) describe(wm *WorkingMemory) NodeInfo {
	return NodeInfo{
		ID:       n.id,
		Kind:     n.Kind(),
		Label:    n.factType.String(),
		Children: n.childIDs(),
	}
}

// SelectionNode filters single facts by one predicate.
type SelectionNode struct {
	alphaNode
	key       string
	predicate func(fact any) bool
}

func newSelectionNode(id int, key string, predicate func(fact any) bool) *SelectionNode {
	return &SelectionNode{alphaNode: alphaNode{id: id}, key: key, predicate: predicate}
}

func (n *SelectionNode) Kind() string {
	return "selection"
}

func (n *SelectionNode) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		if evalPredicate(ctx, f.Value(), nil, func() bool { return n.predicate(f.Value()) }) {
			for _, c := range n.children {
				c.PropagateAssert(ctx, []*core.Fact{f})
			}
		}
	}
}

// PropagateUpdate forwards an update where the predicate still holds and
// downgrades to a retract where it flipped, so downstream memories converge
// on the fact's new alpha memberships.
func (n *SelectionNode) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	for _, f := range facts {
		if evalPredicate(ctx, f.Value(), nil, func() bool { return n.predicate(f.Value()) }) {
			for _, c := range n.children {
				c.PropagateUpdate(ctx, []*core.Fact{f})
			}
		} else {
			for _, c := range n.children {
				c.PropagateRetract(ctx, []*core.Fact{f})
			}
		}
	}
}

// PropagateRetract forwards without re-evaluating; memory nodes ignore facts
// they do not hold.
func (n *SelectionNode) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	for _, c := range n.children {
		c.PropagateRetract(ctx, facts)
	}
}

func (n *SelectionNode) describe(wm *WorkingMemory) NodeInfo {
	return NodeInfo{
		ID:       n.id,
		Kind:     n.Kind(),
		Label:    n.key,
		Children: n.childIDs(),
	}
}

// AlphaMemoryNode is the leaf of one alpha predicate path. Its memory lives
// in working memory; downstream beta nodes attach through adapters.
type AlphaMemoryNode struct {
	id    int
	label string
	sinks []ObjectSink
}

func newAlphaMemoryNode(id int, label string) *AlphaMemoryNode {
	return &AlphaMemoryNode{id: id, label: label}
}

func (n *AlphaMemoryNode) ID() int {
	return n.id
}

func (n *AlphaMemoryNode) Kind() string {
	return "alpha-memory"
}

func (n *AlphaMemoryNode) addSink(sink ObjectSink) {
	n.sinks = append(n.sinks, sink)
}

func (n *AlphaMemoryNode) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	mem := ctx.WorkingMemory().Alpha(n.id)
	for _, f := range facts {
		if mem.Contains(f) {
			continue
		}
		mem.Add(f)
		f.AddMembership(n.id)
		for _, sink := range n.sinks {
			sink.PropagateAssert(ctx, []*core.Fact{f})
		}
	}
}

// PropagateUpdate treats a fact not yet held as newly matching: predicates
// upstream flipped to true on this path.
func (n *AlphaMemoryNode) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	mem := ctx.WorkingMemory().Alpha(n.id)
	for _, f := range facts {
		if !mem.Contains(f) {
			n.PropagateAssert(ctx, []*core.Fact{f})
			continue
		}
		for _, sink := range n.sinks {
			sink.PropagateUpdate(ctx, []*core.Fact{f})
		}
	}
}

func (n *AlphaMemoryNode) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	mem := ctx.WorkingMemory().Alpha(n.id)
	for _, f := range facts {
		if !mem.Remove(f) {
			continue
		}
		f.RemoveMembership(n.id)
		for _, sink := range n.sinks {
			sink.PropagateRetract(ctx, []*core.Fact{f})
		}
	}
}

func (n *AlphaMemoryNode) describe(wm *WorkingMemory) NodeInfo {
	children := make([]int, len(n.sinks))
	for i, s := range n.sinks {
		children[i] = s.ID()
	}
	mem := wm.Alpha(n.id)
	samples := make([]string, 0, 3)
	for i, f := range mem.Facts() {
		if i == 3 {
			break
		}
		samples = append(samples, fmt.Sprintf("%v", f.Value()))
	}
	return NodeInfo{
		ID:           n.id,
		Kind:         n.Kind(),
		Label:        n.label,
		MemorySize:   mem.Len(),
		TupleSamples: samples,
		Children:     children,
	}
}
