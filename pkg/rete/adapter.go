package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// rightActivable is implemented by beta nodes that take an alpha memory on
// their right channel.
type rightActivable interface {
	Node
	RightAssert(ctx *ExecutionContext, facts []*core.Fact)
	RightUpdate(ctx *ExecutionContext, facts []*core.Fact)
	RightRetract(ctx *ExecutionContext, facts []*core.Fact)
}

// ObjectInputAdapter injects an alpha memory's fact stream onto the right
// channel of a beta node.
type ObjectInputAdapter struct {
	id     int
	target rightActivable
}

func newObjectInputAdapter(id int, target rightActivable) *ObjectInputAdapter {
	return &ObjectInputAdapter{id: id, target: target}
}

func (n *ObjectInputAdapter) ID() int {
	return n.id
}

func (n *ObjectInputAdapter) Kind() string {
	return "adapter"
}

func (n *ObjectInputAdapter) PropagateAssert(ctx *ExecutionContext, facts []*core.Fact) {
	n.target.RightAssert(ctx, facts)
}

func (n *ObjectInputAdapter) PropagateUpdate(ctx *ExecutionContext, facts []*core.Fact) {
	n.target.RightUpdate(ctx, facts)
}

func (n *ObjectInputAdapter) PropagateRetract(ctx *ExecutionContext, facts []*core.Fact) {
	n.target.RightRetract(ctx, facts)
}

func (n *ObjectInputAdapter) describe(wm *WorkingMemory) NodeInfo {
	return NodeInfo{ID: n.id, Kind: n.Kind(), Children: []int{n.target.ID()}}
}
