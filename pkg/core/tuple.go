package core

import "sync/atomic"

var tupleSeq atomic.Int64

// Tuple is an ordered sequence of fact wrappers forming a partial or complete
// match along one beta network path. A tuple extends its parent with exactly
// one fact; the root tuple has neither. Tuples are immutable after creation
// and shared between node memories by reference.
type Tuple struct {
	id     int64
	parent *Tuple
	fact   *Fact
	size   int
}

// NewRootTuple creates the empty tuple that seeds every rule's beta chain.
func NewRootTuple() *Tuple {
	return &Tuple{id: tupleSeq.Add(1)}
}

// NewTuple creates a child tuple extending parent with fact.
func NewTuple(parent *Tuple, fact *Fact) *Tuple {
	size := 1
	if parent != nil {
		size = parent.size + 1
	}
	return &Tuple{
		id:     tupleSeq.Add(1),
		parent: parent,
		fact:   fact,
		size:   size,
	}
}

// ID returns the tuple's engine-unique id.
func (t *Tuple) ID() int64 {
	return t.id
}

// Parent returns the tuple this one extends, nil for the root tuple.
func (t *Tuple) Parent() *Tuple {
	return t.parent
}

// Fact returns the fact appended at this tuple's level, nil for the root.
func (t *Tuple) Fact() *Fact {
	return t.fact
}

// Size returns the number of facts in the tuple.
func (t *Tuple) Size() int {
	return t.size
}

// Facts returns the tuple's fact wrappers in left-to-right order.
func (t *Tuple) Facts() []*Fact {
	out := make([]*Fact, t.size)
	i := t.size - 1
	for cur := t; cur != nil && cur.fact != nil; cur = cur.parent {
		out[i] = cur.fact
		i--
	}
	return out
}

// Contains reports whether the tuple includes the given fact wrapper.
func (t *Tuple) Contains(f *Fact) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.fact == f {
			return true
		}
	}
	return false
}
