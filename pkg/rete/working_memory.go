package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// WorkingMemory owns every fact wrapper in a session plus the per-node
// memories of the network. Keeping node memories here rather than on the
// nodes lets one compiled network back many sessions.
type WorkingMemory struct {
	facts *orderedMap[any, *core.Fact]
	alpha map[int]*AlphaMemory
	beta  map[int]*BetaMemory
	state map[int]any
}

// NewWorkingMemory creates an empty working memory.
func NewWorkingMemory() *WorkingMemory {
	return &WorkingMemory{
		facts: newOrderedMap[any, *core.Fact](),
		alpha: make(map[int]*AlphaMemory),
		beta:  make(map[int]*BetaMemory),
		state: make(map[int]any),
	}
}

// Fact returns the wrapper registered under the given identity key.
func (wm *WorkingMemory) Fact(key any) (*core.Fact, bool) {
	return wm.facts.Get(key)
}

// AddFact registers a wrapper. The caller has already checked for duplicates.
func (wm *WorkingMemory) AddFact(f *core.Fact) {
	wm.facts.Put(f.Key(), f)
}

// RemoveFact drops the wrapper registered under key.
func (wm *WorkingMemory) RemoveFact(key any) {
	wm.facts.Delete(key)
}

// Facts returns all registered wrappers in insertion order.
func (wm *WorkingMemory) Facts() []*core.Fact {
	return wm.facts.Values()
}

// FactCount returns the number of registered facts.
func (wm *WorkingMemory) FactCount() int {
	return wm.facts.Len()
}

// Alpha returns the alpha memory of the node with the given id, creating it
// on first access.
func (wm *WorkingMemory) Alpha(nodeID int) *AlphaMemory {
	m, ok := wm.alpha[nodeID]
	if !ok {
		m = newAlphaMemory()
		wm.alpha[nodeID] = m
	}
	return m
}

// Beta returns the beta memory of the node with the given id, creating it on
// first access.
func (wm *WorkingMemory) Beta(nodeID int) *BetaMemory {
	m, ok := wm.beta[nodeID]
	if !ok {
		m = newBetaMemory()
		wm.beta[nodeID] = m
	}
	return m
}

// NodeState returns node-kind-specific scratch (join indexes, quantifier
// counts, aggregator instances) for the node with the given id, creating it
// with init on first access.
func (wm *WorkingMemory) NodeState(nodeID int, init func() any) any {
	s, ok := wm.state[nodeID]
	if !ok {
		s = init()
		wm.state[nodeID] = s
	}
	return s
}

// AlphaMemory holds the facts that passed one alpha path's predicates, in
// insertion order.
type AlphaMemory struct {
	facts *orderedMap[any, *core.Fact]
}

func newAlphaMemory() *AlphaMemory {
	return &AlphaMemory{facts: newOrderedMap[any, *core.Fact]()}
}

func (m *AlphaMemory) Add(f *core.Fact) {
	m.facts.Put(f.Key(), f)
}

func (m *AlphaMemory) Remove(f *core.Fact) bool {
	return m.facts.Delete(f.Key())
}

func (m *AlphaMemory) Contains(f *core.Fact) bool {
	return m.facts.Has(f.Key())
}

// Facts returns members in insertion order.
func (m *AlphaMemory) Facts() []*core.Fact {
	return m.facts.Values()
}

func (m *AlphaMemory) Len() int {
	return m.facts.Len()
}

type tupleKey struct {
	parent *core.Tuple
	fact   *core.Fact
}

// BetaMemory holds the tuples admitted at one beta node, keyed by lineage
// (parent tuple, appended fact) and secondarily indexed by parent and by
// fact for O(1) partner lookup during retraction and update.
type BetaMemory struct {
	tuples   *orderedMap[tupleKey, *core.Tuple]
	byParent map[*core.Tuple][]*core.Tuple
	byFact   map[*core.Fact][]*core.Tuple
}

func newBetaMemory() *BetaMemory {
	return &BetaMemory{
		tuples:   newOrderedMap[tupleKey, *core.Tuple](),
		byParent: make(map[*core.Tuple][]*core.Tuple),
		byFact:   make(map[*core.Fact][]*core.Tuple),
	}
}

// GetOrCreate interns the child tuple for (parent, fact). The bool reports
// whether a new tuple was created.
func (m *BetaMemory) GetOrCreate(parent *core.Tuple, fact *core.Fact) (*core.Tuple, bool) {
	k := tupleKey{parent: parent, fact: fact}
	if t, ok := m.tuples.Get(k); ok {
		return t, false
	}
	t := core.NewTuple(parent, fact)
	m.tuples.Put(k, t)
	m.byParent[parent] = append(m.byParent[parent], t)
	m.byFact[fact] = append(m.byFact[fact], t)
	return t, true
}

// Add stores a tuple created upstream (pass-through nodes).
func (m *BetaMemory) Add(t *core.Tuple) {
	k := tupleKey{parent: t.Parent(), fact: t.Fact()}
	if m.tuples.Has(k) {
		return
	}
	m.tuples.Put(k, t)
	m.byParent[t.Parent()] = append(m.byParent[t.Parent()], t)
	if t.Fact() != nil {
		m.byFact[t.Fact()] = append(m.byFact[t.Fact()], t)
	}
}

// Contains reports whether the tuple is present.
func (m *BetaMemory) Contains(t *core.Tuple) bool {
	return m.tuples.Has(tupleKey{parent: t.Parent(), fact: t.Fact()})
}

// Remove drops a tuple and its index entries.
func (m *BetaMemory) Remove(t *core.Tuple) {
	k := tupleKey{parent: t.Parent(), fact: t.Fact()}
	if !m.tuples.Delete(k) {
		return
	}
	m.byParent[t.Parent()] = removeTuple(m.byParent[t.Parent()], t)
	if len(m.byParent[t.Parent()]) == 0 {
		delete(m.byParent, t.Parent())
	}
	if t.Fact() != nil {
		m.byFact[t.Fact()] = removeTuple(m.byFact[t.Fact()], t)
		if len(m.byFact[t.Fact()]) == 0 {
			delete(m.byFact, t.Fact())
		}
	}
}

// ChildrenOf returns the admitted tuples extending parent, in insertion
// order. The slice is a copy.
func (m *BetaMemory) ChildrenOf(parent *core.Tuple) []*core.Tuple {
	src := m.byParent[parent]
	out := make([]*core.Tuple, len(src))
	copy(out, src)
	return out
}

// WithFact returns the admitted tuples whose appended fact is f. The slice
// is a copy.
func (m *BetaMemory) WithFact(f *core.Fact) []*core.Tuple {
	src := m.byFact[f]
	out := make([]*core.Tuple, len(src))
	copy(out, src)
	return out
}

// Tuples returns all admitted tuples in insertion order.
func (m *BetaMemory) Tuples() []*core.Tuple {
	return m.tuples.Values()
}

func (m *BetaMemory) Len() int {
	return m.tuples.Len()
}

func removeTuple(s []*core.Tuple, t *core.Tuple) []*core.Tuple {
	for i, cur := range s {
		if cur == t {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
