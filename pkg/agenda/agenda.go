package agenda

import (
	"container/heap"

	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Filter restricts which activations PopNext will hand out. Activations
// rejected by a filter stay queued and become eligible again if the filter
// set changes.
type Filter interface {
	Accept(activation *core.Activation) bool
}

// TagFilter accepts activations whose rule carries the given tag. It is the
// conventional way to fire only one rule group at a time.
type TagFilter struct {
	Tag string
}

func (f TagFilter) Accept(activation *core.Activation) bool {
	return activation.Rule().HasTag(f.Tag)
}

type activationKey struct {
	rule  *core.Rule
	tuple *core.Tuple
}

type entry struct {
	activation *core.Activation
	priority   int
	seq        int64
	removed    bool
}

// Agenda is the priority-ordered set of pending activations. Ordering is by
// rule priority (higher first), then by sequence number (FIFO). The agenda
// holds at most one activation per (rule, tuple) pair.
type Agenda struct {
	queue   entryQueue
	index   map[activationKey]*entry
	seq     int64
	filters []Filter
}

// New creates an empty agenda.
func New() *Agenda {
	return &Agenda{
		index: make(map[activationKey]*entry),
	}
}

// Add queues an activation. If an activation for the same (rule, tuple) is
// already present the call is ignored; the update path uses Modify instead.
// Reports whether the activation was queued.
func (a *Agenda) Add(activation *core.Activation) bool {
	k := keyOf(activation)
	if _, ok := a.index[k]; ok {
		return false
	}
	a.push(k, activation)
	return true
}

// Modify reassigns the activation's sequence number to now, moving it behind
// its priority peers. A (rule, tuple) pair that is not queued — typically
// because it already fired — is left alone.
func (a *Agenda) Modify(activation *core.Activation) bool {
	k := keyOf(activation)
	old, ok := a.index[k]
	if !ok {
		return false
	}
	old.removed = true
	a.push(k, old.activation)
	return true
}

// Remove deletes the activation for (rule, tuple) if one is queued and
// returns it, nil otherwise.
func (a *Agenda) Remove(rule *core.Rule, tuple *core.Tuple) *core.Activation {
	k := activationKey{rule: rule, tuple: tuple}
	e, ok := a.index[k]
	if !ok {
		return nil
	}
	e.removed = true
	delete(a.index, k)
	return e.activation
}

// PopNext consumes and returns the highest-priority, lowest-sequence
// activation that passes every filter, or nil if none does. Filtered
// activations remain queued.
func (a *Agenda) PopNext() *core.Activation {
	var skipped []*entry
	var found *core.Activation

	for a.queue.Len() > 0 {
		e := heap.Pop(&a.queue).(*entry)
		if e.removed {
			continue
		}
		if !a.accepts(e.activation) {
			skipped = append(skipped, e)
			continue
		}
		delete(a.index, keyOf(e.activation))
		found = e.activation
		break
	}

	for _, e := range skipped {
		heap.Push(&a.queue, e)
	}
	return found
}

// HasActive reports whether any queued activation passes the filters.
func (a *Agenda) HasActive() bool {
	for _, e := range a.index {
		if a.accepts(e.activation) {
			return true
		}
	}
	return false
}

// Len returns the number of queued activations, filtered or not.
func (a *Agenda) Len() int {
	return len(a.index)
}

// Clear drops every queued activation.
func (a *Agenda) Clear() {
	a.queue = nil
	a.index = make(map[activationKey]*entry)
}

// AddFilter installs a pop-time filter.
func (a *Agenda) AddFilter(f Filter) {
	a.filters = append(a.filters, f)
}

// ClearFilters removes all pop-time filters.
func (a *Agenda) ClearFilters() {
	a.filters = nil
}

func (a *Agenda) accepts(activation *core.Activation) bool {
	for _, f := range a.filters {
		if !f.Accept(activation) {
			return false
		}
	}
	return true
}

func (a *Agenda) push(k activationKey, activation *core.Activation) {
	a.seq++
	activation.SetSequence(a.seq)
	e := &entry{
		activation: activation,
		priority:   activation.Rule().Priority(),
		seq:        a.seq,
	}
	heap.Push(&a.queue, e)
	a.index[k] = e
}

func keyOf(activation *core.Activation) activationKey {
	return activationKey{rule: activation.Rule(), tuple: activation.Tuple()}
}

type entryQueue []*entry

func (q entryQueue) Len() int { return len(q) }

func (q entryQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q entryQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *entryQueue) Push(x any) {
	*q = append(*q, x.(*entry))
}

func (q *entryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
