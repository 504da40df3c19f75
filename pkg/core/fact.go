package core

import (
	"reflect"

	"github.com/XiaoConstantine/rete-go/pkg/errors"
)

// KeyFunc derives the canonical identity key for a fact value. Hosts supply
// one per fact type when the default identity scheme does not apply.
type KeyFunc func(value any) any

// Fact is the engine-internal wrapper around a host value. It carries the
// fact's stable identity key and the set of alpha memories the value is
// currently a member of. Wrappers are owned exclusively by working memory.
type Fact struct {
	key         any
	value       any
	memberships []int            // alpha memory node ids, in join order
	memberSet   map[int]struct{} // membership lookup
	synthetic   bool
}

// NewFact creates a wrapper for a host value under the given identity key.
func NewFact(key, value any) *Fact {
	return &Fact{
		key:       key,
		value:     value,
		memberSet: make(map[int]struct{}),
	}
}

// NewSyntheticFact creates a wrapper for an engine-derived value, such as an
// aggregation result or a binding projection. Synthetic facts never enter
// working memory; their identity is the wrapper itself.
func NewSyntheticFact(value any) *Fact {
	f := &Fact{
		value:     value,
		memberSet: make(map[int]struct{}),
		synthetic: true,
	}
	f.key = f
	return f
}

// Key returns the fact's identity key.
func (f *Fact) Key() any {
	return f.key
}

// Value returns the wrapped host value.
func (f *Fact) Value() any {
	return f.value
}

// SetValue replaces the wrapped value. Used on update for value-typed facts
// and when a synthetic fact's derivation changes; the wrapper identity is
// unchanged so dependent tuples keep theirs.
func (f *Fact) SetValue(value any) {
	f.value = value
}

// IsSynthetic reports whether the fact is engine-derived.
func (f *Fact) IsSynthetic() bool {
	return f.synthetic
}

// AddMembership records that the fact is present in the alpha memory of the
// node with the given id.
func (f *Fact) AddMembership(nodeID int) {
	if _, ok := f.memberSet[nodeID]; ok {
		return
	}
	f.memberSet[nodeID] = struct{}{}
	f.memberships = append(f.memberships, nodeID)
}

// RemoveMembership drops a recorded alpha membership.
func (f *Fact) RemoveMembership(nodeID int) {
	if _, ok := f.memberSet[nodeID]; !ok {
		return
	}
	delete(f.memberSet, nodeID)
	for i, id := range f.memberships {
		if id == nodeID {
			f.memberships = append(f.memberships[:i], f.memberships[i+1:]...)
			break
		}
	}
}

// HasMembership reports whether the fact is in the given alpha memory.
func (f *Fact) HasMembership(nodeID int) bool {
	_, ok := f.memberSet[nodeID]
	return ok
}

// Memberships returns the fact's alpha memberships in insertion order.
// The returned slice is a copy; callers may retract while iterating.
func (f *Fact) Memberships() []int {
	out := make([]int, len(f.memberships))
	copy(out, f.memberships)
	return out
}

// IdentityKey computes the canonical identity key for a host value.
// Reference-typed facts (pointers, channels) are identified by address;
// comparable value-typed facts by value. keyFns overrides the scheme per
// concrete type. A non-comparable value with no KeyFunc is rejected.
func IdentityKey(value any, keyFns map[reflect.Type]KeyFunc) (any, error) {
	if value == nil {
		return nil, errors.New(errors.InvalidFact, "fact must not be nil")
	}

	t := reflect.TypeOf(value)
	if keyFns != nil {
		if fn, ok := keyFns[t]; ok {
			return fn(value), nil
		}
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return value, nil
	}

	if !t.Comparable() {
		return nil, errors.WithFields(
			errors.New(errors.InvalidFact, "fact type is not comparable and has no key function"),
			errors.Fields{"type": t.String()},
		)
	}
	return value, nil
}
