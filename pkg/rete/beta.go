package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// unitKey is the join key used when a pattern declares no key pair: every
// left tuple matches every right fact.
type unitKey struct{}

// leftIndex tracks the join key of each left tuple seen by a beta node and
// the reverse key-to-tuples mapping, preserving arrival order.
type leftIndex struct {
	keys  map[*core.Tuple]any
	byKey map[any][]*core.Tuple
}

func newLeftIndex() *leftIndex {
	return &leftIndex{
		keys:  make(map[*core.Tuple]any),
		byKey: make(map[any][]*core.Tuple),
	}
}

func (ix *leftIndex) add(t *core.Tuple, key any) {
	ix.keys[t] = key
	ix.byKey[key] = append(ix.byKey[key], t)
}

func (ix *leftIndex) get(t *core.Tuple) (any, bool) {
	k, ok := ix.keys[t]
	return k, ok
}

func (ix *leftIndex) remove(t *core.Tuple) (any, bool) {
	k, ok := ix.keys[t]
	if !ok {
		return nil, false
	}
	delete(ix.keys, t)
	ix.byKey[k] = removeTuple(ix.byKey[k], t)
	if len(ix.byKey[k]) == 0 {
		delete(ix.byKey, k)
	}
	return k, true
}

// tuples returns a copy of the left tuples under key, in arrival order.
func (ix *leftIndex) tuples(key any) []*core.Tuple {
	src := ix.byKey[key]
	out := make([]*core.Tuple, len(src))
	copy(out, src)
	return out
}

// rightIndex is the fact-side counterpart of leftIndex.
type rightIndex struct {
	keys  map[*core.Fact]any
	byKey map[any][]*core.Fact
}

func newRightIndex() *rightIndex {
	return &rightIndex{
		keys:  make(map[*core.Fact]any),
		byKey: make(map[any][]*core.Fact),
	}
}

func (ix *rightIndex) add(f *core.Fact, key any) {
	ix.keys[f] = key
	ix.byKey[key] = append(ix.byKey[key], f)
}

func (ix *rightIndex) get(f *core.Fact) (any, bool) {
	k, ok := ix.keys[f]
	return k, ok
}

func (ix *rightIndex) remove(f *core.Fact) (any, bool) {
	k, ok := ix.keys[f]
	if !ok {
		return nil, false
	}
	delete(ix.keys, f)
	ix.byKey[k] = removeFact(ix.byKey[k], f)
	if len(ix.byKey[k]) == 0 {
		delete(ix.byKey, k)
	}
	return k, true
}

// facts returns a copy of the right facts under key, in arrival order.
func (ix *rightIndex) facts(key any) []*core.Fact {
	src := ix.byKey[key]
	out := make([]*core.Fact, len(src))
	copy(out, src)
	return out
}

func removeFact(s []*core.Fact, f *core.Fact) []*core.Fact {
	for i, cur := range s {
		if cur == f {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
