package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTupleLineage(t *testing.T) {
	root := NewRootTuple()
	assert.Equal(t, 0, root.Size())
	assert.Empty(t, root.Facts())

	fa := NewFact("a", "A")
	fb := NewFact("b", "B")

	t1 := NewTuple(root, fa)
	t2 := NewTuple(t1, fb)

	require.Equal(t, 2, t2.Size())
	assert.Equal(t, []*Fact{fa, fb}, t2.Facts())
	assert.Same(t, t1, t2.Parent())
	assert.Same(t, fb, t2.Fact())
}

func TestTupleContains(t *testing.T) {
	fa := NewFact("a", "A")
	fb := NewFact("b", "B")
	other := NewFact("c", "C")

	t2 := NewTuple(NewTuple(NewRootTuple(), fa), fb)
	assert.True(t, t2.Contains(fa))
	assert.True(t, t2.Contains(fb))
	assert.False(t, t2.Contains(other))
}

func TestTupleIDsAreUnique(t *testing.T) {
	a := NewRootTuple()
	b := NewRootTuple()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestActivationFactBinding(t *testing.T) {
	rule := NewRule("r", 0, nil, []string{"order", "customer"}, nil)

	fo := NewFact("o", "order-1")
	fc := NewFact("c", "customer-1")
	tuple := NewTuple(NewTuple(NewRootTuple(), fo), fc)

	act := NewActivation(rule, tuple)
	assert.Equal(t, map[string]any{"order": "order-1", "customer": "customer-1"}, act.Facts())
	assert.Equal(t, "customer-1", act.Fact("customer"))
	assert.Nil(t, act.Fact("missing"))
}

func TestPublisherNotifiesInRegistrationOrder(t *testing.T) {
	p := NewPublisher()
	var order []int
	p.OnFactInserted(func(FactEvent) { order = append(order, 1) })
	p.OnFactInserted(func(FactEvent) { order = append(order, 2) })

	p.RaiseFactInserted(FactEvent{Fact: "x"})
	assert.Equal(t, []int{1, 2}, order)
}

func TestResolverRegistry(t *testing.T) {
	reg := NewResolverRegistry()
	reg.Register("mailer", "smtp-client")

	got, err := reg.Resolve("mailer")
	require.NoError(t, err)
	assert.Equal(t, "smtp-client", got)

	_, err = reg.Resolve("missing")
	require.Error(t, err)
}
