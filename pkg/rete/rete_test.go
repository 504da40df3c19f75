package rete

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/rete-go/pkg/agenda"
	"github.com/XiaoConstantine/rete-go/pkg/core"
	"github.com/XiaoConstantine/rete-go/pkg/errors"
)

type order struct {
	ID       string
	Customer string
	Total    float64
}

type customer struct {
	Name string
	VIP  bool
}

var (
	orderType    = reflect.TypeOf(&order{})
	customerType = reflect.TypeOf(&customer{})
)

func noopAction(ctx *core.ActionContext) error { return nil }

type testEnv struct {
	t      *testing.T
	net    *Network
	wm     *WorkingMemory
	agenda *agenda.Agenda
	events *core.Publisher
	ctx    *ExecutionContext
}

func newEnv(t *testing.T, defs ...RuleDefinition) *testEnv {
	t.Helper()
	b := NewNetworkBuilder()
	for _, def := range defs {
		require.NoError(t, b.AddRule(def))
	}
	net, err := b.Build()
	require.NoError(t, err)

	wm := NewWorkingMemory()
	ag := agenda.New()
	events := core.NewPublisher()
	ctx := NewExecutionContext(wm, ag, events)
	net.Bootstrap(ctx)
	return &testEnv{t: t, net: net, wm: wm, agenda: ag, events: events, ctx: ctx}
}

func (e *testEnv) insert(value any) *core.Fact {
	e.t.Helper()
	key, err := core.IdentityKey(value, nil)
	require.NoError(e.t, err)
	f := core.NewFact(key, value)
	e.wm.AddFact(f)
	e.ctx.Reset(OpInsert)
	e.net.PropagateAssert(e.ctx, []*core.Fact{f})
	return f
}

func (e *testEnv) update(f *core.Fact) {
	e.ctx.Reset(OpUpdate)
	e.net.PropagateUpdate(e.ctx, []*core.Fact{f})
}

func (e *testEnv) retract(f *core.Fact) {
	e.ctx.Reset(OpRetract)
	e.net.PropagateRetract(e.ctx, []*core.Fact{f})
	e.wm.RemoveFact(f.Key())
}

func positiveTotalRule(name string) RuleDefinition {
	return RuleDefinition{
		Name: name,
		Patterns: []Pattern{
			Match("o", orderType, Where("positive-total", func(f any) bool {
				return f.(*order).Total > 0
			})),
		},
		Actions: []core.Action{noopAction},
	}
}

func TestBuilderValidation(t *testing.T) {
	b := NewNetworkBuilder()

	err := b.AddRule(RuleDefinition{})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	err = b.AddRule(RuleDefinition{Name: "no-patterns", Actions: []core.Action{noopAction}})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	err = b.AddRule(RuleDefinition{
		Name:     "no-actions",
		Patterns: []Pattern{Match("o", orderType)},
	})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	err = b.AddRule(RuleDefinition{
		Name:     "nameless-match",
		Patterns: []Pattern{Match("", orderType)},
		Actions:  []core.Action{noopAction},
	})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	require.NoError(t, b.AddRule(positiveTotalRule("dup")))
	err = b.AddRule(positiveTotalRule("dup"))
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewNetworkBuilder().Build()
	assert.Error(t, err)
}

func TestAlphaNodeSharingByConditionKey(t *testing.T) {
	b := NewNetworkBuilder()
	require.NoError(t, b.AddRule(positiveTotalRule("first")))
	require.NoError(t, b.AddRule(positiveTotalRule("second")))
	net, err := b.Build()
	require.NoError(t, err)

	snap := TakeSnapshot(net, NewWorkingMemory())
	assert.Len(t, snap.NodesOfKind("type"), 1)
	assert.Len(t, snap.NodesOfKind("selection"), 1)
	assert.Len(t, snap.NodesOfKind("alpha-memory"), 1)
	assert.Len(t, snap.NodesOfKind("terminal"), 2)
}

func TestSimpleMatch(t *testing.T) {
	e := newEnv(t, positiveTotalRule("positive-order"))

	e.insert(&order{ID: "o1", Total: 5})
	assert.Equal(t, 1, e.agenda.Len())

	e.insert(&order{ID: "o2", Total: -1})
	assert.Equal(t, 1, e.agenda.Len())

	activation := e.agenda.PopNext()
	require.NotNil(t, activation)
	assert.Equal(t, "positive-order", activation.Rule().Name())
	assert.Equal(t, "o1", activation.Fact("o").(*order).ID)
}

func joinRule() RuleDefinition {
	return RuleDefinition{
		Name: "order-for-customer",
		Patterns: []Pattern{
			Match("c", customerType),
			Match("o", orderType).JoinOn(
				func(t *core.Tuple) any { return t.Facts()[0].Value().(*customer).Name },
				func(f any) any { return f.(*order).Customer },
			),
		},
		Actions: []core.Action{noopAction},
	}
}

func TestJoinMatchesByKey(t *testing.T) {
	e := newEnv(t, joinRule())

	e.insert(&customer{Name: "ada"})
	e.insert(&order{ID: "o1", Customer: "ada"})
	e.insert(&order{ID: "o2", Customer: "grace"})
	assert.Equal(t, 1, e.agenda.Len())

	// A second matching right fact yields a second distinct tuple.
	e.insert(&order{ID: "o3", Customer: "ada"})
	assert.Equal(t, 2, e.agenda.Len())
}

func TestJoinRightBeforeLeft(t *testing.T) {
	e := newEnv(t, joinRule())

	e.insert(&order{ID: "o1", Customer: "ada"})
	assert.Equal(t, 0, e.agenda.Len())

	e.insert(&customer{Name: "ada"})
	assert.Equal(t, 1, e.agenda.Len())
}

func TestJoinRetractRemovesChildren(t *testing.T) {
	e := newEnv(t, joinRule())

	c := e.insert(&customer{Name: "ada"})
	e.insert(&order{ID: "o1", Customer: "ada"})
	e.insert(&order{ID: "o2", Customer: "ada"})
	assert.Equal(t, 2, e.agenda.Len())

	e.retract(c)
	assert.Equal(t, 0, e.agenda.Len())
}

func TestJoinUpdateRekeysRightFact(t *testing.T) {
	e := newEnv(t, joinRule())

	e.insert(&customer{Name: "ada"})
	e.insert(&customer{Name: "grace"})
	o := e.insert(&order{ID: "o1", Customer: "ada"})
	assert.Equal(t, 1, e.agenda.Len())

	first := e.agenda.PopNext()
	assert.Equal(t, "ada", first.Fact("c").(*customer).Name)

	o.Value().(*order).Customer = "grace"
	e.update(o)

	next := e.agenda.PopNext()
	require.NotNil(t, next)
	assert.Equal(t, "grace", next.Fact("c").(*customer).Name)
	assert.Nil(t, e.agenda.PopNext())
}

func TestUpdatePreservesTupleIdentity(t *testing.T) {
	e := newEnv(t, positiveTotalRule("positive-order"))

	var created, updated, deleted []*core.Activation
	e.events.OnActivationCreated(func(ev core.AgendaEvent) { created = append(created, ev.Activation) })
	e.events.OnActivationUpdated(func(ev core.AgendaEvent) { updated = append(updated, ev.Activation) })
	e.events.OnActivationDeleted(func(ev core.AgendaEvent) { deleted = append(deleted, ev.Activation) })

	o := e.insert(&order{ID: "o1", Total: 5})
	require.Len(t, created, 1)

	o.Value().(*order).Total = 7
	e.update(o)

	require.Len(t, updated, 1)
	assert.Same(t, created[0], updated[0])
	assert.Empty(t, deleted)
	assert.Len(t, created, 1)
}

func TestUpdateFlipsAlphaMembership(t *testing.T) {
	e := newEnv(t, positiveTotalRule("positive-order"))

	var deleted int
	e.events.OnActivationDeleted(func(core.AgendaEvent) { deleted++ })

	o := e.insert(&order{ID: "o1", Total: 5})
	assert.Equal(t, 1, e.agenda.Len())

	o.Value().(*order).Total = -3
	e.update(o)
	assert.Equal(t, 0, e.agenda.Len())
	assert.Equal(t, 1, deleted)

	o.Value().(*order).Total = 9
	e.update(o)
	assert.Equal(t, 1, e.agenda.Len())
}

func TestNotNodeTransitions(t *testing.T) {
	def := RuleDefinition{
		Name: "customer-without-orders",
		Patterns: []Pattern{
			Match("c", customerType),
			Not(orderType).JoinOn(
				func(t *core.Tuple) any { return t.Facts()[0].Value().(*customer).Name },
				func(f any) any { return f.(*order).Customer },
			),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&customer{Name: "ada"})
	assert.Equal(t, 1, e.agenda.Len())

	o := e.insert(&order{ID: "o1", Customer: "ada"})
	assert.Equal(t, 0, e.agenda.Len())

	o2 := e.insert(&order{ID: "o2", Customer: "ada"})
	assert.Equal(t, 0, e.agenda.Len())

	e.retract(o)
	assert.Equal(t, 0, e.agenda.Len())

	e.retract(o2)
	assert.Equal(t, 1, e.agenda.Len())
}

func TestExistsNodeTransitions(t *testing.T) {
	def := RuleDefinition{
		Name: "customer-with-orders",
		Patterns: []Pattern{
			Match("c", customerType),
			Exists(orderType).JoinOn(
				func(t *core.Tuple) any { return t.Facts()[0].Value().(*customer).Name },
				func(f any) any { return f.(*order).Customer },
			),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&customer{Name: "ada"})
	assert.Equal(t, 0, e.agenda.Len())

	o := e.insert(&order{ID: "o1", Customer: "ada"})
	assert.Equal(t, 1, e.agenda.Len())

	e.retract(o)
	assert.Equal(t, 0, e.agenda.Len())
}

func TestAggregateCollectWithCardinalityFilter(t *testing.T) {
	def := RuleDefinition{
		Name: "bulk-orders",
		Patterns: []Pattern{
			Aggregate("orders", orderType, Collect()).Filtered(func(t *core.Tuple) bool {
				return len(t.Facts()[0].Value().([]any)) >= 3
			}),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&order{ID: "o1"})
	e.insert(&order{ID: "o2"})
	assert.Equal(t, 0, e.agenda.Len())

	o3 := e.insert(&order{ID: "o3"})
	require.Equal(t, 1, e.agenda.Len())

	activation := e.agenda.PopNext()
	collected := activation.Fact("orders").([]any)
	assert.Len(t, collected, 3)

	e.retract(o3)
	assert.Equal(t, 0, e.agenda.Len())
}

func TestAggregateSumSkipsEmptyGroups(t *testing.T) {
	def := RuleDefinition{
		Name: "revenue",
		Patterns: []Pattern{
			Aggregate("total", orderType, Sum(func(f any) float64 { return f.(*order).Total })),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	// No orders: sum does not emit, so no activation either.
	assert.Equal(t, 0, e.agenda.Len())

	o1 := e.insert(&order{ID: "o1", Total: 10})
	e.insert(&order{ID: "o2", Total: 5})
	require.Equal(t, 1, e.agenda.Len())

	activation := e.agenda.PopNext()
	assert.InDelta(t, 15.0, activation.Fact("total").(float64), 1e-9)

	o1.Value().(*order).Total = 20
	e.update(o1)
	// Identity preserved: the updated group re-lands as an update, and the
	// consumed activation is not re-queued.
	assert.Equal(t, 0, e.agenda.Len())
}

func TestAggregateGroupsPerLeftTuple(t *testing.T) {
	def := RuleDefinition{
		Name: "orders-per-customer",
		Patterns: []Pattern{
			Match("c", customerType),
			Aggregate("orders", orderType, CollectNonEmpty()).JoinOn(
				func(t *core.Tuple) any { return t.Facts()[0].Value().(*customer).Name },
				func(f any) any { return f.(*order).Customer },
			),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&customer{Name: "ada"})
	e.insert(&customer{Name: "grace"})
	assert.Equal(t, 0, e.agenda.Len())

	e.insert(&order{ID: "o1", Customer: "ada"})
	assert.Equal(t, 1, e.agenda.Len())

	e.insert(&order{ID: "o2", Customer: "grace"})
	assert.Equal(t, 2, e.agenda.Len())
}

func TestBindingProjectsValue(t *testing.T) {
	def := RuleDefinition{
		Name: "order-discount",
		Patterns: []Pattern{
			Match("o", orderType, Where("positive-total", func(f any) bool {
				return f.(*order).Total > 0
			})),
			Bind("discount", func(t *core.Tuple) any {
				return t.Facts()[0].Value().(*order).Total * 0.1
			}),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&order{ID: "o1", Total: 100})
	require.Equal(t, 1, e.agenda.Len())

	activation := e.agenda.PopNext()
	assert.InDelta(t, 10.0, activation.Fact("discount").(float64), 1e-9)
	assert.Equal(t, "o1", activation.Fact("o").(*order).ID)
}

func TestConditionPanicTreatedAsUnmatched(t *testing.T) {
	def := RuleDefinition{
		Name: "picky",
		Patterns: []Pattern{
			Match("o", orderType, Where("explosive", func(f any) bool {
				if f.(*order).ID == "boom" {
					panic("bad predicate")
				}
				return true
			})),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	var failures []core.ConditionErrorEvent
	e.events.OnConditionFailed(func(ev core.ConditionErrorEvent) { failures = append(failures, ev) })

	e.insert(&order{ID: "ok"})
	assert.Equal(t, 1, e.agenda.Len())
	assert.Nil(t, e.ctx.ConditionError())

	boom := e.insert(&order{ID: "boom"})
	require.Len(t, failures, 1)
	assert.True(t, errors.HasCode(failures[0].Err, errors.ConditionEvaluation))
	assert.True(t, errors.HasCode(e.ctx.ConditionError(), errors.ConditionEvaluation))

	// The throwing fact counts as unmatched: no membership, no activation.
	assert.Empty(t, boom.Memberships())
	assert.Equal(t, 1, e.agenda.Len())
}

func TestTypeDispatchFollowsAssignability(t *testing.T) {
	stringerType := reflect.TypeOf((*interface{ Label() string })(nil)).Elem()
	def := RuleDefinition{
		Name: "labelled",
		Patterns: []Pattern{
			Match("x", stringerType),
		},
		Actions: []core.Action{noopAction},
	}
	e := newEnv(t, def)

	e.insert(&labelled{name: "a"})
	assert.Equal(t, 1, e.agenda.Len())

	// A type that does not implement the interface is not dispatched.
	e.insert(&order{ID: "o1"})
	assert.Equal(t, 1, e.agenda.Len())
}

type labelled struct {
	name string
}

func (l *labelled) Label() string { return l.name }

func TestSnapshotDescribesMemories(t *testing.T) {
	e := newEnv(t, joinRule())
	e.insert(&customer{Name: "ada"})
	e.insert(&order{ID: "o1", Customer: "ada"})

	snap := TakeSnapshot(e.net, e.wm)

	require.Len(t, snap.Facts, 2)
	memories := snap.NodesOfKind("alpha-memory")
	require.Len(t, memories, 2)
	for _, m := range memories {
		assert.Equal(t, 1, m.MemorySize)
		assert.Len(t, m.TupleSamples, 1)
	}

	joins := snap.NodesOfKind("join")
	require.Len(t, joins, 2)
	terminal := snap.NodesOfKind("terminal")
	require.Len(t, terminal, 1)
	assert.Equal(t, 1, terminal[0].MemorySize)
	assert.Equal(t, "order-for-customer", terminal[0].Label)
}

func TestWorkingMemoryInsertionOrder(t *testing.T) {
	wm := NewWorkingMemory()
	a := core.NewFact("a", 1)
	b := core.NewFact("b", 2)
	c := core.NewFact("c", 3)
	wm.AddFact(a)
	wm.AddFact(b)
	wm.AddFact(c)
	wm.RemoveFact("b")

	facts := wm.Facts()
	require.Len(t, facts, 2)
	assert.Same(t, a, facts[0])
	assert.Same(t, c, facts[1])
}

func TestOrderedMap(t *testing.T) {
	m := newOrderedMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("c", 3)
	m.Put("a", 10) // replace keeps position

	assert.Equal(t, []int{10, 2, 3}, m.Values())
	assert.Equal(t, 3, m.Len())

	assert.True(t, m.Delete("b"))
	assert.False(t, m.Delete("b"))
	assert.Equal(t, []int{10, 3}, m.Values())

	v, ok := m.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.False(t, m.Has("b"))
}

func TestBetaMemoryIndexes(t *testing.T) {
	mem := newBetaMemory()
	parent := core.NewTuple(core.NewRootTuple(), core.NewFact("p", "P"))
	fa := core.NewFact("a", "A")
	fb := core.NewFact("b", "B")

	ca, created := mem.GetOrCreate(parent, fa)
	assert.True(t, created)
	again, created := mem.GetOrCreate(parent, fa)
	assert.False(t, created)
	assert.Same(t, ca, again)

	cb, _ := mem.GetOrCreate(parent, fb)
	assert.Equal(t, []*core.Tuple{ca, cb}, mem.ChildrenOf(parent))
	assert.Equal(t, []*core.Tuple{ca}, mem.WithFact(fa))

	mem.Remove(ca)
	assert.Equal(t, []*core.Tuple{cb}, mem.ChildrenOf(parent))
	assert.Empty(t, mem.WithFact(fa))
	assert.Equal(t, 1, mem.Len())
}
