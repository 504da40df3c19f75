package rete

import (
	"github.com/XiaoConstantine/rete-go/pkg/core"
)

// Collect returns a factory for the collection aggregator: the group's
// synthetic value is the ordered slice of member host values. An empty
// group emits an empty collection.
func Collect() AggregatorFactory {
	return func() Aggregator {
		return &collectAggregator{emitEmpty: true}
	}
}

// CollectNonEmpty is Collect without the empty-group emission: the group's
// child tuple appears with the first member and goes away with the last.
func CollectNonEmpty() AggregatorFactory {
	return func() Aggregator {
		return &collectAggregator{}
	}
}

type collectAggregator struct {
	members   []*core.Fact
	emitEmpty bool
}

func (a *collectAggregator) Add(f *core.Fact) {
	a.members = append(a.members, f)
}

func (a *collectAggregator) Modify(f *core.Fact) {
	// Membership is by wrapper; an in-place change only affects Result.
}

func (a *collectAggregator) Remove(f *core.Fact) {
	for i, cur := range a.members {
		if cur == f {
			a.members = append(a.members[:i], a.members[i+1:]...)
			return
		}
	}
}

func (a *collectAggregator) Result() (any, bool) {
	if len(a.members) == 0 && !a.emitEmpty {
		return nil, false
	}
	values := make([]any, len(a.members))
	for i, f := range a.members {
		values[i] = f.Value()
	}
	return values, true
}

// Count returns a factory for the counting aggregator. An empty group emits
// zero.
func Count() AggregatorFactory {
	return func() Aggregator {
		return &countAggregator{}
	}
}

type countAggregator struct {
	n int
}

func (a *countAggregator) Add(f *core.Fact)    { a.n++ }
func (a *countAggregator) Modify(f *core.Fact) {}
func (a *countAggregator) Remove(f *core.Fact) { a.n-- }

func (a *countAggregator) Result() (any, bool) {
	return a.n, true
}

// Sum returns a factory for the summing aggregator over a numeric
// projection of each member. Empty groups do not emit.
func Sum(project func(fact any) float64) AggregatorFactory {
	return func() Aggregator {
		return &sumAggregator{
			project:       project,
			contributions: make(map[*core.Fact]float64),
		}
	}
}

type sumAggregator struct {
	project       func(fact any) float64
	contributions map[*core.Fact]float64
	total         float64
}

func (a *sumAggregator) Add(f *core.Fact) {
	v := a.project(f.Value())
	a.contributions[f] = v
	a.total += v
}

func (a *sumAggregator) Modify(f *core.Fact) {
	old, ok := a.contributions[f]
	if !ok {
		return
	}
	v := a.project(f.Value())
	a.contributions[f] = v
	a.total += v - old
}

func (a *sumAggregator) Remove(f *core.Fact) {
	old, ok := a.contributions[f]
	if !ok {
		return
	}
	delete(a.contributions, f)
	a.total -= old
}

func (a *sumAggregator) Result() (any, bool) {
	if len(a.contributions) == 0 {
		return nil, false
	}
	return a.total, true
}
