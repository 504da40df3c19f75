package rete

import (
	"fmt"
	"reflect"

	"github.com/XiaoConstantine/rete-go/pkg/config"
	"github.com/XiaoConstantine/rete-go/pkg/core"
	"github.com/XiaoConstantine/rete-go/pkg/errors"
)

// PatternKind discriminates the pattern variants of a rule definition.
type PatternKind int

const (
	PatternMatch PatternKind = iota
	PatternNot
	PatternExists
	PatternAggregate
	PatternBinding
)

// Condition is one single-fact predicate of a pattern. Conditions with
// equal keys on the same fact type share one selection node and one alpha
// memory; the key names the predicate's meaning, so equal keys must mean
// equal predicates.
type Condition struct {
	Key       string
	Predicate func(fact any) bool
}

// Where builds a condition.
func Where(key string, predicate func(fact any) bool) Condition {
	return Condition{Key: key, Predicate: predicate}
}

// Pattern is one step of a rule definition's match chain.
type Pattern struct {
	Kind       PatternKind
	Name       string // declaration name; empty for Not/Exists
	Type       reflect.Type
	Conditions []Condition

	// Join keys against the tuple built so far. Nil means every left tuple
	// pairs with every right fact.
	LeftKey  func(t *core.Tuple) any
	RightKey func(fact any) any

	// Filter is applied to the tuple after this pattern's node.
	Filter func(t *core.Tuple) bool

	// Aggregator builds the per-group aggregator for PatternAggregate.
	Aggregator AggregatorFactory

	// Expression computes the projected value for PatternBinding.
	Expression func(t *core.Tuple) any
}

// Match builds a positive single-fact pattern.
func Match(name string, typ reflect.Type, conditions ...Condition) Pattern {
	return Pattern{Kind: PatternMatch, Name: name, Type: typ, Conditions: conditions}
}

// Not builds a negative-quantifier pattern: the rule matches only while no
// such fact exists.
func Not(typ reflect.Type, conditions ...Condition) Pattern {
	return Pattern{Kind: PatternNot, Type: typ, Conditions: conditions}
}

// Exists builds an existential-quantifier pattern: the rule matches only
// while at least one such fact exists.
func Exists(typ reflect.Type, conditions ...Condition) Pattern {
	return Pattern{Kind: PatternExists, Type: typ, Conditions: conditions}
}

// Aggregate builds an aggregation pattern binding the group's synthetic
// value under name.
func Aggregate(name string, typ reflect.Type, factory AggregatorFactory, conditions ...Condition) Pattern {
	return Pattern{Kind: PatternAggregate, Name: name, Type: typ, Aggregator: factory, Conditions: conditions}
}

// Bind builds a projection pattern binding a computed value under name.
func Bind(name string, expression func(t *core.Tuple) any) Pattern {
	return Pattern{Kind: PatternBinding, Name: name, Expression: expression}
}

// JoinOn sets the pattern's join key pair.
func (p Pattern) JoinOn(left func(t *core.Tuple) any, right func(fact any) any) Pattern {
	p.LeftKey = left
	p.RightKey = right
	return p
}

// Filtered attaches a tuple filter after the pattern's node.
func (p Pattern) Filtered(filter func(t *core.Tuple) bool) Pattern {
	p.Filter = filter
	return p
}

// RuleDefinition is the compiled-rule input the builder consumes. Rule
// authoring and translation from source form happen outside the engine.
type RuleDefinition struct {
	Name     string
	Priority int
	Tags     []string
	Patterns []Pattern
	Actions  []core.Action
}

// NetworkBuilder assembles rule definitions into a Network, sharing alpha
// nodes across rules by (type, condition-key) prefix.
type NetworkBuilder struct {
	cfg           *config.Config
	nodes         []Node
	root          *RootNode
	dummy         *DummyNode
	typeNodes     map[reflect.Type]*TypeNode
	selections    map[string]*SelectionNode
	memories      map[string]*AlphaMemoryNode
	alphaMemories map[int]*AlphaMemoryNode
	terminals     []*TerminalNode
	ruleNames     map[string]struct{}
}

// BuilderOption configures a NetworkBuilder.
type BuilderOption func(*NetworkBuilder)

// WithConfig supplies engine configuration; the builder reads aggregate
// defaults from it.
func WithConfig(cfg *config.Config) BuilderOption {
	return func(b *NetworkBuilder) {
		b.cfg = cfg
	}
}

// NewNetworkBuilder creates an empty builder.
func NewNetworkBuilder(opts ...BuilderOption) *NetworkBuilder {
	b := &NetworkBuilder{
		cfg:           config.Default(),
		typeNodes:     make(map[reflect.Type]*TypeNode),
		selections:    make(map[string]*SelectionNode),
		memories:      make(map[string]*AlphaMemoryNode),
		alphaMemories: make(map[int]*AlphaMemoryNode),
		ruleNames:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.root = newRootNode(b.nextID())
	b.register(b.root)
	b.dummy = newDummyNode(b.nextID())
	b.register(b.dummy)
	return b
}

func (b *NetworkBuilder) nextID() int {
	return len(b.nodes)
}

func (b *NetworkBuilder) register(n Node) {
	b.nodes = append(b.nodes, n)
}

// tupleEmitter is any node tuples flow out of.
type tupleEmitter interface {
	Node
	addSink(TupleSink)
}

// AddRule compiles one rule definition into the network.
func (b *NetworkBuilder) AddRule(def RuleDefinition) error {
	if def.Name == "" {
		return errors.New(errors.InvalidInput, "rule name must not be empty")
	}
	if _, dup := b.ruleNames[def.Name]; dup {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "rule already defined"),
			errors.Fields{"rule": def.Name},
		)
	}
	if len(def.Patterns) == 0 {
		return errors.Newf(errors.InvalidInput, "rule %q has no patterns", def.Name)
	}
	if len(def.Actions) == 0 {
		return errors.Newf(errors.InvalidInput, "rule %q has no actions", def.Name)
	}

	var declarations []string
	var left tupleEmitter = b.dummy

	for i, p := range def.Patterns {
		node, decl, err := b.buildPattern(def, i, p, left)
		if err != nil {
			return err
		}
		if decl != "" {
			declarations = append(declarations, decl)
		}
		left = node
		if p.Filter != nil {
			fn := newFilterNode(b.nextID(), p.Filter)
			b.register(fn)
			left.addSink(fn)
			left = fn
		}
	}

	rule := core.NewRule(def.Name, def.Priority, def.Tags, declarations, def.Actions)
	terminal := newTerminalNode(b.nextID(), rule)
	b.register(terminal)
	left.addSink(terminal)
	b.terminals = append(b.terminals, terminal)
	b.ruleNames[def.Name] = struct{}{}
	return nil
}

func (b *NetworkBuilder) buildPattern(def RuleDefinition, index int, p Pattern, left tupleEmitter) (tupleEmitter, string, error) {
	switch p.Kind {
	case PatternMatch:
		if p.Name == "" || p.Type == nil {
			return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: match needs a name and a type", def.Name, index)
		}
		join := newJoinNode(b.nextID(), leftKeyOr(p.LeftKey), rightKeyOr(p.RightKey))
		b.register(join)
		b.attach(def.Name, p, left, join)
		return join, p.Name, nil

	case PatternNot:
		if p.Type == nil {
			return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: not needs a type", def.Name, index)
		}
		not := newNotNode(b.nextID(), leftKeyOr(p.LeftKey), rightKeyOr(p.RightKey))
		b.register(not)
		b.attach(def.Name, p, left, not)
		return not, "", nil

	case PatternExists:
		if p.Type == nil {
			return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: exists needs a type", def.Name, index)
		}
		exists := newExistsNode(b.nextID(), leftKeyOr(p.LeftKey), rightKeyOr(p.RightKey))
		b.register(exists)
		b.attach(def.Name, p, left, exists)
		return exists, "", nil

	case PatternAggregate:
		if p.Name == "" || p.Type == nil {
			return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: aggregate needs a name and a type", def.Name, index)
		}
		factory := p.Aggregator
		if factory == nil {
			if b.cfg.Aggregates.EmitEmptyGroups {
				factory = Collect()
			} else {
				factory = CollectNonEmpty()
			}
		}
		agg := newAggregateNode(b.nextID(), leftKeyOr(p.LeftKey), rightKeyOr(p.RightKey), factory)
		b.register(agg)
		b.attach(def.Name, p, left, agg)
		return agg, p.Name, nil

	case PatternBinding:
		if p.Name == "" || p.Expression == nil {
			return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: binding needs a name and an expression", def.Name, index)
		}
		binding := newBindingNode(b.nextID(), p.Expression)
		b.register(binding)
		left.addSink(binding)
		return binding, p.Name, nil

	default:
		return nil, "", errors.Newf(errors.InvalidInput, "rule %q pattern %d: unknown pattern kind", def.Name, index)
	}
}

// attach wires a beta node between the current left emitter and the
// pattern's alpha memory.
func (b *NetworkBuilder) attach(ruleName string, p Pattern, left tupleEmitter, node interface {
	tupleEmitter
	rightActivable
	TupleSink
}) {
	left.addSink(node)
	mem := b.alphaMemory(ruleName, p)
	adapter := newObjectInputAdapter(b.nextID(), node)
	b.register(adapter)
	mem.addSink(adapter)
}

// alphaMemory resolves the alpha memory for a pattern's type and condition
// chain, creating and sharing nodes along the way.
func (b *NetworkBuilder) alphaMemory(ruleName string, p Pattern) *AlphaMemoryNode {
	tn, ok := b.typeNodes[p.Type]
	if !ok {
		tn = newTypeNode(b.nextID(), p.Type)
		b.register(tn)
		b.root.addTypeNode(tn)
		b.typeNodes[p.Type] = tn
	}

	path := p.Type.String()
	var parent interface{ addChild(ObjectSink) } = tn
	for i, c := range p.Conditions {
		key := c.Key
		if key == "" {
			// Unkeyed conditions never share nodes.
			key = fmt.Sprintf("%s#%d", ruleName, i)
		}
		path += "/" + key
		sel, ok := b.selections[path]
		if !ok {
			sel = newSelectionNode(b.nextID(), key, c.Predicate)
			b.register(sel)
			parent.addChild(sel)
			b.selections[path] = sel
		}
		parent = sel
	}

	memPath := path + "/$mem"
	mem, ok := b.memories[memPath]
	if !ok {
		mem = newAlphaMemoryNode(b.nextID(), path)
		b.register(mem)
		parent.addChild(mem)
		b.memories[memPath] = mem
		b.alphaMemories[mem.id] = mem
	}
	return mem
}

// Build finalizes the network.
func (b *NetworkBuilder) Build() (*Network, error) {
	if len(b.terminals) == 0 {
		return nil, errors.New(errors.InvalidInput, "network has no rules")
	}
	return &Network{
		root:          b.root,
		dummy:         b.dummy,
		nodes:         b.nodes,
		alphaMemories: b.alphaMemories,
		terminals:     b.terminals,
	}, nil
}

func leftKeyOr(fn func(t *core.Tuple) any) func(t *core.Tuple) any {
	if fn != nil {
		return fn
	}
	return func(*core.Tuple) any { return unitKey{} }
}

func rightKeyOr(fn func(fact any) any) func(fact any) any {
	if fn != nil {
		return fn
	}
	return func(any) any { return unitKey{} }
}
