package core

// Activation is a rule match ready to fire: the rule, the terminal tuple
// that satisfied it, and the declaration-name to host-value binding. The
// sequence number is assigned by the agenda and breaks priority ties FIFO.
type Activation struct {
	rule  *Rule
	tuple *Tuple
	seq   int64
}

// NewActivation creates an activation for a rule and its matched tuple.
func NewActivation(rule *Rule, tuple *Tuple) *Activation {
	return &Activation{rule: rule, tuple: tuple}
}

// Rule returns the matched rule.
func (a *Activation) Rule() *Rule {
	return a.rule
}

// Tuple returns the matched terminal tuple.
func (a *Activation) Tuple() *Tuple {
	return a.tuple
}

// Sequence returns the agenda-assigned sequence number.
func (a *Activation) Sequence() int64 {
	return a.seq
}

// SetSequence assigns the sequence number. Called by the agenda on add and
// on reorder.
func (a *Activation) SetSequence(seq int64) {
	a.seq = seq
}

// Facts returns the declaration-name to host-value map for the activation's
// tuple. Values are read through the wrappers at call time, so an update to
// a bound fact is visible to a later call.
func (a *Activation) Facts() map[string]any {
	decls := a.rule.Declarations()
	facts := a.tuple.Facts()
	out := make(map[string]any, len(facts))
	for i, f := range facts {
		if i < len(decls) {
			out[decls[i]] = f.Value()
		}
	}
	return out
}

// Fact returns the host value bound to the given declaration name, or nil.
func (a *Activation) Fact(name string) any {
	decls := a.rule.Declarations()
	facts := a.tuple.Facts()
	for i, decl := range decls {
		if decl == name && i < len(facts) {
			return facts[i].Value()
		}
	}
	return nil
}
