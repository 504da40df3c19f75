package core

// Action is a single rule consequence, invoked with the bound facts of the
// activation being fired. Actions may re-enter the session through the
// context to insert, update, or retract facts.
type Action func(ctx *ActionContext) error

// Rule is a compiled rule as seen at runtime by the terminal node, the
// agenda, and the fire loop. Rule construction happens in the network
// builder; the engine core never interprets conditions.
type Rule struct {
	name         string
	priority     int
	tags         map[string]struct{}
	actions      []Action
	declarations []string // one name per fact position in terminal tuples
}

// NewRule creates a compiled rule.
func NewRule(name string, priority int, tags []string, declarations []string, actions []Action) *Rule {
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}
	return &Rule{
		name:         name,
		priority:     priority,
		tags:         tagSet,
		actions:      actions,
		declarations: declarations,
	}
}

// Name returns the rule's unique name.
func (r *Rule) Name() string {
	return r.name
}

// Priority returns the rule's agenda priority. Higher fires first.
func (r *Rule) Priority() int {
	return r.priority
}

// HasTag reports whether the rule carries the given tag.
func (r *Rule) HasTag(tag string) bool {
	_, ok := r.tags[tag]
	return ok
}

// Actions returns the rule's consequences in declaration order.
func (r *Rule) Actions() []Action {
	return r.actions
}

// Declarations returns the names bound to each fact position of the rule's
// terminal tuples.
func (r *Rule) Declarations() []string {
	return r.declarations
}
