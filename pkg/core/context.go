package core

// SessionOperations is the session surface available to rule actions.
// Actions re-enter the session through it; each call propagates through the
// network before returning.
type SessionOperations interface {
	Insert(fact any) error
	InsertAll(facts ...any) error
	TryInsert(fact any) bool
	Update(fact any) error
	UpdateAll(facts ...any) error
	TryUpdate(fact any) bool
	Retract(fact any) error
	RetractAll(facts ...any) error
	TryRetract(fact any) bool
}

// ActionContext is handed to each rule action when its activation fires.
type ActionContext struct {
	session    SessionOperations
	resolver   DependencyResolver
	activation *Activation
	halted     *bool
}

// NewActionContext assembles the context the fire loop passes to actions.
func NewActionContext(session SessionOperations, resolver DependencyResolver, activation *Activation, halted *bool) *ActionContext {
	return &ActionContext{
		session:    session,
		resolver:   resolver,
		activation: activation,
		halted:     halted,
	}
}

// Session returns the owning session for re-entrant fact operations.
func (c *ActionContext) Session() SessionOperations {
	return c.session
}

// Rule returns the rule being fired.
func (c *ActionContext) Rule() *Rule {
	return c.activation.Rule()
}

// Activation returns the activation being fired.
func (c *ActionContext) Activation() *Activation {
	return c.activation
}

// Fact returns the host value bound to a declaration name in the firing
// activation's tuple.
func (c *ActionContext) Fact(name string) any {
	return c.activation.Fact(name)
}

// Facts returns the full declaration-name to host-value binding.
func (c *ActionContext) Facts() map[string]any {
	return c.activation.Facts()
}

// Halt stops the current fire loop after the running rule completes.
func (c *ActionContext) Halt() {
	*c.halted = true
}

// Resolve looks up a service dependency by name through the session's
// dependency resolver.
func (c *ActionContext) Resolve(service string) (any, error) {
	return c.resolver.Resolve(service)
}
