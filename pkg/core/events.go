package core

// FactEvent accompanies working-memory lifecycle events.
type FactEvent struct {
	Fact any
}

// AgendaEvent accompanies activation lifecycle events.
type AgendaEvent struct {
	Activation *Activation
}

// RuleEvent accompanies fire-loop events.
type RuleEvent struct {
	Rule       *Rule
	Activation *Activation
}

// ConditionErrorEvent reports a predicate that panicked during propagation.
type ConditionErrorEvent struct {
	Err   error
	Fact  any    // the fact under evaluation, if single-fact
	Tuple *Tuple // the tuple under evaluation, if any
}

// ActionErrorEvent reports a rule action that failed during fire.
type ActionErrorEvent struct {
	Err        error
	Activation *Activation
}

// Publisher fans lifecycle events out to subscribers. Subscribers are
// notified synchronously, in registration order; a panicking subscriber
// propagates to the session caller.
type Publisher struct {
	factInserting  []func(FactEvent)
	factInserted   []func(FactEvent)
	factUpdating   []func(FactEvent)
	factUpdated    []func(FactEvent)
	factRetracting []func(FactEvent)
	factRetracted  []func(FactEvent)

	activationCreated []func(AgendaEvent)
	activationUpdated []func(AgendaEvent)
	activationDeleted []func(AgendaEvent)

	ruleFiring []func(RuleEvent)
	ruleFired  []func(RuleEvent)

	conditionFailed []func(ConditionErrorEvent)
	actionFailed    []func(ActionErrorEvent)
}

// NewPublisher creates an empty event publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) OnFactInserting(h func(FactEvent)) { p.factInserting = append(p.factInserting, h) }
func (p *Publisher) OnFactInserted(h func(FactEvent)) { p.factInserted = append(p.factInserted, h) }
func (p *Publisher) OnFactUpdating(h func(FactEvent)) { p.factUpdating = append(p.factUpdating, h) }
func (p *Publisher) OnFactUpdated(h func(FactEvent)) { p.factUpdated = append(p.factUpdated, h) }
func (p *Publisher) OnFactRetracting(h func(FactEvent)) { p.factRetracting = append(p.factRetracting, h) }
func (p *Publisher) OnFactRetracted(h func(FactEvent)) { p.factRetracted = append(p.factRetracted, h) }

func (p *Publisher) OnActivationCreated(h func(AgendaEvent)) {
	p.activationCreated = append(p.activationCreated, h)
}

func (p *Publisher) OnActivationUpdated(h func(AgendaEvent)) {
	p.activationUpdated = append(p.activationUpdated, h)
}

func (p *Publisher) OnActivationDeleted(h func(AgendaEvent)) {
	p.activationDeleted = append(p.activationDeleted, h)
}

func (p *Publisher) OnRuleFiring(h func(RuleEvent)) { p.ruleFiring = append(p.ruleFiring, h) }
func (p *Publisher) OnRuleFired(h func(RuleEvent)) { p.ruleFired = append(p.ruleFired, h) }

func (p *Publisher) OnConditionFailed(h func(ConditionErrorEvent)) {
	p.conditionFailed = append(p.conditionFailed, h)
}

func (p *Publisher) OnActionFailed(h func(ActionErrorEvent)) {
	p.actionFailed = append(p.actionFailed, h)
}

func (p *Publisher) RaiseFactInserting(e FactEvent) { raise(p.factInserting, e) }
func (p *Publisher) RaiseFactInserted(e FactEvent) { raise(p.factInserted, e) }
func (p *Publisher) RaiseFactUpdating(e FactEvent) { raise(p.factUpdating, e) }
func (p *Publisher) RaiseFactUpdated(e FactEvent) { raise(p.factUpdated, e) }

func (p *Publisher) RaiseFactRetracting(e FactEvent) { raise(p.factRetracting, e) }
func (p *Publisher) RaiseFactRetracted(e FactEvent) { raise(p.factRetracted, e) }

func (p *Publisher) RaiseActivationCreated(e AgendaEvent) { raise(p.activationCreated, e) }
func (p *Publisher) RaiseActivationUpdated(e AgendaEvent) { raise(p.activationUpdated, e) }
func (p *Publisher) RaiseActivationDeleted(e AgendaEvent) { raise(p.activationDeleted, e) }

func (p *Publisher) RaiseRuleFiring(e RuleEvent) { raise(p.ruleFiring, e) }
func (p *Publisher) RaiseRuleFired(e RuleEvent) { raise(p.ruleFired, e) }

func (p *Publisher) RaiseConditionFailed(e ConditionErrorEvent) { raise(p.conditionFailed, e) }
func (p *Publisher) RaiseActionFailed(e ActionErrorEvent) { raise(p.actionFailed, e) }

func raise[E any](handlers []func(E), e E) {
	for _, h := range handlers {
		h(e)
	}
}
