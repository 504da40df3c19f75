package session

import (
	"iter"
	"reflect"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/XiaoConstantine/rete-go/pkg/agenda"
	"github.com/XiaoConstantine/rete-go/pkg/config"
	"github.com/XiaoConstantine/rete-go/pkg/core"
	"github.com/XiaoConstantine/rete-go/pkg/errors"
	"github.com/XiaoConstantine/rete-go/pkg/logging"
	"github.com/XiaoConstantine/rete-go/pkg/rete"
)

// Session is the public façade of the engine: it owns a working memory, an
// agenda, and an event publisher, and drives propagation through a compiled
// network. A session is a single-threaded state machine; concurrent calls
// from multiple goroutines are undefined behavior.
type Session struct {
	id       uuid.UUID
	network  *rete.Network
	wm       *rete.WorkingMemory
	agenda   *agenda.Agenda
	events   *core.Publisher
	ctx      *rete.ExecutionContext
	resolver core.DependencyResolver
	logger   *logging.Logger
	cfg      *config.Config
	keyFns   map[reflect.Type]core.KeyFunc
	halted   bool
}

// Option configures a session at creation time.
type Option func(*Session)

// WithConfig supplies engine configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger replaces the session's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithDependencyResolver sets the resolver actions use for service lookup.
func WithDependencyResolver(r core.DependencyResolver) Option {
	return func(s *Session) {
		s.resolver = r
	}
}

// WithKeyFunc overrides the identity scheme for one fact type.
func WithKeyFunc(typ reflect.Type, fn core.KeyFunc) Option {
	return func(s *Session) {
		s.keyFns[typ] = fn
	}
}

// WithAgendaFilter installs a pop-time agenda filter.
func WithAgendaFilter(f agenda.Filter) Option {
	return func(s *Session) {
		s.agenda.AddFilter(f)
	}
}

// New creates a session over a compiled network.
func New(network *rete.Network, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		network:  network,
		wm:       rete.NewWorkingMemory(),
		agenda:   agenda.New(),
		events:   core.NewPublisher(),
		resolver: core.NewResolverRegistry(),
		cfg:      config.Default(),
		keyFns:   make(map[reflect.Type]core.KeyFunc),
	}
	s.ctx = rete.NewExecutionContext(s.wm, s.agenda, s.events)
	s.ctx.SetSession(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger(logging.Config{
			Severity: logging.ParseSeverity(s.cfg.Logging.Severity),
			Outputs:  []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(s.cfg.Logging.UseColors))},
			DefaultFields: map[string]interface{}{
				"session_id": s.id.String(),
			},
		})
	}
	s.network.Bootstrap(s.ctx)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id.String()
}

// Events returns the session's event publisher for subscription.
func (s *Session) Events() *core.Publisher {
	return s.events
}

// DependencyResolver returns the resolver used by rule actions.
func (s *Session) DependencyResolver() core.DependencyResolver {
	return s.resolver
}

// SetDependencyResolver replaces the resolver used by rule actions.
func (s *Session) SetDependencyResolver(r core.DependencyResolver) {
	s.resolver = r
}

// AddAgendaFilter installs a pop-time agenda filter.
func (s *Session) AddAgendaFilter(f agenda.Filter) {
	s.agenda.AddFilter(f)
}

// ClearAgendaFilters removes all pop-time agenda filters.
func (s *Session) ClearAgendaFilters() {
	s.agenda.ClearFilters()
}

// Snapshot walks the network and working memory and returns their
// structural description.
func (s *Session) Snapshot() *rete.Snapshot {
	return rete.TakeSnapshot(s.network, s.wm)
}

// Accept walks the network and working memory with a caller-supplied
// visitor.
func (s *Session) Accept(v rete.Visitor) {
	s.network.Accept(v, s.wm)
}

// Insert adds one fact. Fails with AlreadyExists if it is present.
func (s *Session) Insert(fact any) error {
	return s.InsertAll(fact)
}

// InsertAll adds facts all-or-error: if any fact is already present the
// call fails and no fact is inserted.
func (s *Session) InsertAll(facts ...any) error {
	return s.scoped(rete.OpInsert, func() error {
		wrappers, err := s.validateNew(facts)
		if err != nil {
			return err
		}
		s.assertWrappers(wrappers)
		return nil
	})
}

// TryInsert adds one fact, reporting whether it was new.
func (s *Session) TryInsert(fact any) bool {
	return s.TryInsertAll(fact) == 1
}

// TryInsertAll adds the subset of facts that are not yet present and
// returns how many were inserted.
func (s *Session) TryInsertAll(facts ...any) int {
	var inserted int
	_ = s.scoped(rete.OpInsert, func() error {
		var wrappers []*core.Fact
		seen := make(map[any]struct{})
		for _, fact := range facts {
			key, err := core.IdentityKey(fact, s.keyFns)
			if err != nil {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			if _, present := s.wm.Fact(key); present {
				continue
			}
			seen[key] = struct{}{}
			wrappers = append(wrappers, core.NewFact(key, fact))
		}
		s.assertWrappers(wrappers)
		inserted = len(wrappers)
		return nil
	})
	return inserted
}

// Update notifies the engine of one in-place fact change. Fails with
// UnknownFact if the fact is not present.
func (s *Session) Update(fact any) error {
	return s.UpdateAll(fact)
}

// UpdateAll is the all-or-error batch form of Update.
func (s *Session) UpdateAll(facts ...any) error {
	return s.scoped(rete.OpUpdate, func() error {
		wrappers, err := s.validateKnown(facts)
		if err != nil {
			return err
		}
		s.updateWrappers(facts, wrappers)
		return nil
	})
}

// TryUpdate notifies the engine of one fact change, reporting whether the
// fact was known.
func (s *Session) TryUpdate(fact any) bool {
	return s.TryUpdateAll(fact) == 1
}

// TryUpdateAll updates the subset of known facts and returns the count.
func (s *Session) TryUpdateAll(facts ...any) int {
	var updated int
	_ = s.scoped(rete.OpUpdate, func() error {
		values, wrappers := s.partitionKnown(facts)
		s.updateWrappers(values, wrappers)
		updated = len(wrappers)
		return nil
	})
	return updated
}

// Retract removes one fact. Fails with UnknownFact if it is not present.
func (s *Session) Retract(fact any) error {
	return s.RetractAll(fact)
}

// RetractAll is the all-or-error batch form of Retract.
func (s *Session) RetractAll(facts ...any) error {
	return s.scoped(rete.OpRetract, func() error {
		wrappers, err := s.validateKnown(facts)
		if err != nil {
			return err
		}
		s.retractWrappers(wrappers)
		return nil
	})
}

// TryRetract removes one fact, reporting whether it was known.
func (s *Session) TryRetract(fact any) bool {
	return s.TryRetractAll(fact) == 1
}

// TryRetractAll retracts the subset of known facts and returns the count.
func (s *Session) TryRetractAll(facts ...any) int {
	var retracted int
	_ = s.scoped(rete.OpRetract, func() error {
		_, wrappers := s.partitionKnown(facts)
		s.retractWrappers(wrappers)
		retracted = len(wrappers)
		return nil
	})
	return retracted
}

// Fire drains the agenda, executing each activation's actions in priority
// order, and returns the number of rules fired. It stops early when an
// action halts the session, an action fails, or the configured cycle bound
// is hit.
func (s *Session) Fire() (int, error) {
	prevOp := s.ctx.Operation()
	s.ctx.Reset(rete.OpFire)
	defer s.ctx.Reset(prevOp)

	s.halted = false
	fired := 0
	for {
		if s.cfg.Fire.MaxCycles > 0 && fired >= s.cfg.Fire.MaxCycles && s.agenda.HasActive() {
			return fired, errors.Newf(errors.CycleLimitExceeded,
				"fire loop exceeded %d cycles", s.cfg.Fire.MaxCycles)
		}

		activation := s.agenda.PopNext()
		if activation == nil {
			break
		}

		s.events.RaiseRuleFiring(core.RuleEvent{Rule: activation.Rule(), Activation: activation})
		s.logger.Debug("firing rule %q", activation.Rule().Name())

		actionCtx := core.NewActionContext(s, s.resolver, activation, &s.halted)
		for _, action := range activation.Rule().Actions() {
			if err := invokeAction(action, actionCtx); err != nil {
				wrapped := errors.Wrap(err, errors.ActionEvaluation, "action evaluation failed")
				s.events.RaiseActionFailed(core.ActionErrorEvent{Err: wrapped, Activation: activation})
				s.logger.Error("rule %q action failed: %v", activation.Rule().Name(), err)
				return fired, wrapped
			}
		}

		s.events.RaiseRuleFired(core.RuleEvent{Rule: activation.Rule(), Activation: activation})
		fired++

		if s.halted {
			s.halted = false
			break
		}
	}
	return fired, nil
}

// Query returns a lazy sequence of the working-memory facts whose host
// value is of type T, in insertion order. It never touches the network.
func Query[T any](s *Session) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, f := range s.wm.Facts() {
			if v, ok := f.Value().(T); ok {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// scoped runs one top-level operation against a freshly reset execution
// context, restoring the previous operation afterwards so re-entrant calls
// from actions nest cleanly. The first condition failure recorded during
// propagation is surfaced once the batch finishes.
func (s *Session) scoped(op rete.Operation, fn func() error) error {
	prevOp := s.ctx.Operation()
	prevErr := s.ctx.ConditionError()
	s.ctx.Reset(op)

	err := fn()
	if err == nil {
		err = s.ctx.ConditionError()
	}

	s.ctx.Reset(prevOp)
	s.ctx.RecordConditionError(prevErr)
	return err
}

// validateNew checks the whole batch before any mutation: every fact must
// have a valid identity and must not be present.
func (s *Session) validateNew(facts []any) ([]*core.Fact, error) {
	wrappers := make([]*core.Fact, 0, len(facts))
	seen := make(map[any]struct{}, len(facts))
	for _, fact := range facts {
		key, err := core.IdentityKey(fact, s.keyFns)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			return nil, alreadyExists(fact)
		}
		if _, present := s.wm.Fact(key); present {
			return nil, alreadyExists(fact)
		}
		seen[key] = struct{}{}
		wrappers = append(wrappers, core.NewFact(key, fact))
	}
	return wrappers, nil
}

// validateKnown checks the whole batch before any mutation: every fact must
// resolve to a registered wrapper.
func (s *Session) validateKnown(facts []any) ([]*core.Fact, error) {
	wrappers := make([]*core.Fact, 0, len(facts))
	for _, fact := range facts {
		key, err := core.IdentityKey(fact, s.keyFns)
		if err != nil {
			return nil, err
		}
		w, present := s.wm.Fact(key)
		if !present {
			return nil, errors.WithFields(
				errors.New(errors.UnknownFact, "fact is not in working memory"),
				errors.Fields{"fact": fact},
			)
		}
		wrappers = append(wrappers, w)
	}
	return wrappers, nil
}

// partitionKnown resolves the known subset of a batch, preserving order.
func (s *Session) partitionKnown(facts []any) ([]any, []*core.Fact) {
	values := make([]any, 0, len(facts))
	wrappers := make([]*core.Fact, 0, len(facts))
	for _, fact := range facts {
		key, err := core.IdentityKey(fact, s.keyFns)
		if err != nil {
			continue
		}
		if w, present := s.wm.Fact(key); present {
			values = append(values, fact)
			wrappers = append(wrappers, w)
		}
	}
	return values, wrappers
}

func (s *Session) assertWrappers(wrappers []*core.Fact) {
	if len(wrappers) == 0 {
		return
	}
	for _, w := range wrappers {
		s.events.RaiseFactInserting(core.FactEvent{Fact: w.Value()})
		s.wm.AddFact(w)
	}
	s.network.PropagateAssert(s.ctx, wrappers)
	for _, w := range wrappers {
		s.events.RaiseFactInserted(core.FactEvent{Fact: w.Value()})
	}
	s.logger.Debug("inserted %d facts", len(wrappers))
}

func (s *Session) updateWrappers(values []any, wrappers []*core.Fact) {
	if len(wrappers) == 0 {
		return
	}
	for i, w := range wrappers {
		s.events.RaiseFactUpdating(core.FactEvent{Fact: values[i]})
		w.SetValue(values[i])
	}
	s.network.PropagateUpdate(s.ctx, wrappers)
	for _, w := range wrappers {
		s.events.RaiseFactUpdated(core.FactEvent{Fact: w.Value()})
	}
	s.logger.Debug("updated %d facts", len(wrappers))
}

func (s *Session) retractWrappers(wrappers []*core.Fact) {
	if len(wrappers) == 0 {
		return
	}
	for _, w := range wrappers {
		s.events.RaiseFactRetracting(core.FactEvent{Fact: w.Value()})
	}
	s.network.PropagateRetract(s.ctx, wrappers)
	for _, w := range wrappers {
		s.wm.RemoveFact(w.Key())
		s.events.RaiseFactRetracted(core.FactEvent{Fact: w.Value()})
	}
	s.logger.Debug("retracted %d facts", len(wrappers))
}

func alreadyExists(fact any) error {
	return errors.WithFields(
		errors.New(errors.AlreadyExists, "fact is already in working memory"),
		errors.Fields{"fact": fact},
	)
}

func invokeAction(action core.Action, ctx *core.ActionContext) error {
	var err error
	if r := panics.Try(func() { err = action(ctx) }); r != nil {
		return r.AsError()
	}
	return err
}

var _ core.SessionOperations = (*Session)(nil)
