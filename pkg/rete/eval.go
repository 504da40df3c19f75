package rete

import (
	"reflect"

	"github.com/sourcegraph/conc/panics"

	"github.com/XiaoConstantine/rete-go/pkg/core"
	"github.com/XiaoConstantine/rete-go/pkg/errors"
)

// evalPredicate runs a host predicate, trapping panics. A panicking
// predicate raises condition_failed, records the wrapped error on the
// context, and counts as false, so the in-flight propagation completes with
// the fact or tuple treated as unmatched.
func evalPredicate(ctx *ExecutionContext, fact any, tuple *core.Tuple, fn func() bool) bool {
	var ok bool
	if r := panics.Try(func() { ok = fn() }); r != nil {
		reportConditionFailure(ctx, fact, tuple, r.AsError())
		return false
	}
	return ok
}

// evalKey runs a host key or expression function, trapping panics. The
// second return is false when the value is unusable: the function panicked
// or produced a non-comparable key. The caller treats the input as
// unmatched.
func evalKey(ctx *ExecutionContext, fact any, tuple *core.Tuple, fn func() any) (any, bool) {
	var v any
	if r := panics.Try(func() { v = fn() }); r != nil {
		reportConditionFailure(ctx, fact, tuple, r.AsError())
		return nil, false
	}
	if v != nil && !reflect.TypeOf(v).Comparable() {
		reportConditionFailure(ctx, fact, tuple, errors.WithFields(
			errors.New(errors.ConditionEvaluation, "key function produced a non-comparable value"),
			errors.Fields{"type": reflect.TypeOf(v).String()},
		))
		return nil, false
	}
	return v, true
}

// evalValue runs a host expression, trapping panics. Unlike evalKey the
// result may be any value.
func evalValue(ctx *ExecutionContext, fact any, tuple *core.Tuple, fn func() any) (any, bool) {
	var v any
	if r := panics.Try(func() { v = fn() }); r != nil {
		reportConditionFailure(ctx, fact, tuple, r.AsError())
		return nil, false
	}
	return v, true
}

func reportConditionFailure(ctx *ExecutionContext, fact any, tuple *core.Tuple, cause error) {
	err := errors.Wrap(cause, errors.ConditionEvaluation, "condition evaluation failed")
	ctx.Events().RaiseConditionFailed(core.ConditionErrorEvent{Err: err, Fact: fact, Tuple: tuple})
	ctx.RecordConditionError(err)
}
