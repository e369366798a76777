package scalarops

import (
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

// Bound is the `BOUND` built-in: the one scalar op that observes
// presence/absence of a value rather than the value itself, and so opts
// out of the default three-valued-logic short-circuit via EvaluateError.
type Bound struct{}

func (Bound) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "BOUND", Arity: functions.Unary, Encoding: encoding.EncodingPlainTerm}
}

// EvaluateError never defers to Evaluate: BOUND's answer is fully
// determined by whether the single argument was Expected (== unbound).
func (Bound) EvaluateError(values []any, argsExpected []bool) (any, bool, bool) {
	return encoding.BooleanValue(!argsExpected[0]), false, true
}

func (Bound) Evaluate(args []any) (any, error) {
	return encoding.BooleanValue(true), nil
}

// Coalesce is `COALESCE`: n-ary, returns the first argument that is not
// Expected, or Expected if all are. It overrides the default policy for
// the same reason as BOUND — it must see which inputs are Expected
// rather than short-circuiting on the first one.
type Coalesce struct{}

func (Coalesce) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "COALESCE", Arity: functions.NAry, Encoding: encoding.EncodingTypedValue}
}

func (Coalesce) EvaluateError(values []any, argsExpected []bool) (any, bool, bool) {
	for i, expected := range argsExpected {
		if !expected {
			return values[i], false, true
		}
	}
	return nil, true, true
}

func (Coalesce) Evaluate(args []any) (any, error) {
	for _, a := range args {
		if a != nil {
			return a, nil
		}
	}
	return nil, functions.ErrExpected("COALESCE: all arguments unbound")
}
