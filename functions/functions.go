// Package functions implements SPARQL built-in dispatch: operations
// parameterized by arity and encoding, the three-valued-logic error
// policy, and an encoding-aware registry. Op shape is grounded on the
// teacher's query-normalizer rule dispatch (internal/queryoptimizer in
// the copied tree), generalized from a fixed rule set to an open,
// registration-based set of scalar/aggregate operators.
package functions

import (
	"fmt"

	"github.com/rdf-fusion/rdffusion-go/encoding"
)

// Arity is the fixed argument count family a scalar op is defined over.
type Arity int

const (
	Nullary Arity = iota
	Unary
	Binary
	Ternary
	NAry
)

// DispatchKey identifies one concrete implementation of a named op:
// function name, arity, and the encoding its first argument (and
// conventionally all arguments) is specialized for.
type DispatchKey struct {
	Name     string
	Arity    Arity
	Encoding encoding.Encoding
}

func (k DispatchKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.Name, k.Arity, k.Encoding)
}

// ScalarOp is one arity/encoding specialization of a built-in. Args and
// Result are encoding.ThinResult[T] values for whatever T the
// specialization operates on (bool, string, encoding.Value, ...) — kept
// as `any` here since Go generics cannot express a family of arities
// through one interface; concrete ops in package scalarops narrow this
// by type-asserting each argument to the type they operate on.
type ScalarOp interface {
	Key() DispatchKey
	// Evaluate applies the op to one row's already-decoded arguments.
	Evaluate(args []any) (any, error)
	// EvaluateError is the three-valued-logic override hook: if any
	// argument is an Err(Expected), the default policy short-circuits to
	// Expected without calling Evaluate. An op that needs different
	// behavior (COALESCE, BOUND) implements this to see the raw argument
	// values (nil where Expected) and presence vector, and decide the
	// final (result, isExpected) outcome itself; handled=false defers to
	// the default policy.
	EvaluateError(values []any, argsExpected []bool) (result any, isExpected bool, handled bool)
}

// BaseOp is embeddable by concrete ops that accept the default
// three-valued-logic policy (short-circuit to Expected if any arg is
// Expected).
type BaseOp struct{}

func (BaseOp) EvaluateError(values []any, argsExpected []bool) (any, bool, bool) {
	return nil, false, false
}

// Registry is the (name, arity, encoding)-keyed function dispatch table.
// It satisfies rdffusion.FunctionRegistry.
type Registry struct {
	ops map[DispatchKey]ScalarOp
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[DispatchKey]ScalarOp)}
}

// Register adds impl under the given (name, arity, encoding) string
// triple, satisfying rdffusion.FunctionRegistry.Register's signature.
func (r *Registry) Register(name string, arity int, enc string, impl any) error {
	op, ok := impl.(ScalarOp)
	if !ok {
		return fmt.Errorf("functions: %T does not implement ScalarOp", impl)
	}
	key := DispatchKey{Name: name, Arity: Arity(arity), Encoding: encoding.Encoding(enc)}
	r.ops[key] = op
	return nil
}

// Lookup satisfies rdffusion.FunctionRegistry.Lookup.
func (r *Registry) Lookup(name string, arity int, enc string) (any, bool) {
	key := DispatchKey{Name: name, Arity: Arity(arity), Encoding: encoding.Encoding(enc)}
	op, ok := r.ops[key]
	return op, ok
}

// RegisterOp is the typed convenience path used by package scalarops and
// package aggregate to populate a Registry.
func (r *Registry) RegisterOp(op ScalarOp) {
	r.ops[op.Key()] = op
}

// Resolve finds the best available specialization of name for the given
// arity, preferring an exact match on preferred, and falling back to any
// registered encoding (the caller is then responsible for inserting an
// encoding-change UDF ahead of the call, per the "Specialization"
// dispatch rule).
func (r *Registry) Resolve(name string, arity Arity, preferred encoding.Encoding) (ScalarOp, bool) {
	if op, ok := r.ops[DispatchKey{Name: name, Arity: arity, Encoding: preferred}]; ok {
		return op, true
	}
	for key, op := range r.ops {
		if key.Name == name && key.Arity == arity {
			return op, true
		}
	}
	return nil, false
}

// EvaluateRow runs op's three-valued-logic policy over one row's
// already-decoded arguments, each given as (value any, isExpected bool).
// isExpected means the argument itself decoded as Err(Expected); the
// policy either short-circuits to Expected (default) or defers to the
// op's EvaluateError hook.
func EvaluateRow(op ScalarOp, values []any, expected []bool) (result any, isExpected bool, err error) {
	if res, resExpected, handled := op.EvaluateError(values, expected); handled {
		return res, resExpected, nil
	}
	for _, e := range expected {
		if e {
			return nil, true, nil
		}
	}
	res, evalErr := op.Evaluate(values)
	if evalErr != nil {
		if te, ok := evalErr.(expectedError); ok {
			_ = te
			return nil, true, nil
		}
		return nil, false, evalErr
	}
	return res, false, nil
}

// expectedError marks an Evaluate failure as a per-row SPARQL type error
// rather than an internal/batch-aborting error.
type expectedError struct{ msg string }

func (e expectedError) Error() string { return e.msg }

// ErrExpected constructs the sentinel an op's Evaluate returns to signal
// Err(Expected) rather than Err(Internal).
func ErrExpected(msg string) error { return expectedError{msg: msg} }

// IsExpected reports whether err is the Err(Expected) sentinel.
func IsExpected(err error) bool {
	_, ok := err.(expectedError)
	return ok
}
