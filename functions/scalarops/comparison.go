// Package scalarops implements the concrete SPARQL built-in scalar
// operators dispatched by package functions. Semantics (value equality
// over the numeric ladder, the partial order used by </<=/>/>=, the
// total is_compatible predicate) are grounded on spec.md §4.2, with the
// per-op struct shape carried over from the teacher's filter-predicate
// idiom in internal/attribute_filter.go and internal/condition.go.
package scalarops

import (
	"strconv"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

// numericOrd reports a.FloatVal-comparable ordering for two NumericValue
// operands promoted to a common rung, or ok=false if either side is not
// itself comparable (never for well-formed NumericValue).
func numericOrd(a, b encoding.NumericValue) (cmp int, ok bool) {
	af, bf := numericFloat(a), numericFloat(b)
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

func numericFloat(v encoding.NumericValue) float64 {
	switch v.Kind {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return float64(v.IntVal)
	case rdffusion.NumericDecimal:
		f, _ := strconv.ParseFloat(v.DecimalText, 64)
		return f
	default:
		return v.FloatVal
	}
}

// valueEquals implements `=`'s value-equality rules: numeric ladder,
// xsd:boolean, simple/lang strings, and dateTime instants. Returns
// ok=false for incomparable pairs (distinct families, or two unknown
// literals), which the caller turns into Err(Expected).
func valueEquals(a, b encoding.Value) (equal bool, ok bool) {
	if a.Family() != b.Family() {
		return false, false
	}
	switch av := a.(type) {
	case encoding.BooleanValue:
		return av == b.(encoding.BooleanValue), true
	case encoding.NumericValue:
		cmp, _ := numericOrd(av, b.(encoding.NumericValue))
		return cmp == 0, true
	case encoding.StringValue:
		bv := b.(encoding.StringValue)
		return av.Value == bv.Value && av.Language == bv.Language && av.HasLanguage == bv.HasLanguage, true
	case encoding.DateTimeValue:
		bv := b.(encoding.DateTimeValue)
		if av.Kind != bv.Kind {
			return false, false
		}
		return av.Time.Equal(bv.Time), true
	case encoding.ResourceValue:
		bv := b.(encoding.ResourceValue)
		return av == bv, true
	default:
		return false, false
	}
}

// Equals is the `=` built-in: binary, TypedValue-encoded.
type Equals struct{ functions.BaseOp }

func (Equals) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "=", Arity: functions.Binary, Encoding: encoding.EncodingTypedValue}
}

func (Equals) Evaluate(args []any) (any, error) {
	a, b := args[0].(encoding.Value), args[1].(encoding.Value)
	eq, ok := valueEquals(a, b)
	if !ok {
		return nil, functions.ErrExpected("incomparable operands to =")
	}
	return encoding.BooleanValue(eq), nil
}

// SameTerm is the `sameTerm` built-in: binary, PlainTerm-encoded lexical
// identity — total, no incomparable-operand case.
type SameTerm struct{ functions.BaseOp }

func (SameTerm) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "sameTerm", Arity: functions.Binary, Encoding: encoding.EncodingPlainTerm}
}

func (SameTerm) Evaluate(args []any) (any, error) {
	a, b := args[0].(rdffusion.Term), args[1].(rdffusion.Term)
	return a.String() == b.String(), nil
}

// IsCompatible implements the SPARQL join-key compatibility predicate:
// a IS NULL OR b IS NULL OR a sameTerm b. Total, never errors; args may
// themselves be nil to represent an unbound column value.
type IsCompatible struct{ functions.BaseOp }

func (IsCompatible) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "is_compatible", Arity: functions.Binary, Encoding: encoding.EncodingPlainTerm}
}

func (IsCompatible) Evaluate(args []any) (any, error) {
	a, _ := args[0].(rdffusion.Term)
	b, _ := args[1].(rdffusion.Term)
	if a == nil || b == nil {
		return true, nil
	}
	return a.String() == b.String(), nil
}

// ordOp is the shared implementation behind </<=/>/>=: a strict partial
// order over TypedValue that errors on operands it cannot order.
type ordOp struct {
	functions.BaseOp
	name   string
	accept func(cmp int) bool
}

func (o ordOp) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: o.name, Arity: functions.Binary, Encoding: encoding.EncodingTypedValue}
}

func (o ordOp) Evaluate(args []any) (any, error) {
	a, aok := args[0].(encoding.Value)
	b, bok := args[1].(encoding.Value)
	if !aok || !bok {
		return nil, functions.ErrExpected("ordering operand is not a typed value")
	}
	cmp, ok := orderable(a, b)
	if !ok {
		return nil, functions.ErrExpected("incomparable operands to ordering operator")
	}
	return encoding.BooleanValue(o.accept(cmp)), nil
}

// orderable implements the strict partial order: comparable within
// Numeric, String (by value, only when both carry the same language tag
// or both carry none), Boolean, and DateTime families; cross-family or
// unknown-literal pairs are incomparable.
func orderable(a, b encoding.Value) (cmp int, ok bool) {
	if a.Family() != b.Family() {
		return 0, false
	}
	switch av := a.(type) {
	case encoding.NumericValue:
		return numericOrd(av, b.(encoding.NumericValue))
	case encoding.StringValue:
		bv := b.(encoding.StringValue)
		if av.HasLanguage != bv.HasLanguage || av.Language != bv.Language {
			return 0, false
		}
		switch {
		case av.Value < bv.Value:
			return -1, true
		case av.Value > bv.Value:
			return 1, true
		default:
			return 0, true
		}
	case encoding.BooleanValue:
		bv := b.(encoding.BooleanValue)
		switch {
		case av == bv:
			return 0, true
		case !bool(av) && bool(bv):
			return -1, true
		default:
			return 1, true
		}
	case encoding.DateTimeValue:
		bv := b.(encoding.DateTimeValue)
		if av.Kind != bv.Kind {
			return 0, false
		}
		switch {
		case av.Time.Before(bv.Time):
			return -1, true
		case av.Time.After(bv.Time):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

var LessThan = ordOp{name: "<", accept: func(c int) bool { return c < 0 }}
var LessOrEqual = ordOp{name: "<=", accept: func(c int) bool { return c <= 0 }}
var GreaterThan = ordOp{name: ">", accept: func(c int) bool { return c > 0 }}
var GreaterOrEqual = ordOp{name: ">=", accept: func(c int) bool { return c >= 0 }}
