package scalarops

import (
	"math"
	"strconv"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

// arithOp implements +, -, *, / over the numeric promotion ladder: both
// operands promote to the higher rung, the operator runs there, and the
// result carries that rung's datatype. Division by zero and decimal
// overflow are Expected, not Internal — they are SPARQL type errors, not
// engine bugs.
type arithOp struct {
	functions.BaseOp
	name string
	fn   func(a, b float64) (float64, bool)
}

func (o arithOp) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: o.name, Arity: functions.Binary, Encoding: encoding.EncodingTypedValue}
}

func (o arithOp) Evaluate(args []any) (any, error) {
	a, aok := args[0].(encoding.NumericValue)
	b, bok := args[1].(encoding.NumericValue)
	if !aok || !bok {
		return nil, functions.ErrExpected("arithmetic operand is not numeric")
	}
	rung := rdffusion.PromoteNumeric(a.Kind, b.Kind)
	result, ok := o.fn(numericFloat(a), numericFloat(b))
	if !ok || (rung <= rdffusion.NumericDecimal && (math.IsInf(result, 0) || math.IsNaN(result))) {
		return nil, functions.ErrExpected("arithmetic overflow or division by zero")
	}
	return numericFromFloat(rung, result), nil
}

func numericFromFloat(rung rdffusion.NumericKind, v float64) encoding.NumericValue {
	switch rung {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return encoding.NumericValue{Kind: rung, IntVal: int64(v)}
	case rdffusion.NumericDecimal:
		return encoding.NumericValue{Kind: rung, DecimalText: strconv.FormatFloat(v, 'f', -1, 64)}
	default:
		return encoding.NumericValue{Kind: rung, FloatVal: v}
	}
}

var Add = arithOp{name: "+", fn: func(a, b float64) (float64, bool) { return a + b, true }}
var Subtract = arithOp{name: "-", fn: func(a, b float64) (float64, bool) { return a - b, true }}
var Multiply = arithOp{name: "*", fn: func(a, b float64) (float64, bool) { return a * b, true }}
var Divide = arithOp{name: "/", fn: func(a, b float64) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, true
}}

// UnaryMinus negates a numeric value, keeping its rung.
type UnaryMinus struct{ functions.BaseOp }

func (UnaryMinus) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "unary-", Arity: functions.Unary, Encoding: encoding.EncodingTypedValue}
}

func (UnaryMinus) Evaluate(args []any) (any, error) {
	v, ok := args[0].(encoding.NumericValue)
	if !ok {
		return nil, functions.ErrExpected("unary minus operand is not numeric")
	}
	return numericFromFloat(v.Kind, -numericFloat(v)), nil
}
