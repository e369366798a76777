package scalarops

import (
	"strconv"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

// castOp implements the xsd:* constructor-style casts (xsd:integer(?x),
// xsd:double(?x), ...): unary, TypedValue-encoded, failing to Expected
// rather than InternalError on an unparsable source.
type castOp struct {
	functions.BaseOp
	name string
	fn   func(encoding.Value) (encoding.Value, bool)
}

func (o castOp) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: o.name, Arity: functions.Unary, Encoding: encoding.EncodingTypedValue}
}

func (o castOp) Evaluate(args []any) (any, error) {
	v, ok := args[0].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("cast operand is not a typed value")
	}
	out, ok := o.fn(v)
	if !ok {
		return nil, functions.ErrExpected("cast source value could not be converted")
	}
	return out, nil
}

func sourceLexical(v encoding.Value) string {
	return encoding.FormatValue(v).Lexical
}

var CastToString = castOp{name: "xsd:string", fn: func(v encoding.Value) (encoding.Value, bool) {
	return encoding.StringValue{Value: sourceLexical(v)}, true
}}

var CastToBoolean = castOp{name: "xsd:boolean", fn: func(v encoding.Value) (encoding.Value, bool) {
	switch sourceLexical(v) {
	case "true", "1":
		return encoding.BooleanValue(true), true
	case "false", "0":
		return encoding.BooleanValue(false), true
	default:
		return nil, false
	}
}}

var CastToInteger = castOp{name: "xsd:integer", fn: func(v encoding.Value) (encoding.Value, bool) {
	n, err := strconv.ParseInt(sourceLexical(v), 10, 64)
	if err != nil {
		return nil, false
	}
	return encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: n}, true
}}

var CastToDouble = castOp{name: "xsd:double", fn: func(v encoding.Value) (encoding.Value, bool) {
	f, err := strconv.ParseFloat(sourceLexical(v), 64)
	if err != nil {
		return nil, false
	}
	return encoding.NumericValue{Kind: rdffusion.NumericDouble, FloatVal: f}, true
}}
