package scalarops

import (
	"strings"

	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

func asString(v encoding.Value) (string, bool) {
	sv, ok := v.(encoding.StringValue)
	if !ok {
		return "", false
	}
	return sv.Value, true
}

// Str is the `STR` built-in: formats any typed value to its plain
// lexical form, stripping language tag/datatype.
type Str struct{ functions.BaseOp }

func (Str) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "STR", Arity: functions.Unary, Encoding: encoding.EncodingTypedValue}
}

func (Str) Evaluate(args []any) (any, error) {
	v, ok := args[0].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("STR operand is not a typed value")
	}
	lit := encoding.FormatValue(v)
	return encoding.StringValue{Value: lit.Lexical}, nil
}

// Concat is the `CONCAT` built-in: n-ary, concatenates string operands.
// A non-string argument is Expected.
type Concat struct{ functions.BaseOp }

func (Concat) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "CONCAT", Arity: functions.NAry, Encoding: encoding.EncodingTypedValue}
}

func (Concat) Evaluate(args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		v, ok := a.(encoding.Value)
		if !ok {
			return nil, functions.ErrExpected("CONCAT operand is not a typed value")
		}
		s, ok := asString(v)
		if !ok {
			return nil, functions.ErrExpected("CONCAT operand is not a string")
		}
		b.WriteString(s)
	}
	return encoding.StringValue{Value: b.String()}, nil
}

// Substr is the `SUBSTR` built-in: ternary (source, start, length), 1-
// indexed per the XPath substring function this SPARQL builtin mirrors.
type Substr struct{ functions.BaseOp }

func (Substr) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "SUBSTR", Arity: functions.Ternary, Encoding: encoding.EncodingTypedValue}
}

func (Substr) Evaluate(args []any) (any, error) {
	sv, ok := args[0].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("SUBSTR source is not a typed value")
	}
	s, ok := asString(sv)
	if !ok {
		return nil, functions.ErrExpected("SUBSTR source is not a string")
	}
	start, ok := asNumericInt(args[1])
	if !ok {
		return nil, functions.ErrExpected("SUBSTR start is not numeric")
	}
	length, ok := asNumericInt(args[2])
	if !ok {
		return nil, functions.ErrExpected("SUBSTR length is not numeric")
	}
	runes := []rune(s)
	begin := clamp(int(start)-1, 0, len(runes))
	end := clamp(begin+int(length), 0, len(runes))
	if end < begin {
		end = begin
	}
	return encoding.StringValue{Value: string(runes[begin:end])}, nil
}

func asNumericInt(a any) (int64, bool) {
	v, ok := a.(encoding.NumericValue)
	if !ok {
		return 0, false
	}
	return int64(numericFloat(v)), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// caseOp implements LCASE/UCASE.
type caseOp struct {
	functions.BaseOp
	name string
	fn   func(string) string
}

func (o caseOp) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: o.name, Arity: functions.Unary, Encoding: encoding.EncodingTypedValue}
}

func (o caseOp) Evaluate(args []any) (any, error) {
	v, ok := args[0].(encoding.Value)
	if !ok {
		return nil, functions.ErrExpected("case operand is not a typed value")
	}
	s, ok := asString(v)
	if !ok {
		return nil, functions.ErrExpected("case operand is not a string")
	}
	return encoding.StringValue{Value: o.fn(s)}, nil
}

var Lcase = caseOp{name: "LCASE", fn: strings.ToLower}
var Ucase = caseOp{name: "UCASE", fn: strings.ToUpper}
