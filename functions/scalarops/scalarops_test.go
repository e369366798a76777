package scalarops

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
)

func numeric(k rdffusion.NumericKind, i int64) encoding.NumericValue {
	return encoding.NumericValue{Kind: k, IntVal: i}
}

func TestEqualsValueEquality(t *testing.T) {
	res, err := Equals{}.Evaluate([]any{numeric(rdffusion.NumericInteger, 2), numeric(rdffusion.NumericInt, 2)})
	require.NoError(t, err)
	assert.Equal(t, encoding.BooleanValue(true), res)
}

func TestEqualsPromotesDecimalMagnitudeNotZero(t *testing.T) {
	integer := numeric(rdffusion.NumericInteger, 1)
	decimal := encoding.NumericValue{Kind: rdffusion.NumericDecimal, DecimalText: "1.0"}

	res, err := Equals{}.Evaluate([]any{integer, decimal})
	require.NoError(t, err)
	assert.Equal(t, encoding.BooleanValue(true), res)
}

func TestEqualsIncomparableIsExpected(t *testing.T) {
	_, err := Equals{}.Evaluate([]any{numeric(rdffusion.NumericInteger, 2), encoding.StringValue{Value: "2"}})
	assert.True(t, functions.IsExpected(err))
}

func TestSameTermUsesLexicalIdentity(t *testing.T) {
	a := rdffusion.Literal{Lexical: "1", Datatype: rdffusion.XSDInteger}
	b := rdffusion.Literal{Lexical: "1", Datatype: rdffusion.XSDDecimal}
	res, err := SameTerm{}.Evaluate([]any{a, b})
	require.NoError(t, err)
	assert.Equal(t, false, res)
}

func TestIsCompatibleNullEitherSide(t *testing.T) {
	res, err := IsCompatible{}.Evaluate([]any{nil, rdffusion.NamedNode{IRI: "a"}})
	require.NoError(t, err)
	assert.Equal(t, true, res)
}

func TestOrderingPartialOrder(t *testing.T) {
	res, err := LessThan.Evaluate([]any{numeric(rdffusion.NumericInteger, 1), numeric(rdffusion.NumericInteger, 2)})
	require.NoError(t, err)
	assert.Equal(t, encoding.BooleanValue(true), res)

	_, err = LessThan.Evaluate([]any{numeric(rdffusion.NumericInteger, 1), encoding.StringValue{Value: "x"}})
	assert.True(t, functions.IsExpected(err))
}

func TestArithmeticPromotesToHigherRung(t *testing.T) {
	a := numeric(rdffusion.NumericInteger, 2)
	b := encoding.NumericValue{Kind: rdffusion.NumericDouble, FloatVal: 1.5}
	res, err := Add.Evaluate([]any{a, b})
	require.NoError(t, err)
	nv := res.(encoding.NumericValue)
	assert.Equal(t, rdffusion.NumericDouble, nv.Kind)
	assert.InDelta(t, 3.5, nv.FloatVal, 0.0001)
}

func TestArithmeticUsesDecimalMagnitudeNotZero(t *testing.T) {
	decimal := encoding.NumericValue{Kind: rdffusion.NumericDecimal, DecimalText: "1.5"}
	integer := numeric(rdffusion.NumericInteger, 2)

	res, err := Add.Evaluate([]any{decimal, integer})
	require.NoError(t, err)
	nv := res.(encoding.NumericValue)
	assert.Equal(t, rdffusion.NumericDecimal, nv.Kind)
	f, err := strconv.ParseFloat(nv.DecimalText, 64)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, f, 0.0001)
}

func TestDivideByZeroIsExpected(t *testing.T) {
	_, err := Divide.Evaluate([]any{numeric(rdffusion.NumericInteger, 1), numeric(rdffusion.NumericInteger, 0)})
	assert.True(t, functions.IsExpected(err))
}

func TestConcatAndSubstr(t *testing.T) {
	res, err := Concat{}.Evaluate([]any{encoding.StringValue{Value: "foo"}, encoding.StringValue{Value: "bar"}})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "foobar"}, res)

	res, err = Substr{}.Evaluate([]any{
		encoding.StringValue{Value: "hello world"},
		numeric(rdffusion.NumericInteger, 7),
		numeric(rdffusion.NumericInteger, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "world"}, res)
}

func TestLcaseUcase(t *testing.T) {
	res, err := Lcase.Evaluate([]any{encoding.StringValue{Value: "HeLLo"}})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "hello"}, res)

	res, err = Ucase.Evaluate([]any{encoding.StringValue{Value: "HeLLo"}})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "HELLO"}, res)
}

func TestRegexMatchesWithFlags(t *testing.T) {
	res, err := RegexTernary.Evaluate([]any{
		encoding.StringValue{Value: "Hello"},
		encoding.StringValue{Value: "^hello$"},
		encoding.StringValue{Value: "i"},
	})
	require.NoError(t, err)
	assert.Equal(t, encoding.BooleanValue(true), res)
}

func TestRegexUnknownFlagIsExpected(t *testing.T) {
	_, err := RegexTernary.Evaluate([]any{
		encoding.StringValue{Value: "Hello"},
		encoding.StringValue{Value: "hello"},
		encoding.StringValue{Value: "z"},
	})
	assert.True(t, functions.IsExpected(err))
}

func TestReplaceSubstitutesBackreferences(t *testing.T) {
	res, err := Replace{}.Evaluate([]any{
		encoding.StringValue{Value: "2024-01-02"},
		encoding.StringValue{Value: `(\d+)-(\d+)-(\d+)`},
		encoding.StringValue{Value: "$3/$2/$1"},
	})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "02/01/2024"}, res)
}

func TestCastToIntegerFailureIsExpected(t *testing.T) {
	_, err := CastToInteger.Evaluate([]any{encoding.StringValue{Value: "not a number"}})
	assert.True(t, functions.IsExpected(err))
}

func TestCastToStringUsesCanonicalLexical(t *testing.T) {
	res, err := CastToString.Evaluate([]any{numeric(rdffusion.NumericInteger, 42)})
	require.NoError(t, err)
	assert.Equal(t, encoding.StringValue{Value: "42"}, res)
}

func TestBoundObservesPresenceNotValue(t *testing.T) {
	res, isExpected, handled := Bound{}.EvaluateError([]any{nil}, []bool{true})
	assert.True(t, handled)
	assert.False(t, isExpected)
	assert.Equal(t, encoding.BooleanValue(false), res)
}

func TestCoalesceReturnsFirstBound(t *testing.T) {
	res, isExpected, handled := Coalesce{}.EvaluateError(
		[]any{nil, encoding.StringValue{Value: "b"}},
		[]bool{true, false},
	)
	assert.True(t, handled)
	assert.False(t, isExpected)
	assert.Equal(t, encoding.StringValue{Value: "b"}, res)
}

func TestCoalesceAllUnboundIsExpected(t *testing.T) {
	_, isExpected, handled := Coalesce{}.EvaluateError([]any{nil, nil}, []bool{true, true})
	assert.True(t, handled)
	assert.True(t, isExpected)
}
