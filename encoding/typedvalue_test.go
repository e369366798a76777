package encoding

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
)

func TestParseLiteralFamilies(t *testing.T) {
	cases := []struct {
		name   string
		lit    rdffusion.Literal
		family Family
	}{
		{"string", rdffusion.Literal{Lexical: "hi", Datatype: rdffusion.XSDString}, FamilyString},
		{"lang string", rdffusion.Literal{Lexical: "hi", Language: "en"}, FamilyString},
		{"boolean", rdffusion.Literal{Lexical: "true", Datatype: rdffusion.XSDBoolean}, FamilyBoolean},
		{"integer", rdffusion.Literal{Lexical: "42", Datatype: rdffusion.XSDInteger}, FamilyNumeric},
		{"decimal", rdffusion.Literal{Lexical: "1.50", Datatype: rdffusion.XSDDecimal}, FamilyNumeric},
		{"dateTime", rdffusion.Literal{Lexical: "2024-01-02T03:04:05Z", Datatype: rdffusion.XSDDateTime}, FamilyDateTime},
		{"duration", rdffusion.Literal{Lexical: "P1Y2M3DT4H5M6S", Datatype: rdffusion.XSDDuration}, FamilyDuration},
		{"malformed int", rdffusion.Literal{Lexical: "not-a-number", Datatype: rdffusion.XSDInteger}, FamilyUnknownLiteral},
		{"unknown datatype", rdffusion.Literal{Lexical: "x", Datatype: "http://example.org/custom"}, FamilyUnknownLiteral},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := ParseLiteral(c.lit)
			assert.Equal(t, c.family, v.Family())
		})
	}
}

func TestFormatValueRoundTripsKnownDatatypes(t *testing.T) {
	lits := []rdffusion.Literal{
		{Lexical: "hi", Datatype: rdffusion.XSDString},
		{Lexical: "hi", Language: "en", Datatype: rdffusion.RDFLangString},
		{Lexical: "true", Datatype: rdffusion.XSDBoolean},
		{Lexical: "42", Datatype: rdffusion.XSDInteger},
	}
	for _, lit := range lits {
		got := FormatValue(ParseLiteral(lit))
		assert.Equal(t, lit.Lexical, got.Lexical)
		assert.Equal(t, lit.Language, got.Language)
	}
}

func TestUnknownLiteralPassesThroughUnchanged(t *testing.T) {
	lit := rdffusion.Literal{Lexical: "not-a-number", Datatype: rdffusion.XSDInteger}
	got := FormatValue(ParseLiteral(lit))
	assert.Equal(t, lit, got)
}

func TestTypedArrayRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := NewTypedBuilder(mem)
	b.AppendValue(ResourceValue{Value: "http://example.org/a"})
	b.AppendValue(BooleanValue(true))
	b.AppendValue(NumericValue{Kind: rdffusion.NumericInteger, IntVal: 7})
	b.AppendNull()
	arr := b.NewArray()
	require.Equal(t, 4, arr.Len())

	v0, ok0 := DecodeValue(arr, 0)
	require.True(t, ok0)
	assert.Equal(t, ResourceValue{Value: "http://example.org/a"}, v0)

	v2, ok2 := DecodeValue(arr, 2)
	require.True(t, ok2)
	assert.Equal(t, int64(7), v2.(NumericValue).IntVal)

	_, ok3 := DecodeValue(arr, 3)
	assert.False(t, ok3)
}
