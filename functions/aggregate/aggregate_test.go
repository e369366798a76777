package aggregate

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
)

func intRows(vals ...int64) []encoding.ThinResult[encoding.Value] {
	out := make([]encoding.ThinResult[encoding.Value], len(vals))
	for i, v := range vals {
		out[i] = encoding.Ok[encoding.Value](encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: v})
	}
	return out
}

func TestSumBasic(t *testing.T) {
	s := NewSum()
	require.NoError(t, s.UpdateBatch(intRows(1, 2, 3)))
	v, ok := s.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(6), v.(encoding.NumericValue).IntVal)
}

func TestSumPoisonsOnNonNumeric(t *testing.T) {
	s := NewSum()
	rows := append(intRows(1), encoding.Ok[encoding.Value](encoding.StringValue{Value: "x"}))
	require.NoError(t, s.UpdateBatch(rows))
	_, ok := s.Evaluate()
	assert.False(t, ok)
}

func TestSumSkipsExpectedRows(t *testing.T) {
	s := NewSum()
	rows := append(intRows(1, 2), encoding.Expected[encoding.Value]())
	require.NoError(t, s.UpdateBatch(rows))
	v, ok := s.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(3), v.(encoding.NumericValue).IntVal)
}

func TestSumMergeBatch(t *testing.T) {
	a, b := NewSum(), NewSum()
	require.NoError(t, a.UpdateBatch(intRows(1, 2)))
	require.NoError(t, b.UpdateBatch(intRows(3, 4)))
	require.NoError(t, a.MergeBatch(b.State()))
	v, ok := a.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(10), v.(encoding.NumericValue).IntVal)
}

func TestSumOfIntegersOverflowingInt64PoisonsInsteadOfWrapping(t *testing.T) {
	s := NewSum()
	require.NoError(t, s.UpdateBatch(intRows(9223372036854775807, 1)))
	_, ok := s.Evaluate()
	assert.False(t, ok)
}

func TestSumOfIntegersOverflowingInt64PoisonsAcrossMerge(t *testing.T) {
	a, b := NewSum(), NewSum()
	require.NoError(t, a.UpdateBatch(intRows(9223372036854775807)))
	require.NoError(t, b.UpdateBatch(intRows(1)))
	require.NoError(t, a.MergeBatch(b.State()))
	_, ok := a.Evaluate()
	assert.False(t, ok)
}

func TestSumOfDecimalAndIntegerPromotesExactly(t *testing.T) {
	s := NewSum()
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.NumericValue{Kind: rdffusion.NumericDecimal, DecimalText: "1.5"}),
		encoding.Ok[encoding.Value](encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: 2}),
	}
	require.NoError(t, s.UpdateBatch(rows))
	v, ok := s.Evaluate()
	require.True(t, ok)
	nv := v.(encoding.NumericValue)
	assert.Equal(t, rdffusion.NumericDecimal, nv.Kind)
	f, err := strconv.ParseFloat(nv.DecimalText, 64)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, f, 0.0001)
}

func TestAvgComputesMean(t *testing.T) {
	a := NewAvg()
	require.NoError(t, a.UpdateBatch(intRows(2, 4)))
	v, ok := a.Evaluate()
	require.True(t, ok)
	nv := v.(encoding.NumericValue)
	f, err := strconv.ParseFloat(nv.DecimalText, 64)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, f, 0.0001)
}

func TestMinMaxUsesPartialOrder(t *testing.T) {
	m := NewMin()
	require.NoError(t, m.UpdateBatch(intRows(5, 1, 3)))
	v, ok := m.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(1), v.(encoding.NumericValue).IntVal)

	mx := NewMax()
	require.NoError(t, mx.UpdateBatch(intRows(5, 1, 3)))
	v, ok = mx.Evaluate()
	require.True(t, ok)
	assert.Equal(t, int64(5), v.(encoding.NumericValue).IntVal)
}

func TestMinMaxPoisonsOnIncomparable(t *testing.T) {
	m := NewMin()
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: 1}),
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "x"}),
	}
	require.NoError(t, m.UpdateBatch(rows))
	_, ok := m.Evaluate()
	assert.False(t, ok)
}

func TestGroupConcatJoinsWithSeparator(t *testing.T) {
	g := NewGroupConcat(",")
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "a"}),
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "b"}),
	}
	require.NoError(t, g.UpdateBatch(rows))
	v, ok := g.Evaluate()
	require.True(t, ok)
	assert.Equal(t, "a,b", v.(encoding.StringValue).Value)
}

func TestGroupConcatPreservesCommonLanguage(t *testing.T) {
	g := NewGroupConcat(" ")
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "a", Language: "en", HasLanguage: true}),
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "b", Language: "en", HasLanguage: true}),
	}
	require.NoError(t, g.UpdateBatch(rows))
	v, ok := g.Evaluate()
	require.True(t, ok)
	sv := v.(encoding.StringValue)
	assert.True(t, sv.HasLanguage)
	assert.Equal(t, "en", sv.Language)
}

func TestGroupConcatDropsLanguageOnMismatch(t *testing.T) {
	g := NewGroupConcat(" ")
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "a", Language: "en", HasLanguage: true}),
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "b", Language: "fr", HasLanguage: true}),
	}
	require.NoError(t, g.UpdateBatch(rows))
	v, ok := g.Evaluate()
	require.True(t, ok)
	assert.False(t, v.(encoding.StringValue).HasLanguage)
}

func TestGroupConcatPoisonsOnNonString(t *testing.T) {
	g := NewGroupConcat(" ")
	rows := []encoding.ThinResult[encoding.Value]{
		encoding.Ok[encoding.Value](encoding.StringValue{Value: "a"}),
		encoding.Ok[encoding.Value](encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: 1}),
	}
	require.NoError(t, g.UpdateBatch(rows))
	_, ok := g.Evaluate()
	assert.False(t, ok)
}

func TestGroupConcatMergeBatchPreservesAllElements(t *testing.T) {
	a, b := NewGroupConcat(","), NewGroupConcat(",")
	require.NoError(t, a.UpdateBatch([]encoding.ThinResult[encoding.Value]{encoding.Ok[encoding.Value](encoding.StringValue{Value: "a"})}))
	require.NoError(t, b.UpdateBatch([]encoding.ThinResult[encoding.Value]{encoding.Ok[encoding.Value](encoding.StringValue{Value: "b"})}))
	require.NoError(t, a.MergeBatch(b.State()))
	v, ok := a.Evaluate()
	require.True(t, ok)
	assert.Equal(t, "a,b", v.(encoding.StringValue).Value)
}
