package lowering_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/logical"
	"github.com/rdf-fusion/rdffusion-go/logical/lowering"
)

func scanXYZ() logical.QuadPattern {
	return logical.QuadPattern{
		Pattern: algebra.TriplePattern{
			Subject:   algebra.VarOf("s"),
			Predicate: algebra.VarOf("p"),
			Object:    algebra.VarOf("o"),
		},
	}
}

func TestExtendLoweringRuleAppendsProjection(t *testing.T) {
	e := logical.Extend{Inner: scanXYZ(), Variable: "x", Expr: algebra.VarExpr{Name: "o"}}
	lowered, err := lowering.ExtendLoweringRule(e)
	require.NoError(t, err)
	proj, ok := lowered.(logical.RelProjection)
	require.True(t, ok)
	assert.Contains(t, proj.Schema(), "x")
	assert.Contains(t, proj.Schema(), "s")
}

func TestMinusLoweringRuleDropsOnEmptyOverlap(t *testing.T) {
	left := scanXYZ()
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("a"), Predicate: algebra.VarOf("b"), Object: algebra.VarOf("c"),
	}}
	lowered, err := lowering.MinusLoweringRule(logical.Minus{Left: left, Right: right})
	require.NoError(t, err)
	assert.Equal(t, left, lowered)
}

func TestMinusLoweringRuleBuildsLeftAntiJoinOnOverlap(t *testing.T) {
	left := scanXYZ()
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("s"), Predicate: algebra.VarOf("q"), Object: algebra.VarOf("r"),
	}}
	lowered, err := lowering.MinusLoweringRule(logical.Minus{Left: left, Right: right})
	require.NoError(t, err)
	join, ok := lowered.(logical.RelJoin)
	require.True(t, ok)
	assert.Equal(t, logical.RelLeftAnti, join.Kind)
	assert.Equal(t, []string{"s"}, join.Keys)
	assert.Equal(t, left.Schema(), join.Schema())
}

func TestSparqlJoinLoweringRuleInner(t *testing.T) {
	left := scanXYZ()
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("s"), Predicate: algebra.VarOf("q"), Object: algebra.VarOf("r"),
	}}
	lowered, err := lowering.SparqlJoinLoweringRule(logical.SparqlJoin{Left: left, Right: right, Type: logical.InnerJoin})
	require.NoError(t, err)
	join, ok := lowered.(logical.RelJoin)
	require.True(t, ok)
	assert.Equal(t, logical.RelInner, join.Kind)
	assert.Equal(t, []string{"s"}, join.Keys)
}

func TestSparqlJoinLoweringRuleLeftCarriesFilter(t *testing.T) {
	left := scanXYZ()
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("s"), Predicate: algebra.VarOf("q"), Object: algebra.VarOf("r"),
	}}
	filter := algebra.FuncCall{Name: "BOUND", Args: []algebra.Expr{algebra.VarExpr{Name: "r"}}}
	lowered, err := lowering.SparqlJoinLoweringRule(logical.SparqlJoin{Left: left, Right: right, Type: logical.LeftJoin, Filter: filter})
	require.NoError(t, err)
	join := lowered.(logical.RelJoin)
	assert.Equal(t, logical.RelLeftOuter, join.Kind)
	assert.Equal(t, filter, join.Filter)
}

func TestPropertyPathPredicateLowersToQuadPattern(t *testing.T) {
	p := logical.PropertyPath{
		Subject:  algebra.VarOf("s"),
		PathExpr: algebra.PathPredicate{IRI: "http://example.org/knows"},
		Object:   algebra.VarOf("o"),
	}
	lowered, err := lowering.PropertyPathLoweringRule(p)
	require.NoError(t, err)
	qp, ok := lowered.(logical.QuadPattern)
	require.True(t, ok)
	assert.Equal(t, "http://example.org/knows", qp.Pattern.Predicate.Term.(rdffusion.NamedNode).IRI)
}

func TestPropertyPathSequenceLowersToJoin(t *testing.T) {
	p := logical.PropertyPath{
		Subject: algebra.VarOf("s"),
		PathExpr: algebra.PathSequence{
			Left:  algebra.PathPredicate{IRI: "http://example.org/a"},
			Right: algebra.PathPredicate{IRI: "http://example.org/b"},
		},
		Object: algebra.VarOf("o"),
	}
	lowered, err := lowering.PropertyPathLoweringRule(p)
	require.NoError(t, err)
	_, ok := lowered.(logical.SparqlJoin)
	assert.True(t, ok)
}

func TestPropertyPathClosureStaysAsLeaf(t *testing.T) {
	p := logical.PropertyPath{
		Subject:  algebra.VarOf("s"),
		PathExpr: algebra.PathOneOrMore{Inner: algebra.PathPredicate{IRI: "http://example.org/knows"}},
		Object:   algebra.VarOf("o"),
	}
	lowered, err := lowering.PropertyPathLoweringRule(p)
	require.NoError(t, err)
	assert.Equal(t, p, lowered)
}

func TestLowerRecursesThroughMixedTree(t *testing.T) {
	tree := logical.Extend{
		Inner: logical.Minus{
			Left:  scanXYZ(),
			Right: logical.QuadPattern{Pattern: algebra.TriplePattern{Subject: algebra.VarOf("s"), Predicate: algebra.VarOf("q"), Object: algebra.VarOf("r")}},
		},
		Variable: "computed",
		Expr:     algebra.VarExpr{Name: "o"},
	}
	lowered, err := lowering.Lower(tree)
	require.NoError(t, err)
	proj, ok := lowered.(logical.RelProjection)
	require.True(t, ok)
	_, ok = proj.Inner.(logical.RelJoin)
	assert.True(t, ok)
}

func TestPlaceEncodingsInsertsCastForTypedValueOp(t *testing.T) {
	registry := functions.NewRegistry()
	require.NoError(t, registry.Register("=", 2, "typed_value", equalsOp{}))

	plan := logical.RelFilter{
		Inner: scanXYZ(),
		Expr: algebra.FuncCall{Name: "=", Args: []algebra.Expr{
			algebra.VarExpr{Name: "o"}, algebra.LitExpr{Term: rdffusion.NamedNode{IRI: "http://example.org/x"}},
		}},
	}
	result := lowering.PlaceEncodings(plan, registry)
	cast, ok := result.(logical.RelEncodingCast)
	require.True(t, ok)
	assert.Equal(t, "o", cast.Variable)
	assert.Equal(t, encoding.EncodingTypedValue, cast.To)
}

func TestPlaceEncodingsNoOpWhenNoTypedOps(t *testing.T) {
	registry := functions.NewRegistry()
	plan := logical.RelFilter{Inner: scanXYZ(), Expr: algebra.VarExpr{Name: "o"}}
	result := lowering.PlaceEncodings(plan, registry)
	assert.Equal(t, plan, result)
}

type equalsOp struct{ functions.BaseOp }

func (equalsOp) Key() functions.DispatchKey {
	return functions.DispatchKey{Name: "=", Arity: functions.Binary, Encoding: encoding.EncodingTypedValue}
}
func (equalsOp) Evaluate(args []any) (any, error) { return encoding.BooleanValue(true), nil }
