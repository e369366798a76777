package exec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/functions/scalarops"
	"github.com/rdf-fusion/rdffusion-go/internal/exec"
	"github.com/rdf-fusion/rdffusion-go/logical"
	"github.com/rdf-fusion/rdffusion-go/logical/lowering"
	"github.com/rdf-fusion/rdffusion-go/store"
)

func nn(iri string) rdffusion.NamedNode { return rdffusion.NamedNode{IRI: iri} }

func quad(s, p, o string, g rdffusion.GraphName) rdffusion.Quad {
	return rdffusion.NewQuad(nn(s), nn(p), nn(o), g)
}

func newExecutor(t *testing.T, quads []rdffusion.Quad) (*exec.Executor, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st := store.NewStore()
	require.NoError(t, st.Insert(ctx, quads))

	reg := functions.NewRegistry()
	reg.RegisterOp(scalarops.Equals{})
	reg.RegisterOp(scalarops.SameTerm{})
	reg.RegisterOp(scalarops.IsCompatible{})
	reg.RegisterOp(scalarops.LessThan)
	reg.RegisterOp(scalarops.LessOrEqual)
	reg.RegisterOp(scalarops.GreaterThan)
	reg.RegisterOp(scalarops.GreaterOrEqual)
	reg.RegisterOp(scalarops.Bound{})
	reg.RegisterOp(scalarops.Coalesce{})

	return exec.New(st, reg), st
}

func TestExecuteQuadPatternBindsVariables(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/knows", "http://ex/bob", nil),
		quad("http://ex/alice", "http://ex/knows", "http://ex/carol", nil),
	})

	qp := logical.QuadPattern{
		ActiveGraph: rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphDefaultOnly},
		Pattern: algebra.TriplePattern{
			Subject:   algebra.VarOf("s"),
			Predicate: algebra.TermOf(nn("http://ex/knows")),
			Object:    algebra.VarOf("o"),
		},
	}

	vars, rows, err := e.Execute(context.Background(), qp)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s", "o"}, vars)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, nn("http://ex/alice"), r["s"])
	}
}

func TestExecuteQuadPatternWithGraphColumn(t *testing.T) {
	g := nn("http://ex/g1")
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/s", "http://ex/p", "http://ex/o", g),
	})

	qp := logical.QuadPattern{
		ActiveGraph: rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphAllNamed},
		GraphVar:    "g",
		Pattern: algebra.TriplePattern{
			Subject:   algebra.VarOf("s"),
			Predicate: algebra.VarOf("p"),
			Object:    algebra.VarOf("o"),
		},
	}

	_, rows, err := e.Execute(context.Background(), qp)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, g, rows[0]["g"])
}

func TestExecuteInnerJoinMatchesOnSharedVariable(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/knows", "http://ex/bob", nil),
		quad("http://ex/bob", "http://ex/age", "http://ex/30", nil),
		quad("http://ex/carol", "http://ex/age", "http://ex/99", nil),
	})

	left := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("a"), Predicate: algebra.TermOf(nn("http://ex/knows")), Object: algebra.VarOf("b"),
	}}
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("b"), Predicate: algebra.TermOf(nn("http://ex/age")), Object: algebra.VarOf("age"),
	}}

	join := logical.RelJoin{Left: left, Right: right, Keys: []string{"b"}, Kind: logical.RelInner}

	_, rows, err := e.Execute(context.Background(), join)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, nn("http://ex/30"), rows[0]["age"])
}

func TestExecuteLeftOuterJoinKeepsUnmatchedLeftRows(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/type", "http://ex/person", nil),
		quad("http://ex/bob", "http://ex/type", "http://ex/person", nil),
		quad("http://ex/alice", "http://ex/age", "http://ex/30", nil),
	})

	left := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/type")), Object: algebra.TermOf(nn("http://ex/person")),
	}}
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/age")), Object: algebra.VarOf("age"),
	}}

	join := logical.RelJoin{Left: left, Right: right, Keys: []string{"p"}, Kind: logical.RelLeftOuter}

	_, rows, err := e.Execute(context.Background(), join)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var sawBobUnbound bool
	for _, r := range rows {
		if r["p"] == nn("http://ex/bob") {
			_, ok := r["age"]
			assert.False(t, ok)
			sawBobUnbound = true
		}
	}
	assert.True(t, sawBobUnbound)
}

func TestExecuteMinusExcludesCompatibleRows(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/type", "http://ex/person", nil),
		quad("http://ex/bob", "http://ex/type", "http://ex/person", nil),
		quad("http://ex/alice", "http://ex/banned", "http://ex/true", nil),
	})

	left := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/type")), Object: algebra.TermOf(nn("http://ex/person")),
	}}
	right := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/banned")), Object: algebra.VarOf("banned"),
	}}

	minusFilter := algebra.FuncCall{
		Name: "&&",
		Args: []algebra.Expr{
			algebra.FuncCall{Name: lowering.MarkerCompatible, Args: []algebra.Expr{algebra.VarExpr{Name: "p"}}},
			algebra.FuncCall{Name: lowering.MarkerAnyBound, Args: []algebra.Expr{algebra.VarExpr{Name: "p"}}},
		},
	}

	minus := logical.RelJoin{Left: left, Right: right, Keys: []string{"p"}, Filter: minusFilter, Kind: logical.RelLeftAnti}

	_, rows, err := e.Execute(context.Background(), minus)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, nn("http://ex/bob"), rows[0]["p"])
}

func TestExecuteAggregateCountStarOverEmptyStoreYieldsZero(t *testing.T) {
	e, _ := newExecutor(t, nil)

	base := logical.RelValues{Variables: nil, Rows: nil}
	agg := logical.RelAggregate{
		Inner:      base,
		Aggregates: []algebra.AggregateExpr{{Name: "COUNT", Variable: "cnt"}},
	}

	_, rows, err := e.Execute(context.Background(), agg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rdffusion.Literal{Lexical: "0", Datatype: rdffusion.XSDInteger}, rows[0]["cnt"])
}

func TestExecuteAggregateGroupsByKey(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/dept", "http://ex/eng", nil),
		quad("http://ex/bob", "http://ex/dept", "http://ex/eng", nil),
		quad("http://ex/carol", "http://ex/dept", "http://ex/sales", nil),
	})

	inner := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/dept")), Object: algebra.VarOf("dept"),
	}}

	agg := logical.RelAggregate{
		Inner:      inner,
		Keys:       []algebra.Expr{algebra.VarExpr{Name: "dept"}},
		KeyVars:    []string{"dept"},
		Aggregates: []algebra.AggregateExpr{{Name: "COUNT", Variable: "cnt"}},
	}

	_, rows, err := e.Execute(context.Background(), agg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byDept := map[string]rdffusion.Term{}
	for _, r := range rows {
		byDept[r["dept"].String()] = r["cnt"]
	}
	assert.Equal(t, rdffusion.Literal{Lexical: "2", Datatype: rdffusion.XSDInteger}, byDept[nn("http://ex/eng").String()])
	assert.Equal(t, rdffusion.Literal{Lexical: "1", Datatype: rdffusion.XSDInteger}, byDept[nn("http://ex/sales").String()])
}

func TestExecutePropertyPathForwardPredicate(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/knows", "http://ex/bob", nil),
		quad("http://ex/bob", "http://ex/knows", "http://ex/carol", nil),
	})

	path := logical.PropertyPath{
		Subject:  algebra.TermOf(nn("http://ex/alice")),
		PathExpr: algebra.PathOneOrMore{Inner: algebra.PathPredicate{IRI: "http://ex/knows"}},
		Object:   algebra.VarOf("reached"),
	}

	_, rows, err := e.Execute(context.Background(), path)
	require.NoError(t, err)
	var reached []string
	for _, r := range rows {
		reached = append(reached, r["reached"].String())
	}
	assert.ElementsMatch(t, []string{nn("http://ex/bob").String(), nn("http://ex/carol").String()}, reached)
}

func TestExecutePropertyPathInverseOfSequence(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/parentOf", "http://ex/bob", nil),
		quad("http://ex/bob", "http://ex/parentOf", "http://ex/carol", nil),
	})

	// ^(parentOf/parentOf) from carol should reach alice (grandparent, inverted).
	seq := algebra.PathSequence{
		Left:  algebra.PathPredicate{IRI: "http://ex/parentOf"},
		Right: algebra.PathPredicate{IRI: "http://ex/parentOf"},
	}
	path := logical.PropertyPath{
		Subject:  algebra.TermOf(nn("http://ex/carol")),
		PathExpr: algebra.PathInverse{Inner: seq},
		Object:   algebra.VarOf("ancestor"),
	}

	_, rows, err := e.Execute(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, nn("http://ex/alice"), rows[0]["ancestor"])
}

func TestExecuteDistinctDeduplicatesRows(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/alice", "http://ex/dept", "http://ex/eng", nil),
		quad("http://ex/bob", "http://ex/dept", "http://ex/eng", nil),
	})

	inner := logical.RelProjection{
		Inner: logical.QuadPattern{Pattern: algebra.TriplePattern{
			Subject: algebra.VarOf("p"), Predicate: algebra.TermOf(nn("http://ex/dept")), Object: algebra.VarOf("dept"),
		}},
		Variables: []string{"dept"},
	}

	d := logical.RelDistinct{Inner: inner}
	_, rows, err := e.Execute(context.Background(), d)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExecuteLimitRespectsOffsetAndLimit(t *testing.T) {
	e, _ := newExecutor(t, []rdffusion.Quad{
		quad("http://ex/a", "http://ex/p", "http://ex/1", nil),
		quad("http://ex/a", "http://ex/p", "http://ex/2", nil),
		quad("http://ex/a", "http://ex/p", "http://ex/3", nil),
	})

	inner := logical.QuadPattern{Pattern: algebra.TriplePattern{
		Subject: algebra.TermOf(nn("http://ex/a")), Predicate: algebra.TermOf(nn("http://ex/p")), Object: algebra.VarOf("o"),
	}}
	lim := logical.RelLimit{Inner: inner, Offset: 1, Limit: 1, HasLimit: true}

	_, rows, err := e.Execute(context.Background(), lim)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExecuteUnknownNodeIsInternalError(t *testing.T) {
	e, _ := newExecutor(t, nil)
	_, _, err := e.Execute(context.Background(), unsupportedNode{})
	require.Error(t, err)
	assert.True(t, rdffusion.IsInternalError(err))
}

type unsupportedNode struct{}

func (unsupportedNode) Schema() []string { return nil }
