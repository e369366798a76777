package logical

import (
	"fmt"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
)

// graphContext carries the active graph / graph variable binding down
// into BGP and Path translation, set by an enclosing algebra.Graph node.
type graphContext struct {
	activeGraph rdffusion.ActiveGraph
	graphVar    string
}

// FromAlgebra translates a parser-produced algebra tree into the custom
// logical plan (QuadPattern/PropertyPath/SparqlJoin/Minus/Extend) plus
// base relational nodes, under the query's default active graph.
func FromAlgebra(n algebra.Node, defaultGraph rdffusion.ActiveGraph) (Node, error) {
	return translate(n, graphContext{activeGraph: defaultGraph})
}

func translate(n algebra.Node, ctx graphContext) (Node, error) {
	switch v := n.(type) {
	case algebra.BGP:
		return translateBGP(v, ctx)
	case algebra.Join:
		left, err := translate(v.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := translate(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return SparqlJoin{Left: left, Right: right, Type: InnerJoin}, nil
	case algebra.LeftJoin:
		left, err := translate(v.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := translate(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return SparqlJoin{Left: left, Right: right, Filter: v.Filter, Type: LeftJoin}, nil
	case algebra.Union:
		left, err := translate(v.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := translate(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return RelUnion{Left: left, Right: right}, nil
	case algebra.Minus:
		left, err := translate(v.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := translate(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return Minus{Left: left, Right: right}, nil
	case algebra.Filter:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelFilter{Inner: inner, Expr: v.Expr}, nil
	case algebra.Extend:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return Extend{Inner: inner, Variable: v.Variable, Expr: v.Expr}, nil
	case algebra.Project:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelProjection{Inner: inner, Variables: v.Variables}, nil
	case algebra.Distinct:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelDistinct{Inner: inner}, nil
	case algebra.Reduced:
		// REDUCED permits but does not require duplicate elimination;
		// treated as a no-op pass-through (DESIGN.md).
		return translate(v.Inner, ctx)
	case algebra.OrderBy:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelOrderBy{Inner: inner, Conditions: v.Conditions}, nil
	case algebra.Slice:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelLimit{Inner: inner, Offset: v.Offset, Limit: v.Limit, HasLimit: v.HasLimit}, nil
	case algebra.Group:
		inner, err := translate(v.Inner, ctx)
		if err != nil {
			return nil, err
		}
		return RelAggregate{Inner: inner, Keys: v.Keys, KeyVars: groupKeyVars(v.Keys), Aggregates: v.Aggregates}, nil
	case algebra.Values:
		return RelValues{Variables: v.Variables, Rows: v.Rows}, nil
	case algebra.Path:
		graphVar := ctx.graphVar
		return PropertyPath{
			ActiveGraph: ctx.activeGraph,
			GraphVar:    graphVar,
			Subject:     v.Subject,
			PathExpr:    v.Path,
			Object:      v.Object,
		}, nil
	case algebra.Graph:
		return translateGraph(v, ctx)
	case algebra.Service:
		return nil, fmt.Errorf("logical: SERVICE is a non-goal, cannot translate endpoint %q", v.Endpoint)
	default:
		return nil, fmt.Errorf("logical: unknown algebra node %T", n)
	}
}

func translateBGP(bgp algebra.BGP, ctx graphContext) (Node, error) {
	if len(bgp.Patterns) == 0 {
		return RelValues{Variables: nil, Rows: [][]rdffusion.Term{{}}}, nil
	}
	var plan Node = QuadPattern{
		ActiveGraph: ctx.activeGraph,
		GraphVar:    ctx.graphVar,
		Pattern:     bgp.Patterns[0],
	}
	for _, p := range bgp.Patterns[1:] {
		plan = SparqlJoin{
			Left:  plan,
			Right: QuadPattern{ActiveGraph: ctx.activeGraph, GraphVar: ctx.graphVar, Pattern: p},
			Type:  InnerJoin,
		}
	}
	return plan, nil
}

func translateGraph(g algebra.Graph, ctx graphContext) (Node, error) {
	inner := ctx
	if g.GraphTerm.IsVar() {
		inner.graphVar = g.GraphTerm.Var
		inner.activeGraph = rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphAllNamed}
	} else if nn, ok := g.GraphTerm.Term.(rdffusion.NamedNode); ok {
		inner.activeGraph = rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphNamedSet, Graphs: []rdffusion.NamedNode{nn}}
		inner.graphVar = ""
	}
	return translate(g.Inner, inner)
}

func groupKeyVars(keys []algebra.Expr) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if v, ok := k.(algebra.VarExpr); ok {
			out[i] = v.Name
		} else {
			out[i] = fmt.Sprintf("?_group_key_%d", i)
		}
	}
	return out
}
