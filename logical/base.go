package logical

import (
	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/encoding"
)

// The Rel* node kinds below are the pure-relational operator set the
// lowering rules rewrite custom nodes into. They deliberately stop
// short of a full generic optimizer/executor (that engine is an
// external, Non-goal collaborator per spec.md §6); internal/exec
// implements just enough of them to drive this repository's own tests.

// RelJoinKind distinguishes the physical join behavior SparqlJoin and
// Minus lower into.
type RelJoinKind int

const (
	RelInner RelJoinKind = iota
	RelLeftOuter
	RelLeftAnti
)

// RelJoin is a relational join keyed on Keys (equi-join via
// is_compatible rather than raw equality — null-on-either-side counts
// as a match), with an optional residual Filter.
type RelJoin struct {
	Left, Right Node
	Keys        []string
	Filter      algebra.Expr
	Kind        RelJoinKind
}

func (j RelJoin) Schema() []string {
	if j.Kind == RelLeftAnti {
		return j.Left.Schema()
	}
	return unionSchema(j.Left.Schema(), j.Right.Schema())
}

// RelProjection both reorders/selects Inner's columns (Variables) and
// may append computed columns (Computed), used by ExtendLoweringRule and
// by property-path lowering.
type RelProjection struct {
	Inner     Node
	Variables []string
	Computed  map[string]algebra.Expr // extra output columns, evaluated from Inner's schema
}

func (p RelProjection) Schema() []string {
	out := append([]string{}, p.Variables...)
	for name := range p.Computed {
		out = append(out, name)
	}
	return out
}

type RelFilter struct {
	Inner Node
	Expr  algebra.Expr
}

func (f RelFilter) Schema() []string { return f.Inner.Schema() }

type RelUnion struct {
	Left, Right Node
}

func (u RelUnion) Schema() []string { return unionSchema(u.Left.Schema(), u.Right.Schema()) }

type RelDistinct struct{ Inner Node }

func (d RelDistinct) Schema() []string { return d.Inner.Schema() }

type RelOrderBy struct {
	Inner      Node
	Conditions []algebra.OrderCondition
}

func (o RelOrderBy) Schema() []string { return o.Inner.Schema() }

type RelLimit struct {
	Inner    Node
	Offset   int
	Limit    int
	HasLimit bool
}

func (l RelLimit) Schema() []string { return l.Inner.Schema() }

type RelAggregate struct {
	Inner      Node
	Keys       []algebra.Expr
	KeyVars    []string // output names for Keys, positionally
	Aggregates []algebra.AggregateExpr
}

func (a RelAggregate) Schema() []string {
	out := append([]string{}, a.KeyVars...)
	for _, agg := range a.Aggregates {
		out = append(out, agg.Variable)
	}
	return out
}

type RelValues struct {
	Variables []string
	Rows      [][]rdffusion.Term
}

func (v RelValues) Schema() []string { return v.Variables }

// RelEncodingCast marks one column as requiring a transcoder UDF before
// the consuming expression can run, inserted by the encoding-placement
// pass. That pass stacks these nodes above the plan's root, at most one
// per Variable, and adds no projection carrying a separate converted
// column alongside the PlainTerm one.
type RelEncodingCast struct {
	Inner    Node
	Variable string
	From, To encoding.Encoding
}

func (c RelEncodingCast) Schema() []string { return c.Inner.Schema() }
