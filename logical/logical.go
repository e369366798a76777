// Package logical implements the custom SPARQL-aware relational nodes
// (QuadPattern, PropertyPath, SparqlJoin, Minus, Extend, Pattern) plus
// their schema-derivation rules and the FromAlgebra translation from
// package algebra's parser-facing tree. Node/translation shape is
// grounded on the teacher's relation_index.go schema-derivation idiom,
// generalized from a fixed EAV column layout to SPARQL's
// first-occurrence variable schema rule.
package logical

import (
	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
)

// Node is any logical or lowered-relational plan node: it knows the
// ordered list of variables it outputs.
type Node interface {
	Schema() []string
}

// BlankNodeMode selects how a pattern's blank-node slots behave.
type BlankNodeMode int

const (
	// BlankAsVariable binds a pattern blank node like an ordinary
	// variable (used for parsed query patterns).
	BlankAsVariable BlankNodeMode = iota
	// BlankAsFilter treats the blank node as a constant filter (used
	// when a quad is constructed directly from an RDF term, e.g. in
	// CONSTRUCT template evaluation).
	BlankAsFilter
)

// QuadPattern scans quads matching a triple pattern under an active
// graph. It is also the physical leaf a StorageProvider's
// ExtensionPlanner recognizes directly — lowering never rewrites it
// further.
type QuadPattern struct {
	ActiveGraph   rdffusion.ActiveGraph
	GraphVar      string // "" means the pattern does not bind a graph variable
	Pattern       algebra.TriplePattern
	BlankNodeMode BlankNodeMode
}

// Schema is the projection of variables appearing in GraphVar and
// Pattern, in first-occurrence order, typed as PlainTerm.
func (q QuadPattern) Schema() []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(q.GraphVar)
	for _, vt := range []algebra.VarOrTerm{q.Pattern.Subject, q.Pattern.Predicate, q.Pattern.Object} {
		if vt.IsVar() {
			add(vt.Var)
		}
	}
	return out
}

// PropertyPath evaluates a SPARQL 1.1 property path. PropertyPathLoweringRule
// lowers closure-free paths into joins/unions of QuadPatterns and leaves
// paths containing ZeroOrMore/OneOrMore as PropertyPath leaves, which the
// executor evaluates by frontier expansion.
type PropertyPath struct {
	ActiveGraph rdffusion.ActiveGraph
	GraphVar    string
	Subject     algebra.VarOrTerm
	PathExpr    algebra.PathExpr
	Object      algebra.VarOrTerm
}

func (p PropertyPath) Schema() []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(p.GraphVar)
	if p.Subject.IsVar() {
		add(p.Subject.Var)
	}
	if p.Object.IsVar() {
		add(p.Object.Var)
	}
	return out
}

// JoinType distinguishes SparqlJoin's two SPARQL join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// SparqlJoin is a SPARQL-semantic join: overlapping columns participate
// in compatibility matching (is_compatible), non-overlap columns are a
// Cartesian component.
type SparqlJoin struct {
	Left, Right Node
	Filter      algebra.Expr // optional additional OPTIONAL filter
	Type        JoinType
}

// Schema is Left's schema followed by Right's variables not already
// present on the left.
func (j SparqlJoin) Schema() []string {
	return unionSchema(j.Left.Schema(), j.Right.Schema())
}

func unionSchema(left, right []string) []string {
	out := append([]string{}, left...)
	seen := map[string]bool{}
	for _, v := range left {
		seen[v] = true
	}
	for _, v := range right {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// OverlapVars returns the variables appearing in both n's left and right
// children's schemas — the SPARQL join/minus compatibility key set.
func OverlapVars(left, right []string) []string {
	rset := map[string]bool{}
	for _, v := range right {
		rset[v] = true
	}
	var out []string
	for _, v := range left {
		if rset[v] {
			out = append(out, v)
		}
	}
	return out
}

// Minus is SPARQL MINUS: its schema is always the left schema, since
// MINUS never adds columns.
type Minus struct {
	Left, Right Node
}

func (m Minus) Schema() []string { return m.Left.Schema() }

// Extend appends a computed column; Variable must not already exist in
// Inner's schema (a malformed tree otherwise — callers validate before
// constructing one).
type Extend struct {
	Inner    Node
	Variable string
	Expr     algebra.Expr
}

func (e Extend) Schema() []string {
	return append(append([]string{}, e.Inner.Schema()...), e.Variable)
}

// Pattern is an internal adapter node: it projects Inner's positional
// columns into variable-named columns, applying BlankNodeMode to each.
// No lowering rule emits it; lowering only recurses through it.
type Pattern struct {
	Inner         Node
	ColumnVars    []string // Inner's columns, renamed to these variables positionally
	BlankNodeMode BlankNodeMode
}

func (p Pattern) Schema() []string {
	out := make([]string, 0, len(p.ColumnVars))
	seen := map[string]bool{}
	for _, v := range p.ColumnVars {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
