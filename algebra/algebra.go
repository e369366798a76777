// Package algebra defines the SPARQL algebra tree the engine consumes
// as parser input (spec.md §6): BGP, Join, LeftJoin, Union, Minus,
// Filter, Extend, Project, Distinct/Reduced, OrderBy, Slice, Group,
// Values, Service, Path, Graph, plus the expression AST built-ins are
// evaluated over. The SPARQL parser itself is an external collaborator
// (Non-goal); this package is only the tree shape it must produce.
package algebra

import "github.com/rdf-fusion/rdffusion-go"

// VarOrTerm is a triple-pattern position: either a variable (Var set,
// non-empty) or a constant RDF term.
type VarOrTerm struct {
	Var  string
	Term rdffusion.Term
}

func (v VarOrTerm) IsVar() bool { return v.Var != "" }

func TermOf(t rdffusion.Term) VarOrTerm { return VarOrTerm{Term: t} }
func VarOf(name string) VarOrTerm       { return VarOrTerm{Var: name} }

// Expr is a scalar expression: a variable reference, a literal term, or
// a built-in function call (see §4.2's op list).
type Expr interface{ isExpr() }

type VarExpr struct{ Name string }

func (VarExpr) isExpr() {}

type LitExpr struct{ Term rdffusion.Term }

func (LitExpr) isExpr() {}

// FuncCall invokes a named built-in; Name matches a functions.Registry
// entry (e.g. "=", "REGEX", "BOUND", "+").
type FuncCall struct {
	Name string
	Args []Expr
}

func (FuncCall) isExpr() {}

// Node is one algebra tree node.
type Node interface{ isNode() }

// TriplePattern is one (subject, predicate, object) slot of a BGP.
type TriplePattern struct {
	Subject   VarOrTerm
	Predicate VarOrTerm
	Object    VarOrTerm
}

// BGP is a basic graph pattern: a conjunction of triple patterns
// evaluated against the active graph.
type BGP struct {
	Patterns []TriplePattern
}

func (BGP) isNode() {}

type Join struct{ Left, Right Node }

func (Join) isNode() {}

// LeftJoin is SPARQL OPTIONAL: an optional join with an optional filter
// restricting which right-hand rows may combine.
type LeftJoin struct {
	Left, Right Node
	Filter      Expr
}

func (LeftJoin) isNode() {}

type Union struct{ Left, Right Node }

func (Union) isNode() {}

// Minus is SPARQL MINUS: exclude Left rows compatible with any Right row.
type Minus struct{ Left, Right Node }

func (Minus) isNode() {}

type Filter struct {
	Inner Node
	Expr  Expr
}

func (Filter) isNode() {}

// Extend appends a computed column; Variable must not already be bound
// by Inner.
type Extend struct {
	Inner    Node
	Variable string
	Expr     Expr
}

func (Extend) isNode() {}

type Project struct {
	Inner     Node
	Variables []string
}

func (Project) isNode() {}

type Distinct struct{ Inner Node }

func (Distinct) isNode() {}

type Reduced struct{ Inner Node }

func (Reduced) isNode() {}

type OrderCondition struct {
	Expr       Expr
	Descending bool
}

type OrderBy struct {
	Inner      Node
	Conditions []OrderCondition
}

func (OrderBy) isNode() {}

// Slice is OFFSET/LIMIT; HasLimit false means unbounded.
type Slice struct {
	Inner    Node
	Offset   int
	Limit    int
	HasLimit bool
}

func (Slice) isNode() {}

// AggregateExpr is one SELECT-list aggregate: e.g. SUM(?x) AS ?total.
type AggregateExpr struct {
	Name      string
	Arg       Expr
	Distinct  bool
	Variable  string
	Separator string // GROUP_CONCAT only
}

type Group struct {
	Inner      Node
	Keys       []Expr
	Aggregates []AggregateExpr
}

func (Group) isNode() {}

// Values is an inline VALUES clause; a nil Term at a row/column position
// is UNDEF.
type Values struct {
	Variables []string
	Rows      [][]rdffusion.Term
}

func (Values) isNode() {}

// Service is SPARQL federation (SERVICE <endpoint> { ... }); executing
// it is a Non-goal collaborator, but the tree shape must still exist so
// query trees containing it can be planned around / rejected cleanly.
type Service struct {
	Endpoint string
	Inner    Node
	Silent   bool
}

func (Service) isNode() {}

// PathExpr is a SPARQL 1.1 property path expression.
type PathExpr interface{ isPathExpr() }

type PathPredicate struct{ IRI string }

func (PathPredicate) isPathExpr() {}

type PathInverse struct{ Inner PathExpr }

func (PathInverse) isPathExpr() {}

type PathSequence struct{ Left, Right PathExpr }

func (PathSequence) isPathExpr() {}

type PathAlternative struct{ Left, Right PathExpr }

func (PathAlternative) isPathExpr() {}

type PathZeroOrMore struct{ Inner PathExpr }

func (PathZeroOrMore) isPathExpr() {}

type PathOneOrMore struct{ Inner PathExpr }

func (PathOneOrMore) isPathExpr() {}

type PathZeroOrOne struct{ Inner PathExpr }

func (PathZeroOrOne) isPathExpr() {}

// PathNegatedPropertySet matches any predicate IRI not in IRIs.
type PathNegatedPropertySet struct{ IRIs []string }

func (PathNegatedPropertySet) isPathExpr() {}

type Path struct {
	Subject  VarOrTerm
	Path     PathExpr
	Object   VarOrTerm
	GraphVar string // "" means default graph
}

func (Path) isNode() {}

// Graph is GRAPH <term-or-var> { Inner }.
type Graph struct {
	GraphTerm VarOrTerm
	Inner     Node
}

func (Graph) isNode() {}
