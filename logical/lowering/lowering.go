// Package lowering rewrites the custom SPARQL-aware logical nodes
// (package logical's QuadPattern/PropertyPath/SparqlJoin/Minus/Extend)
// into the base Rel* relational node set, plus the encoding-placement
// pass that inserts RelEncodingCast nodes. Rule shape and the
// None/Default/Full staging is grounded on the teacher's
// internal/queryoptimizer/optimizer.go and normalizer.go rule-list
// idiom (a worklist of independent, order-sensitive rewrite passes
// applied over an immutable tree).
package lowering

import (
	"strconv"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/logical"
)

// MarkerCompatible and MarkerAnyBound name the synthetic FuncCalls
// MinusLoweringRule emits in a RelJoin's residual Filter. The relational
// executor must special-case them: unlike ordinary scalar ops they need
// both sides' pre-join value for an overlap variable, which a collapsed
// equi-join schema no longer carries separately.
const (
	MarkerCompatible = "__minus_compatible"
	MarkerAnyBound   = "__minus_any_bound"
	MarkerIdentityOf = "__identity_of"
)

// Lower rewrites n into the base relational node set. Custom nodes
// (QuadPattern, PropertyPath's closure-free forms, SparqlJoin, Minus,
// Extend) are always lowered; Lower takes no OptimizationLevel and
// performs the same lowering for every level (see Plan).
func Lower(n logical.Node) (logical.Node, error) {
	return lower(n)
}

func lower(n logical.Node) (logical.Node, error) {
	switch v := n.(type) {
	case logical.QuadPattern:
		return v, nil // physical leaf, recognized directly by the storage provider
	case logical.PropertyPath:
		return PropertyPathLoweringRule(v)
	case logical.SparqlJoin:
		return SparqlJoinLoweringRule(v)
	case logical.Minus:
		return MinusLoweringRule(v)
	case logical.Extend:
		return ExtendLoweringRule(v)
	case logical.Pattern:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelJoin:
		left, err := lower(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := lower(v.Right)
		if err != nil {
			return nil, err
		}
		v.Left, v.Right = left, right
		return v, nil
	case logical.RelProjection:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelFilter:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelUnion:
		left, err := lower(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := lower(v.Right)
		if err != nil {
			return nil, err
		}
		v.Left, v.Right = left, right
		return v, nil
	case logical.RelDistinct:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelOrderBy:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelLimit:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelAggregate:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	case logical.RelValues:
		return v, nil
	case logical.RelEncodingCast:
		inner, err := lower(v.Inner)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		return v, nil
	default:
		return n, nil
	}
}

// ExtendLoweringRule maps Extend to a projection appending the computed
// expression, per spec.md §4.3.
func ExtendLoweringRule(e logical.Extend) (logical.Node, error) {
	inner, err := lower(e.Inner)
	if err != nil {
		return nil, err
	}
	return logical.RelProjection{
		Inner:     inner,
		Variables: inner.Schema(),
		Computed:  map[string]algebra.Expr{e.Variable: e.Expr},
	}, nil
}

// MinusLoweringRule implements spec.md §4.3's MINUS lowering: if the
// left/right schemas share no variable, MINUS cannot exclude anything
// (no row can ever be "compatible"), so it drops to the left input
// unchanged. Otherwise it becomes a left-anti join on the overlap
// variables, with a residual filter requiring compatibility on every
// overlap variable AND at least one overlap variable bound on both
// sides (an all-unbound overlap never counts as a match, per the
// SPARQL MINUS definition).
func MinusLoweringRule(m logical.Minus) (logical.Node, error) {
	left, err := lower(m.Left)
	if err != nil {
		return nil, err
	}
	right, err := lower(m.Right)
	if err != nil {
		return nil, err
	}
	overlap := logical.OverlapVars(left.Schema(), right.Schema())
	if len(overlap) == 0 {
		return left, nil
	}
	return logical.RelJoin{
		Left:   left,
		Right:  right,
		Keys:   overlap,
		Filter: minusFilter(overlap),
		Kind:   logical.RelLeftAnti,
	}, nil
}

func minusFilter(overlap []string) algebra.Expr {
	var conj algebra.Expr
	for _, k := range overlap {
		clause := algebra.FuncCall{Name: MarkerCompatible, Args: []algebra.Expr{algebra.VarExpr{Name: k}}}
		if conj == nil {
			conj = clause
		} else {
			conj = algebra.FuncCall{Name: "&&", Args: []algebra.Expr{conj, clause}}
		}
	}
	anyBoundArgs := make([]algebra.Expr, len(overlap))
	for i, k := range overlap {
		anyBoundArgs[i] = algebra.VarExpr{Name: k}
	}
	anyBound := algebra.FuncCall{Name: MarkerAnyBound, Args: anyBoundArgs}
	return algebra.FuncCall{Name: "&&", Args: []algebra.Expr{conj, anyBound}}
}

// SparqlJoinLoweringRule lowers a SPARQL-semantic join to a relational
// RelJoin keyed on the overlap variables. An InnerJoin with empty
// overlap becomes a Cartesian RelJoin (Keys=nil); a LeftJoin carries its
// OPTIONAL filter through unchanged as the join's residual Filter.
func SparqlJoinLoweringRule(j logical.SparqlJoin) (logical.Node, error) {
	left, err := lower(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := lower(j.Right)
	if err != nil {
		return nil, err
	}
	overlap := logical.OverlapVars(left.Schema(), right.Schema())
	kind := logical.RelInner
	if j.Type == logical.LeftJoin {
		kind = logical.RelLeftOuter
	}
	return logical.RelJoin{
		Left:   left,
		Right:  right,
		Keys:   overlap,
		Filter: j.Filter,
		Kind:   kind,
	}, nil
}

// PropertyPathLoweringRule statically lowers closure-free path forms
// (predicate, inverse, sequence, alternative, zero-or-one, negated
// property set) into joins/unions of QuadPatterns. Paths containing
// ZeroOrMore/OneOrMore require a data-dependent fixed-point over
// frontier sets (spec.md §4.3) that cannot be unrolled at plan time;
// those are left as PropertyPath leaves, which the relational executor
// recognizes and evaluates with an iterative frontier-expansion loop
// directly (mirroring how QuadPattern is a recognized physical leaf).
func PropertyPathLoweringRule(p logical.PropertyPath) (logical.Node, error) {
	if containsClosure(p.PathExpr) {
		return p, nil
	}
	return lowerPath(p.ActiveGraph, p.GraphVar, p.Subject, p.PathExpr, p.Object)
}

func containsClosure(e algebra.PathExpr) bool {
	switch v := e.(type) {
	case algebra.PathZeroOrMore, algebra.PathOneOrMore:
		return true
	case algebra.PathInverse:
		return containsClosure(v.Inner)
	case algebra.PathSequence:
		return containsClosure(v.Left) || containsClosure(v.Right)
	case algebra.PathAlternative:
		return containsClosure(v.Left) || containsClosure(v.Right)
	case algebra.PathZeroOrOne:
		return containsClosure(v.Inner)
	default:
		return false
	}
}

var freshCounter int

func freshVar() string {
	freshCounter++
	return "__path_mid" + strconv.Itoa(freshCounter)
}

func lowerPath(ag rdffusion.ActiveGraph, graphVar string, subject algebra.VarOrTerm, path algebra.PathExpr, object algebra.VarOrTerm) (logical.Node, error) {
	switch v := path.(type) {
	case algebra.PathPredicate:
		return logical.QuadPattern{
			ActiveGraph: ag,
			GraphVar:    graphVar,
			Pattern: algebra.TriplePattern{
				Subject:   subject,
				Predicate: algebra.VarOrTerm{Term: rdffusion.NamedNode{IRI: v.IRI}},
				Object:    object,
			},
		}, nil
	case algebra.PathInverse:
		return lowerPath(ag, graphVar, object, v.Inner, subject)
	case algebra.PathSequence:
		mid := algebra.VarOf(freshVar())
		left, err := lowerPath(ag, graphVar, subject, v.Left, mid)
		if err != nil {
			return nil, err
		}
		right, err := lowerPath(ag, graphVar, mid, v.Right, object)
		if err != nil {
			return nil, err
		}
		return logical.SparqlJoin{Left: left, Right: right, Type: logical.InnerJoin}, nil
	case algebra.PathAlternative:
		left, err := lowerPath(ag, graphVar, subject, v.Left, object)
		if err != nil {
			return nil, err
		}
		right, err := lowerPath(ag, graphVar, subject, v.Right, object)
		if err != nil {
			return nil, err
		}
		return logical.RelUnion{Left: left, Right: right}, nil
	case algebra.PathZeroOrOne:
		alt, err := lowerPath(ag, graphVar, subject, v.Inner, object)
		if err != nil {
			return nil, err
		}
		ident, err := identityNode(subject, object)
		if err != nil {
			return nil, err
		}
		return logical.RelUnion{Left: alt, Right: ident}, nil
	case algebra.PathNegatedPropertySet:
		return negatedPropertySetNode(ag, graphVar, subject, v.IRIs, object), nil
	default:
		return nil, rdffusion.NewInternalError("UNSUPPORTED_PATH", "property path form requires fixed-point evaluation", nil)
	}
}

// identityNode binds subject==object without scanning the store: if
// either side is already a constant term, the other is Extend-bound to
// it (or the branch yields zero rows on a constant/constant mismatch);
// if both sides are variables, resolving the binding requires the
// executor's active-term-domain pass, marked via MarkerIdentityOf.
func identityNode(subject, object algebra.VarOrTerm) (logical.Node, error) {
	empty := logical.RelValues{Variables: nil, Rows: [][]rdffusion.Term{{}}}
	switch {
	case !subject.IsVar() && !object.IsVar():
		if subject.Term.String() == object.Term.String() {
			return empty, nil
		}
		return logical.RelValues{Variables: nil, Rows: nil}, nil
	case !subject.IsVar() && object.IsVar():
		return logical.RelProjection{
			Inner:     empty,
			Variables: nil,
			Computed:  map[string]algebra.Expr{object.Var: algebra.LitExpr{Term: subject.Term}},
		}, nil
	case subject.IsVar() && !object.IsVar():
		return logical.RelProjection{
			Inner:     empty,
			Variables: nil,
			Computed:  map[string]algebra.Expr{subject.Var: algebra.LitExpr{Term: object.Term}},
		}, nil
	default:
		return logical.RelProjection{
			Inner:     empty,
			Variables: nil,
			Computed: map[string]algebra.Expr{
				subject.Var: algebra.FuncCall{Name: MarkerIdentityOf, Args: nil},
				object.Var:  algebra.VarExpr{Name: subject.Var},
			},
		}, nil
	}
}

// negatedPropertySetNode matches any predicate IRI not in excluded. It
// is left as a filtered QuadPattern over a wildcard predicate; the
// filter expression is evaluated by the executor against the scanned
// predicate column.
func negatedPropertySetNode(ag rdffusion.ActiveGraph, graphVar string, subject algebra.VarOrTerm, excluded []string, object algebra.VarOrTerm) logical.Node {
	predVar := freshVar() + "_pred"
	scan := logical.QuadPattern{
		ActiveGraph: ag,
		GraphVar:    graphVar,
		Pattern: algebra.TriplePattern{
			Subject:   subject,
			Predicate: algebra.VarOf(predVar),
			Object:    object,
		},
	}
	args := make([]algebra.Expr, len(excluded)+1)
	args[0] = algebra.VarExpr{Name: predVar}
	for i, iri := range excluded {
		args[i+1] = algebra.LitExpr{Term: rdffusion.NamedNode{IRI: iri}}
	}
	filter := algebra.FuncCall{Name: "NOT_IN", Args: args}
	return logical.RelProjection{
		Inner:     logical.RelFilter{Inner: scan, Expr: filter},
		Variables: filteredVars(scan.Schema(), predVar),
	}
}

func filteredVars(schema []string, drop string) []string {
	out := make([]string, 0, len(schema))
	for _, v := range schema {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}

// PlaceEncodings walks a lowered plan, collecting every variable passed
// directly to a function whose resolved DispatchKey requires a
// non-PlainTerm encoding, and wraps the plan's root in one
// RelEncodingCast per such variable (spec.md §4.3's encoding placement
// pass). A variable is cast at most once, to the encoding of the first
// consumer found; the casts are not placed next to their consumers and
// no projection carrying a separate converted column is added.
func PlaceEncodings(n logical.Node, registry *functions.Registry) logical.Node {
	casts := map[string]encoding.Encoding{}
	collectCasts(n, registry, casts)
	if len(casts) == 0 {
		return n
	}
	vars := make([]string, 0, len(casts))
	for v := range casts {
		vars = append(vars, v)
	}
	inner := n
	for _, v := range vars {
		inner = logical.RelEncodingCast{Inner: inner, Variable: v, From: encoding.EncodingPlainTerm, To: casts[v]}
	}
	return inner
}

func collectCasts(n logical.Node, registry *functions.Registry, out map[string]encoding.Encoding) {
	switch v := n.(type) {
	case logical.RelFilter:
		collectExprCasts(v.Expr, registry, out)
		collectCasts(v.Inner, registry, out)
	case logical.RelProjection:
		for _, e := range v.Computed {
			collectExprCasts(e, registry, out)
		}
		collectCasts(v.Inner, registry, out)
	case logical.RelJoin:
		if v.Filter != nil {
			collectExprCasts(v.Filter, registry, out)
		}
		collectCasts(v.Left, registry, out)
		collectCasts(v.Right, registry, out)
	case logical.RelUnion:
		collectCasts(v.Left, registry, out)
		collectCasts(v.Right, registry, out)
	case logical.RelDistinct:
		collectCasts(v.Inner, registry, out)
	case logical.RelOrderBy:
		for _, c := range v.Conditions {
			collectExprCasts(c.Expr, registry, out)
		}
		collectCasts(v.Inner, registry, out)
	case logical.RelLimit:
		collectCasts(v.Inner, registry, out)
	case logical.RelAggregate:
		for _, k := range v.Keys {
			collectExprCasts(k, registry, out)
		}
		for _, agg := range v.Aggregates {
			if agg.Arg != nil {
				collectExprCasts(agg.Arg, registry, out)
			}
		}
		collectCasts(v.Inner, registry, out)
	case logical.RelEncodingCast:
		collectCasts(v.Inner, registry, out)
	}
}

func collectExprCasts(e algebra.Expr, registry *functions.Registry, out map[string]encoding.Encoding) {
	call, ok := e.(algebra.FuncCall)
	if !ok {
		return
	}
	arity := functions.Arity(len(call.Args))
	if op, found := registry.Resolve(call.Name, arity, encoding.EncodingTypedValue); found {
		enc := op.Key().Encoding
		for _, a := range call.Args {
			if ve, ok := a.(algebra.VarExpr); ok && enc != encoding.EncodingPlainTerm {
				if _, already := out[ve.Name]; !already {
					out[ve.Name] = enc
				}
			}
		}
	}
	for _, a := range call.Args {
		collectExprCasts(a, registry, out)
	}
}
