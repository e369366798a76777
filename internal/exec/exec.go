// Package exec implements the minimal row-oriented relational executor
// that drives a lowered logical plan (package logical/lowering's output)
// to actual solution rows. The base optimizer/executor a full columnar
// engine would use is an external, Non-goal collaborator (spec.md §6);
// this executor is a scoped-down stand-in, row-at-a-time rather than
// batch-at-a-time, sufficient to drive this repository's own tests.
// Shape (a small interpreter walking the plan tree, special-casing the
// synthetic marker FuncCalls the lowering pass emits) is grounded on the
// teacher's recursive query-building walk in factory/factory.go's
// collectTablesFromPool, generalized from an information_schema walk to
// a relational-operator walk.
package exec

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/functions/aggregate"
	"github.com/rdf-fusion/rdffusion-go/functions/scalarops"
	"github.com/rdf-fusion/rdffusion-go/internal"
	"github.com/rdf-fusion/rdffusion-go/logical"
	"github.com/rdf-fusion/rdffusion-go/logical/lowering"
	"github.com/rdf-fusion/rdffusion-go/store"
)

// Row is one solution binding: a variable bound to a Term. A variable
// absent from the map is unbound, distinct from any stored nil.
type Row map[string]rdffusion.Term

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Executor evaluates a lowered logical.Node against a quad store using a
// function registry for scalar/aggregate built-ins.
type Executor struct {
	Store    *store.Store
	Registry *functions.Registry
}

// New builds an Executor over st and reg.
func New(st *store.Store, reg *functions.Registry) *Executor {
	return &Executor{Store: st, Registry: reg}
}

// Execute runs plan to completion, returning its output variables (in
// Schema order) and every solution row.
func (e *Executor) Execute(ctx context.Context, plan logical.Node) ([]string, []Row, error) {
	rows, err := e.eval(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	internal.EmitRowCount(ctx, "result", int64(len(rows)))
	return plan.Schema(), rows, nil
}

func (e *Executor) eval(ctx context.Context, n logical.Node) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		internal.EmitCancellation(ctx, "execute")
		return nil, rdffusion.NewCancellationError("query cancelled")
	}
	switch v := n.(type) {
	case logical.QuadPattern:
		return e.evalQuadPattern(ctx, v)
	case logical.PropertyPath:
		return e.evalPropertyPathNode(ctx, v)
	case logical.RelValues:
		return e.evalValues(v), nil
	case logical.RelJoin:
		return e.evalJoin(ctx, v)
	case logical.RelProjection:
		return e.evalProjection(ctx, v)
	case logical.RelFilter:
		return e.evalFilter(ctx, v)
	case logical.RelUnion:
		return e.evalUnion(ctx, v)
	case logical.RelDistinct:
		return e.evalDistinct(ctx, v)
	case logical.RelOrderBy:
		return e.evalOrderBy(ctx, v)
	case logical.RelLimit:
		return e.evalLimit(ctx, v)
	case logical.RelAggregate:
		return e.evalAggregate(ctx, v)
	case logical.RelEncodingCast:
		// Rows carry raw Terms regardless of requested encoding; every
		// expression evaluator converts to the encoding it needs on
		// demand, so the cast is a no-op at this level of the executor.
		return e.eval(ctx, v.Inner)
	case logical.Pattern:
		return e.evalPattern(ctx, v)
	default:
		return nil, rdffusion.NewInternalError("UNSUPPORTED_PLAN_NODE", fmt.Sprintf("exec: unsupported node %T", n), nil)
	}
}

func (e *Executor) evalValues(v logical.RelValues) []Row {
	rows := make([]Row, 0, len(v.Rows))
	for _, r := range v.Rows {
		row := Row{}
		for i, term := range r {
			if i >= len(v.Variables) {
				break
			}
			if term != nil {
				row[v.Variables[i]] = term
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// evalPattern is the minimal adapter for logical.Pattern: it renames
// Inner's schema positionally onto ColumnVars. Nothing in this
// repository's own lowering emits Pattern nodes today (lowerPath
// produces QuadPattern, SparqlJoin, RelUnion, RelProjection and
// RelValues nodes directly), so this exists
// only as a reserved extension point for storage providers that return
// positional columns instead of named ones.
func (e *Executor) evalPattern(ctx context.Context, p logical.Pattern) ([]Row, error) {
	inner, err := e.eval(ctx, p.Inner)
	if err != nil {
		return nil, err
	}
	innerVars := p.Inner.Schema()
	out := make([]Row, 0, len(inner))
	for _, r := range inner {
		nr := Row{}
		for i, name := range p.ColumnVars {
			if i >= len(innerVars) {
				break
			}
			if val, ok := r[innerVars[i]]; ok {
				nr[name] = val
			}
		}
		out = append(out, nr)
	}
	return out, nil
}

// --- QuadPattern ---

func (e *Executor) evalQuadPattern(ctx context.Context, qp logical.QuadPattern) ([]Row, error) {
	var planner rdffusion.ExtensionPlanner
	for _, p := range e.Store.ExtensionPlanners() {
		if p.CanPlan(qp) {
			planner = p
			break
		}
	}
	if planner == nil {
		return nil, rdffusion.NewInternalError("NO_PLANNER", "exec: no extension planner for QuadPattern", nil)
	}
	stream, err := planner.Plan(ctx, qp)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	withGraph := qp.GraphVar != ""
	var rows []Row
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch, err := decodeQuadBatch(rec, qp, withGraph)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

// decodeQuadBatch turns one PlainTerm-columned record (as produced by
// store.Store.Scan) into solution rows, binding each pattern slot that
// is a variable to its scanned column and ignoring constant slots (the
// scanned value there is already known to equal the constant).
func decodeQuadBatch(rec arrow.Record, qp logical.QuadPattern, withGraph bool) ([]Row, error) {
	col := 0
	var graphArr *encoding.PlainArray
	if withGraph {
		arr, err := encoding.NewPlainArray(rec.Column(col))
		if err != nil {
			return nil, err
		}
		graphArr = arr
		col++
	}
	subjArr, err := encoding.NewPlainArray(rec.Column(col))
	if err != nil {
		return nil, err
	}
	col++
	predArr, err := encoding.NewPlainArray(rec.Column(col))
	if err != nil {
		return nil, err
	}
	col++
	objArr, err := encoding.NewPlainArray(rec.Column(col))
	if err != nil {
		return nil, err
	}

	n := int(rec.NumRows())
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		row := Row{}
		if withGraph && qp.GraphVar != "" {
			if t, ok, _ := encoding.DecodeTerm(graphArr, i); ok {
				row[qp.GraphVar] = t
			}
		}
		bindSlot(row, qp.Pattern.Subject, subjArr, i)
		bindSlot(row, qp.Pattern.Predicate, predArr, i)
		bindSlot(row, qp.Pattern.Object, objArr, i)
		rows[i] = row
	}
	return rows, nil
}

func bindSlot(row Row, slot algebra.VarOrTerm, arr *encoding.PlainArray, i int) {
	if !slot.IsVar() {
		return
	}
	if t, ok, _ := encoding.DecodeTerm(arr, i); ok {
		row[slot.Var] = t
	}
}

// --- Property paths ---

func (e *Executor) evalPropertyPathNode(ctx context.Context, p logical.PropertyPath) ([]Row, error) {
	switch {
	case !p.Subject.IsVar():
		succs, err := e.evalPath(ctx, p.ActiveGraph, p.PathExpr, p.Subject.Term)
		if err != nil {
			return nil, err
		}
		return bindPathResults(p, succs, true), nil
	case !p.Object.IsVar():
		succs, err := e.evalPath(ctx, p.ActiveGraph, algebra.PathInverse{Inner: p.PathExpr}, p.Object.Term)
		if err != nil {
			return nil, err
		}
		return bindPathResults(invertPattern(p), succs, true), nil
	default:
		domain, err := e.activeTermDomain(ctx, p.ActiveGraph)
		if err != nil {
			return nil, err
		}
		var rows []Row
		for _, start := range domain {
			succs, err := e.evalPath(ctx, p.ActiveGraph, p.PathExpr, start)
			if err != nil {
				return nil, err
			}
			for _, s := range succs {
				row := Row{p.Subject.Var: start, p.Object.Var: s}
				rows = append(rows, row)
			}
		}
		return rows, nil
	}
}

// invertPattern swaps subject/object for binding purposes when the
// object side was the bound constant and evalPath was run in reverse.
func invertPattern(p logical.PropertyPath) logical.PropertyPath {
	p.Subject, p.Object = p.Object, p.Subject
	return p
}

func bindPathResults(p logical.PropertyPath, results []rdffusion.Term, objectIsResult bool) []Row {
	var varSlot algebra.VarOrTerm
	if objectIsResult {
		varSlot = p.Object
	} else {
		varSlot = p.Subject
	}
	if !varSlot.IsVar() {
		for _, r := range results {
			if r.String() == varSlot.Term.String() {
				return []Row{{}}
			}
		}
		return nil
	}
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row{varSlot.Var: r})
	}
	return rows
}

// evalPath returns every term directly reachable from from via path
// (one evaluation of the whole path expression, including any nested
// fixed-point closures). Inverting a compound sub-path is handled by
// invertPathExpr rather than a direct reverse scan.
func (e *Executor) evalPath(ctx context.Context, ag rdffusion.ActiveGraph, path algebra.PathExpr, from rdffusion.Term) ([]rdffusion.Term, error) {
	switch v := path.(type) {
	case algebra.PathPredicate:
		return e.hop(ctx, ag, v.IRI, from, true)
	case algebra.PathInverse:
		switch inner := v.Inner.(type) {
		case algebra.PathPredicate:
			return e.hop(ctx, ag, inner.IRI, from, false)
		case algebra.PathNegatedPropertySet:
			return e.negatedHop(ctx, ag, inner.IRIs, from, false)
		default:
			// Distribute the inversion over the compound sub-path
			// (reverse sequences, invert each alternative/closure leg)
			// rather than only supporting a direct predicate leaf.
			return e.evalPath(ctx, ag, invertPathExpr(v.Inner), from)
		}
	case algebra.PathSequence:
		mids, err := e.evalPath(ctx, ag, v.Left, from)
		if err != nil {
			return nil, err
		}
		var out []rdffusion.Term
		seen := map[string]bool{}
		for _, mid := range mids {
			tail, err := e.evalPath(ctx, ag, v.Right, mid)
			if err != nil {
				return nil, err
			}
			for _, t := range tail {
				if k := t.String(); !seen[k] {
					seen[k] = true
					out = append(out, t)
				}
			}
		}
		return out, nil
	case algebra.PathAlternative:
		left, err := e.evalPath(ctx, ag, v.Left, from)
		if err != nil {
			return nil, err
		}
		right, err := e.evalPath(ctx, ag, v.Right, from)
		if err != nil {
			return nil, err
		}
		return dedupTerms(append(left, right...)), nil
	case algebra.PathZeroOrOne:
		inner, err := e.evalPath(ctx, ag, v.Inner, from)
		if err != nil {
			return nil, err
		}
		return dedupTerms(append([]rdffusion.Term{from}, inner...)), nil
	case algebra.PathZeroOrMore:
		return e.closure(ctx, ag, v.Inner, from, true)
	case algebra.PathOneOrMore:
		return e.closure(ctx, ag, v.Inner, from, false)
	case algebra.PathNegatedPropertySet:
		return e.negatedHop(ctx, ag, v.IRIs, from, true)
	default:
		return nil, rdffusion.NewInternalError("UNSUPPORTED_PATH", fmt.Sprintf("exec: unsupported path form %T", path), nil)
	}
}

// invertPathExpr rewrites path into the path expression for its inverse
// relation, distributing PathInverse over every combinator so that only
// PathPredicate/PathNegatedPropertySet leaves ever end up wrapped in a
// PathInverse node (the only form evalPath evaluates directly via a
// reversed store scan).
func invertPathExpr(path algebra.PathExpr) algebra.PathExpr {
	switch v := path.(type) {
	case algebra.PathInverse:
		return v.Inner
	case algebra.PathSequence:
		return algebra.PathSequence{Left: invertPathExpr(v.Right), Right: invertPathExpr(v.Left)}
	case algebra.PathAlternative:
		return algebra.PathAlternative{Left: invertPathExpr(v.Left), Right: invertPathExpr(v.Right)}
	case algebra.PathZeroOrMore:
		return algebra.PathZeroOrMore{Inner: invertPathExpr(v.Inner)}
	case algebra.PathOneOrMore:
		return algebra.PathOneOrMore{Inner: invertPathExpr(v.Inner)}
	case algebra.PathZeroOrOne:
		return algebra.PathZeroOrOne{Inner: invertPathExpr(v.Inner)}
	default:
		// PathPredicate / PathNegatedPropertySet leaves.
		return algebra.PathInverse{Inner: v}
	}
}

func dedupTerms(terms []rdffusion.Term) []rdffusion.Term {
	seen := map[string]bool{}
	var out []rdffusion.Term
	for _, t := range terms {
		if k := t.String(); !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	return out
}

func (e *Executor) closure(ctx context.Context, ag rdffusion.ActiveGraph, inner algebra.PathExpr, from rdffusion.Term, includeZero bool) ([]rdffusion.Term, error) {
	seen := map[string]bool{}
	var result []rdffusion.Term
	if includeZero {
		seen[from.String()] = true
		result = append(result, from)
	}
	frontier := []rdffusion.Term{from}
	for len(frontier) > 0 {
		var next []rdffusion.Term
		for _, f := range frontier {
			succs, err := e.evalPath(ctx, ag, inner, f)
			if err != nil {
				return nil, err
			}
			for _, s := range succs {
				if k := s.String(); !seen[k] {
					seen[k] = true
					result = append(result, s)
					next = append(next, s)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

func (e *Executor) hop(ctx context.Context, ag rdffusion.ActiveGraph, predicateIRI string, from rdffusion.Term, forward bool) ([]rdffusion.Term, error) {
	pattern := rdffusion.PatternScan{ActiveGraph: ag, Predicate: rdffusion.NamedNode{IRI: predicateIRI}, BatchSize: 4096}
	if forward {
		pattern.Subject = from
	} else {
		pattern.Object = from
	}
	stream, err := e.Store.Scan(ctx, pattern)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	var out []rdffusion.Term
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		colIdx := 0
		if forward {
			colIdx = 2
		}
		arr, err := encoding.NewPlainArray(rec.Column(colIdx))
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			if t, ok, _ := encoding.DecodeTerm(arr, i); ok {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// negatedHop matches any predicate IRI not in excluded. forward=true scans
// from as subject and returns matching objects (PathNegatedPropertySet);
// forward=false scans from as object and returns matching subjects (its
// PathInverse).
func (e *Executor) negatedHop(ctx context.Context, ag rdffusion.ActiveGraph, excluded []string, from rdffusion.Term, forward bool) ([]rdffusion.Term, error) {
	excludedSet := map[string]bool{}
	for _, iri := range excluded {
		excludedSet[iri] = true
	}
	pattern := rdffusion.PatternScan{ActiveGraph: ag, BatchSize: 4096}
	if forward {
		pattern.Subject = from
	} else {
		pattern.Object = from
	}
	stream, err := e.Store.Scan(ctx, pattern)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	var out []rdffusion.Term
	resultCol := 2
	if !forward {
		resultCol = 0
	}
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		predArr, err := encoding.NewPlainArray(rec.Column(1))
		if err != nil {
			return nil, err
		}
		resultArr, err := encoding.NewPlainArray(rec.Column(resultCol))
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			pred, ok, _ := encoding.DecodeTerm(predArr, i)
			if !ok {
				continue
			}
			nn, ok := pred.(rdffusion.NamedNode)
			if !ok || excludedSet[nn.IRI] {
				continue
			}
			if t, ok, _ := encoding.DecodeTerm(resultArr, i); ok {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// activeTermDomain collects every distinct term occurring in subject,
// predicate, or object position under ag, used only to resolve the
// var-subject/var-object zero-or-one path identity case
// (lowering.MarkerIdentityOf) and an unbound-both-ends property path.
func (e *Executor) activeTermDomain(ctx context.Context, ag rdffusion.ActiveGraph) ([]rdffusion.Term, error) {
	stream, err := e.Store.Scan(ctx, rdffusion.PatternScan{ActiveGraph: ag, BatchSize: 4096})
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	seen := map[string]rdffusion.Term{}
	for {
		rec, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for col := 0; col < 3; col++ {
			arr, err := encoding.NewPlainArray(rec.Column(col))
			if err != nil {
				return nil, err
			}
			for i := 0; i < int(rec.NumRows()); i++ {
				if t, ok, _ := encoding.DecodeTerm(arr, i); ok {
					seen[t.String()] = t
				}
			}
		}
	}
	out := make([]rdffusion.Term, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out, nil
}

// --- Joins ---

func (e *Executor) evalJoin(ctx context.Context, j logical.RelJoin) ([]Row, error) {
	left, err := e.eval(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	switch j.Kind {
	case logical.RelLeftAnti:
		return e.evalMinus(left, right, j.Keys, j.Filter)
	case logical.RelLeftOuter:
		return e.evalLeftOuter(left, right, j.Keys, j.Filter)
	default:
		return e.evalInner(left, right, j.Keys, j.Filter)
	}
}

func compatible(l, r Row, keys []string) bool {
	for _, k := range keys {
		lv, lok := l[k]
		rv, rok := r[k]
		if lok && rok && lv.String() != rv.String() {
			return false
		}
	}
	return true
}

func merge(l, r Row) Row {
	out := cloneRow(l)
	for k, v := range r {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

func (e *Executor) evalInner(left, right []Row, keys []string, filter algebra.Expr) ([]Row, error) {
	var out []Row
	for _, l := range left {
		for _, r := range right {
			if !compatible(l, r, keys) {
				continue
			}
			m := merge(l, r)
			if filter != nil {
				ok, expected, err := e.evalFilterExpr(filter, m)
				if err != nil {
					return nil, err
				}
				if expected || !ok {
					continue
				}
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Executor) evalLeftOuter(left, right []Row, keys []string, filter algebra.Expr) ([]Row, error) {
	var out []Row
	for _, l := range left {
		matched := false
		for _, r := range right {
			if !compatible(l, r, keys) {
				continue
			}
			m := merge(l, r)
			if filter != nil {
				ok, expected, err := e.evalFilterExpr(filter, m)
				if err != nil {
					return nil, err
				}
				if expected || !ok {
					continue
				}
			}
			out = append(out, m)
			matched = true
		}
		if !matched {
			out = append(out, cloneRow(l))
		}
	}
	return out, nil
}

// evalMinus implements SPARQL MINUS's left-anti semantics: l survives
// unless some r is both key-compatible and satisfies filter, which
// MinusLoweringRule builds out of the MarkerCompatible/MarkerAnyBound
// synthetic FuncCalls. Those markers need both sides' pre-join value for
// an overlap variable, so they are evaluated directly against (l, r)
// rather than a merged row.
func (e *Executor) evalMinus(left, right []Row, keys []string, filter algebra.Expr) ([]Row, error) {
	var out []Row
	for _, l := range left {
		excluded := false
		for _, r := range right {
			if !compatible(l, r, keys) {
				continue
			}
			if filter == nil || e.evalMinusFilter(filter, l, r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, l)
		}
	}
	return out, nil
}

func (e *Executor) evalMinusFilter(expr algebra.Expr, l, r Row) bool {
	call, ok := expr.(algebra.FuncCall)
	if !ok {
		return false
	}
	switch call.Name {
	case "&&":
		return e.evalMinusFilter(call.Args[0], l, r) && e.evalMinusFilter(call.Args[1], l, r)
	case lowering.MarkerCompatible:
		name := call.Args[0].(algebra.VarExpr).Name
		lv, lok := l[name]
		rv, rok := r[name]
		return !lok || !rok || lv.String() == rv.String()
	case lowering.MarkerAnyBound:
		for _, a := range call.Args {
			name := a.(algebra.VarExpr).Name
			_, lok := l[name]
			_, rok := r[name]
			if lok && rok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// --- Projection / Extend ---

func (e *Executor) evalProjection(ctx context.Context, p logical.RelProjection) ([]Row, error) {
	inner, err := e.eval(ctx, p.Inner)
	if err != nil {
		return nil, err
	}
	identVar := ""
	for name, expr := range p.Computed {
		if fc, ok := expr.(algebra.FuncCall); ok && fc.Name == lowering.MarkerIdentityOf {
			identVar = name
		}
	}
	var out []Row
	for _, row := range inner {
		bases := []Row{row}
		if identVar != "" {
			domain, err := e.activeTermDomain(ctx, rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphUnionOfAll})
			if err != nil {
				return nil, err
			}
			bases = nil
			for _, t := range domain {
				nr := cloneRow(row)
				nr[identVar] = t
				bases = append(bases, nr)
			}
		}
		for _, base := range bases {
			nr := Row{}
			for _, v := range p.Variables {
				if val, ok := base[v]; ok {
					nr[v] = val
				}
			}
			for name, expr := range p.Computed {
				if name == identVar {
					nr[name] = base[identVar]
					continue
				}
				term, ok, err := e.evalComputedTerm(expr, base)
				if err != nil {
					return nil, err
				}
				if ok {
					nr[name] = term
				}
			}
			out = append(out, nr)
		}
	}
	return out, nil
}

func (e *Executor) evalComputedTerm(expr algebra.Expr, row Row) (rdffusion.Term, bool, error) {
	switch v := expr.(type) {
	case algebra.VarExpr:
		t, ok := row[v.Name]
		return t, ok, nil
	case algebra.LitExpr:
		return v.Term, true, nil
	case algebra.FuncCall:
		res, expected, err := e.evalFuncCall(v, row)
		if err != nil || expected {
			return nil, false, err
		}
		t, ok := valueToTerm(res)
		return t, ok, nil
	default:
		return nil, false, fmt.Errorf("exec: unsupported computed expr %T", expr)
	}
}

func valueToTerm(v any) (rdffusion.Term, bool) {
	switch val := v.(type) {
	case rdffusion.Term:
		return val, true
	case encoding.ResourceValue:
		if val.IsBlank {
			return rdffusion.BlankNode{ID: val.Value}, true
		}
		return rdffusion.NamedNode{IRI: val.Value}, true
	case encoding.BooleanValue:
		return encoding.FormatValue(val), true
	case encoding.Value:
		return encoding.FormatValue(val), true
	case bool:
		return encoding.FormatValue(encoding.BooleanValue(val)), true
	}
	return nil, false
}

// --- Filter ---

func (e *Executor) evalFilter(ctx context.Context, f logical.RelFilter) ([]Row, error) {
	inner, err := e.eval(ctx, f.Inner)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, row := range inner {
		ok, expected, err := e.evalFilterExpr(f.Expr, row)
		if err != nil {
			return nil, err
		}
		if expected || !ok {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// evalFilterExpr evaluates a boolean SPARQL expression over row. A
// FuncCall named "NOT_IN" (used by negated-property-set lowering when it
// reaches a generic RelFilter rather than being consumed inline by
// evalPath) is handled directly since it is not a registered scalar op.
func (e *Executor) evalFilterExpr(expr algebra.Expr, row Row) (result bool, expected bool, err error) {
	if call, ok := expr.(algebra.FuncCall); ok && call.Name == "NOT_IN" {
		return e.evalNotIn(call, row)
	}
	val, expectedArg, err := e.evalArg(expr, row, encoding.EncodingTypedValue)
	if err != nil || expectedArg {
		return false, expectedArg, err
	}
	b, ok := val.(encoding.BooleanValue)
	if !ok {
		return false, true, nil
	}
	return bool(b), false, nil
}

func (e *Executor) evalNotIn(call algebra.FuncCall, row Row) (bool, bool, error) {
	t, ok, err := e.evalComputedTerm(call.Args[0], row)
	if err != nil {
		return false, false, err
	}
	if !ok {
		return false, true, nil
	}
	for _, a := range call.Args[1:] {
		lit, _, err := e.evalComputedTerm(a, row)
		if err != nil {
			return false, false, err
		}
		if lit != nil && lit.String() == t.String() {
			return false, false, nil
		}
	}
	return true, false, nil
}

// --- Union / Distinct / OrderBy / Limit ---

func (e *Executor) evalUnion(ctx context.Context, u logical.RelUnion) ([]Row, error) {
	left, err := e.eval(ctx, u.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(ctx, u.Right)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

func (e *Executor) evalDistinct(ctx context.Context, d logical.RelDistinct) ([]Row, error) {
	inner, err := e.eval(ctx, d.Inner)
	if err != nil {
		return nil, err
	}
	vars := d.Inner.Schema()
	seen := map[string]bool{}
	var out []Row
	for _, row := range inner {
		key := rowKey(row, vars)
		if !seen[key] {
			seen[key] = true
			out = append(out, row)
		}
	}
	return out, nil
}

func rowKey(row Row, vars []string) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		if t, ok := row[v]; ok {
			parts[i] = t.String()
		} else {
			parts[i] = "\x00"
		}
	}
	return strings.Join(parts, "\x1f")
}

func (e *Executor) evalOrderBy(ctx context.Context, o logical.RelOrderBy) ([]Row, error) {
	inner, err := e.eval(ctx, o.Inner)
	if err != nil {
		return nil, err
	}
	rows := append([]Row{}, inner...)
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cond := range o.Conditions {
			vi, ei, erri := e.evalArg(cond.Expr, rows[i], encoding.EncodingTypedValue)
			vj, ej, errj := e.evalArg(cond.Expr, rows[j], encoding.EncodingTypedValue)
			if erri != nil || errj != nil {
				if sortErr == nil {
					sortErr = erri
					if sortErr == nil {
						sortErr = errj
					}
				}
				return false
			}
			if ei || ej {
				if ei == ej {
					continue
				}
				less := ei
				if cond.Descending {
					less = !less
				}
				return less
			}
			vvi, _ := vi.(encoding.Value)
			vvj, _ := vj.(encoding.Value)
			if vvi == nil || vvj == nil {
				continue
			}
			cmp, ok := compareValues(vvi, vvj)
			if !ok || cmp == 0 {
				continue
			}
			if cond.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return rows, nil
}

func compareValues(a, b encoding.Value) (int, bool) {
	lt, err := scalarops.LessThan.Evaluate([]any{a, b})
	if err == nil {
		if bv, ok := lt.(encoding.BooleanValue); ok && bool(bv) {
			return -1, true
		}
	}
	eq, err := (scalarops.Equals{}).Evaluate([]any{a, b})
	if err == nil {
		if bv, ok := eq.(encoding.BooleanValue); ok && bool(bv) {
			return 0, true
		}
	}
	gt, err := scalarops.GreaterThan.Evaluate([]any{a, b})
	if err == nil {
		if bv, ok := gt.(encoding.BooleanValue); ok && bool(bv) {
			return 1, true
		}
	}
	return 0, false
}

func (e *Executor) evalLimit(ctx context.Context, l logical.RelLimit) ([]Row, error) {
	inner, err := e.eval(ctx, l.Inner)
	if err != nil {
		return nil, err
	}
	if l.Offset >= len(inner) {
		return nil, nil
	}
	rows := inner[l.Offset:]
	if l.HasLimit && l.Limit < len(rows) {
		rows = rows[:l.Limit]
	}
	return rows, nil
}

// --- Aggregate ---

func (e *Executor) evalAggregate(ctx context.Context, a logical.RelAggregate) ([]Row, error) {
	inner, err := e.eval(ctx, a.Inner)
	if err != nil {
		return nil, err
	}

	type group struct {
		keyRow Row
		rows   []Row
	}
	order := []string{}
	groups := map[string]*group{}

	if len(a.Keys) == 0 {
		// Ungrouped aggregate: always exactly one output row, even over
		// zero input rows (spec.md §8 scenario 5: COUNT(*) over an empty
		// store is 0, not an empty result set). rows stays the genuine
		// (possibly empty) input slice so COUNT(*) still counts 0, not 1.
		groups[""] = &group{keyRow: Row{}, rows: inner}
		order = append(order, "")
	} else {
		for _, row := range inner {
			keyRow := Row{}
			var keyParts []string
			for i, kexpr := range a.Keys {
				name := a.KeyVars[i]
				t, ok, err := e.evalComputedTerm(kexpr, row)
				if err != nil {
					return nil, err
				}
				if ok {
					keyRow[name] = t
					keyParts = append(keyParts, t.String())
				} else {
					keyParts = append(keyParts, "\x00")
				}
			}
			gk := strings.Join(keyParts, "\x1f")
			g, ok := groups[gk]
			if !ok {
				g = &group{keyRow: keyRow}
				groups[gk] = g
				order = append(order, gk)
			}
			g.rows = append(g.rows, row)
		}
	}

	var out []Row
	for _, gk := range order {
		g := groups[gk]
		row := cloneRow(g.keyRow)
		for _, agg := range a.Aggregates {
			val, ok, err := e.evalAggregateExpr(agg, g.rows)
			if err != nil {
				return nil, err
			}
			if ok {
				row[agg.Variable] = val
			}
		}
		out = append(out, row)
	}
	internal.EmitGroupCount(ctx, "aggregate", int64(len(out)))
	return out, nil
}

func (e *Executor) evalAggregateExpr(agg algebra.AggregateExpr, rows []Row) (rdffusion.Term, bool, error) {
	countAll := strings.EqualFold(agg.Name, "COUNT") && agg.Arg == nil
	acc := newAccumulator(agg.Name, countAll, agg.Separator)
	if acc == nil {
		return nil, false, rdffusion.NewInternalError("UNKNOWN_AGGREGATE", fmt.Sprintf("exec: unknown aggregate %s", agg.Name), nil)
	}
	var thin []encoding.ThinResult[encoding.Value]
	seenDistinct := map[string]bool{}
	for _, row := range rows {
		if countAll {
			thin = append(thin, encoding.Ok[encoding.Value](encoding.BooleanValue(true)))
			continue
		}
		val, expected, err := e.evalArg(agg.Arg, row, encoding.EncodingTypedValue)
		if err != nil {
			return nil, false, err
		}
		if expected {
			thin = append(thin, encoding.Expected[encoding.Value]())
			continue
		}
		v, ok := val.(encoding.Value)
		if !ok {
			thin = append(thin, encoding.Expected[encoding.Value]())
			continue
		}
		if agg.Distinct {
			key := fmt.Sprintf("%d:%v", v.Family(), v)
			if seenDistinct[key] {
				continue
			}
			seenDistinct[key] = true
		}
		thin = append(thin, encoding.Ok(v))
	}
	if err := acc.UpdateBatch(thin); err != nil {
		return nil, false, err
	}
	result, ok := acc.Evaluate()
	if !ok {
		return nil, false, nil
	}
	return valueToTerm(result)
}

func newAccumulator(name string, countAll bool, separator string) aggregate.Accumulator {
	switch strings.ToUpper(name) {
	case "SUM":
		return aggregate.NewSum()
	case "AVG":
		return aggregate.NewAvg()
	case "MIN":
		return aggregate.NewMin()
	case "MAX":
		return aggregate.NewMax()
	case "GROUP_CONCAT":
		return aggregate.NewGroupConcat(separator)
	case "COUNT":
		return aggregate.NewCount(countAll)
	default:
		return nil
	}
}

// --- Expression evaluation ---

func encodeLeaf(t rdffusion.Term, enc encoding.Encoding) (any, bool) {
	if enc == encoding.EncodingPlainTerm {
		return t, true
	}
	switch v := t.(type) {
	case rdffusion.Literal:
		return encoding.ParseLiteral(v), true
	case rdffusion.NamedNode:
		return encoding.ResourceValue{IsBlank: false, Value: v.IRI}, true
	case rdffusion.BlankNode:
		return encoding.ResourceValue{IsBlank: true, Value: v.ID}, true
	}
	return nil, false
}

func (e *Executor) evalArg(expr algebra.Expr, row Row, enc encoding.Encoding) (any, bool, error) {
	switch v := expr.(type) {
	case algebra.VarExpr:
		t, ok := row[v.Name]
		if !ok {
			return nil, true, nil
		}
		val, _ := encodeLeaf(t, enc)
		return val, false, nil
	case algebra.LitExpr:
		val, _ := encodeLeaf(v.Term, enc)
		return val, false, nil
	case algebra.FuncCall:
		return e.evalFuncCall(v, row)
	default:
		return nil, false, fmt.Errorf("exec: unsupported expr %T", expr)
	}
}

func (e *Executor) evalFuncCall(call algebra.FuncCall, row Row) (any, bool, error) {
	op, found := e.Registry.Resolve(call.Name, functions.Arity(len(call.Args)), encoding.EncodingTypedValue)
	if !found {
		// Variadic built-ins (e.g. COALESCE) register under NAry
		// regardless of how many arguments a given call site has.
		op, found = e.Registry.Resolve(call.Name, functions.NAry, encoding.EncodingTypedValue)
	}
	if !found {
		return nil, false, fmt.Errorf("exec: unknown function %s/%d", call.Name, len(call.Args))
	}
	opEnc := op.Key().Encoding
	values := make([]any, len(call.Args))
	expectedFlags := make([]bool, len(call.Args))
	for i, a := range call.Args {
		v, exp, err := e.evalArg(a, row, opEnc)
		if err != nil {
			return nil, false, err
		}
		values[i] = v
		expectedFlags[i] = exp
	}
	return functions.EvaluateRow(op, values, expectedFlags)
}
