package store

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/logical"
)

type storedQuad struct {
	G, S, P, O rdffusion.Term
}

func canonical(t rdffusion.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func (q storedQuad) fullVals() [4]string {
	return [4]string{canonical(q.G), canonical(q.S), canonical(q.P), canonical(q.O)}
}

type quadKey [4]string

// quadIndex is one permutation's nested hash structure: four levels deep
// in perm order, the leaf mapping to the owning quadKey.
type quadIndex struct {
	perm IndexComponents
	m    map[string]map[string]map[string]map[string]quadKey
}

func newQuadIndex(perm IndexComponents) quadIndex {
	return quadIndex{perm: perm, m: map[string]map[string]map[string]map[string]quadKey{}}
}

func (idx quadIndex) insert(full [4]string, key quadKey) {
	vals := idx.permValues(full)
	l0, ok := idx.m[vals[0]]
	if !ok {
		l0 = map[string]map[string]map[string]quadKey{}
		idx.m[vals[0]] = l0
	}
	l1, ok := l0[vals[1]]
	if !ok {
		l1 = map[string]map[string]quadKey{}
		l0[vals[1]] = l1
	}
	l2, ok := l1[vals[2]]
	if !ok {
		l2 = map[string]quadKey{}
		l1[vals[2]] = l2
	}
	l2[vals[3]] = key
}

func (idx quadIndex) remove(full [4]string) {
	vals := idx.permValues(full)
	l1, ok := idx.m[vals[0]]
	if !ok {
		return
	}
	l2, ok := l1[vals[1]]
	if !ok {
		return
	}
	l3, ok := l2[vals[2]]
	if !ok {
		return
	}
	delete(l3, vals[3])
	if len(l3) == 0 {
		delete(l2, vals[2])
	}
	if len(l2) == 0 {
		delete(l1, vals[1])
	}
	if len(l1) == 0 {
		delete(idx.m, vals[0])
	}
}

func (idx quadIndex) permValues(full [4]string) [4]string {
	var out [4]string
	for i, c := range idx.perm {
		out[i] = full[c]
	}
	return out
}

// scan narrows by bound, filtering at whatever level a bound component
// lands at in perm order; unbound components iterate every child.
func (idx quadIndex) scan(boundVals [4]string, bound BoundMask) []quadKey {
	var out []quadKey
	for k0, l1 := range idx.m {
		if bound[idx.perm[0]] && k0 != boundVals[idx.perm[0]] {
			continue
		}
		for k1, l2 := range l1 {
			if bound[idx.perm[1]] && k1 != boundVals[idx.perm[1]] {
				continue
			}
			for k2, l3 := range l2 {
				if bound[idx.perm[2]] && k2 != boundVals[idx.perm[2]] {
					continue
				}
				for k3, key := range l3 {
					if bound[idx.perm[3]] && k3 != boundVals[idx.perm[3]] {
						continue
					}
					out = append(out, key)
				}
			}
		}
	}
	return out
}

func (idx quadIndex) deepCopy() quadIndex {
	out := newQuadIndex(idx.perm)
	for k0, l1 := range idx.m {
		nl1 := map[string]map[string]map[string]quadKey{}
		out.m[k0] = nl1
		for k1, l2 := range l1 {
			nl2 := map[string]map[string]quadKey{}
			nl1[k1] = nl2
			for k2, l3 := range l2 {
				nl3 := map[string]quadKey{}
				nl2[k2] = nl3
				for k3, key := range l3 {
					nl3[k3] = key
				}
			}
		}
	}
	return out
}

// state is one immutable generation of the store's contents; writes
// clone the whole state (every index deep-copied), modify the clone and
// atomically swap it in (spec.md §4.4's snapshot discipline).
type state struct {
	generation  uint64
	quads       map[quadKey]storedQuad
	gspo        quadIndex
	gpos        quadIndex
	gosp        quadIndex
	namedGraphs map[string]rdffusion.NamedNode
}

func newState() *state {
	return &state{
		quads:       map[quadKey]storedQuad{},
		gspo:        newQuadIndex(GSPO),
		gpos:        newQuadIndex(GPOS),
		gosp:        newQuadIndex(GOSP),
		namedGraphs: map[string]rdffusion.NamedNode{},
	}
}

func (s *state) clone() *state {
	quads := make(map[quadKey]storedQuad, len(s.quads))
	for k, v := range s.quads {
		quads[k] = v
	}
	graphs := make(map[string]rdffusion.NamedNode, len(s.namedGraphs))
	for k, v := range s.namedGraphs {
		graphs[k] = v
	}
	return &state{
		generation:  s.generation,
		quads:       quads,
		gspo:        s.gspo.deepCopy(),
		gpos:        s.gpos.deepCopy(),
		gosp:        s.gosp.deepCopy(),
		namedGraphs: graphs,
	}
}

func quadKeyOf(full [4]string) quadKey { return quadKey(full) }

// Store is the in-memory multi-index quad store: single writer (guarded
// by writerMu, serializing commits), many readers (each working off an
// immutable *state snapshot loaded without blocking the writer).
type Store struct {
	writerMu sync.Mutex
	current  atomic.Pointer[state]
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(newState())
	return s
}

// Snapshot pins the store's current generation for the reader's
// lifetime; concurrent writes build new states without mutating it.
type Snapshot struct {
	state *state
}

func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{state: s.current.Load()}
}

func (sn *Snapshot) Generation() uint64 { return sn.state.generation }

// Contains reports whether quad is present in the current snapshot.
func (s *Store) Contains(ctx context.Context, quad rdffusion.Quad) bool {
	st := s.current.Load()
	full := storedQuad{G: quad.Graph, S: quad.Subject, P: quad.Predicate, O: quad.Object}.fullVals()
	_, ok := st.quads[quadKeyOf(full)]
	return ok
}

// Len reports the number of quads in the current snapshot.
func (s *Store) Len(ctx context.Context) int {
	return len(s.current.Load().quads)
}

// Insert adds quads, idempotent on (G,S,P,O); inserting a quad whose
// graph is a NamedNode implicitly registers that named graph, matching
// most SPARQL stores' auto-vivification of graphs on first write.
func (s *Store) Insert(ctx context.Context, quads []rdffusion.Quad) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	next := s.current.Load().clone()
	for _, q := range quads {
		insertLocked(next, q)
	}
	next.generation++
	s.current.Store(next)
	return nil
}

func insertLocked(st *state, q rdffusion.Quad) {
	sq := storedQuad{G: q.Graph, S: q.Subject, P: q.Predicate, O: q.Object}
	full := sq.fullVals()
	key := quadKeyOf(full)
	if _, exists := st.quads[key]; exists {
		return
	}
	st.quads[key] = sq
	st.gspo.insert(full, key)
	st.gpos.insert(full, key)
	st.gosp.insert(full, key)
	if nn, ok := q.Graph.(rdffusion.NamedNode); ok {
		st.namedGraphs[nn.IRI] = nn
	}
}

// Remove deletes quad if present, reporting whether a change occurred.
func (s *Store) Remove(ctx context.Context, quad rdffusion.Quad) (bool, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	cur := s.current.Load()
	full := storedQuad{G: quad.Graph, S: quad.Subject, P: quad.Predicate, O: quad.Object}.fullVals()
	key := quadKeyOf(full)
	if _, exists := cur.quads[key]; !exists {
		return false, nil
	}
	next := cur.clone()
	delete(next.quads, key)
	next.gspo.remove(full)
	next.gpos.remove(full)
	next.gosp.remove(full)
	next.generation++
	s.current.Store(next)
	return true, nil
}

// InsertNamedGraph registers an empty named graph (a no-op if it already
// has quads or was already registered).
func (s *Store) InsertNamedGraph(ctx context.Context, graph rdffusion.NamedNode) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	next := s.current.Load().clone()
	next.namedGraphs[graph.IRI] = graph
	next.generation++
	s.current.Store(next)
	return nil
}

// DropNamedGraph removes the named graph registration and all quads in
// it, reporting whether anything changed.
func (s *Store) DropNamedGraph(ctx context.Context, graph rdffusion.NamedNode) (bool, error) {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	cur := s.current.Load()
	_, registered := cur.namedGraphs[graph.IRI]
	hadQuads := false
	next := cur.clone()
	for key, sq := range next.quads {
		if sq.fullVals()[0] == canonical(graph) {
			full := sq.fullVals()
			delete(next.quads, key)
			next.gspo.remove(full)
			next.gpos.remove(full)
			next.gosp.remove(full)
			hadQuads = true
		}
	}
	delete(next.namedGraphs, graph.IRI)
	if !registered && !hadQuads {
		return false, nil
	}
	next.generation++
	s.current.Store(next)
	return true, nil
}

// ClearGraph removes every quad in graph without dropping its
// registration (DefaultGraph is always "registered").
func (s *Store) ClearGraph(ctx context.Context, graph rdffusion.GraphName) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	next := s.current.Load().clone()
	target := canonical(graph)
	for key, sq := range next.quads {
		if canonical(sq.G) == target {
			full := sq.fullVals()
			delete(next.quads, key)
			next.gspo.remove(full)
			next.gpos.remove(full)
			next.gosp.remove(full)
		}
	}
	next.generation++
	s.current.Store(next)
	return nil
}

// Clear removes every quad and named-graph registration.
func (s *Store) Clear(ctx context.Context) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	s.current.Store(newState())
	return nil
}

// boundMaskAndVals derives the (G,S,P,O) bound mask and canonical values
// for a pattern scan over a single concrete graph term (DefaultGraph or
// one NamedNode); callers resolving ActiveGraph into multiple candidate
// graphs call this once per candidate graph.
func boundMaskAndVals(graph rdffusion.Term, s, p, o rdffusion.Term) (BoundMask, [4]string) {
	var mask BoundMask
	var vals [4]string
	if graph != nil {
		mask[ComponentG] = true
		vals[ComponentG] = canonical(graph)
	}
	if s != nil {
		mask[ComponentS] = true
		vals[ComponentS] = canonical(s)
	}
	if p != nil {
		mask[ComponentP] = true
		vals[ComponentP] = canonical(p)
	}
	if o != nil {
		mask[ComponentO] = true
		vals[ComponentO] = canonical(o)
	}
	return mask, vals
}

var candidateIndexes = []IndexComponents{GSPO, GPOS, GOSP}

func (sn *Snapshot) indexFor(perm IndexComponents) quadIndex {
	switch perm {
	case GPOS:
		return sn.state.gpos
	case GOSP:
		return sn.state.gosp
	default:
		return sn.state.gspo
	}
}

// MatchPattern returns every quad matching (graph, s, p, o) in the
// snapshot, where a nil term means unbound. graph nil means
// "any graph" (used when the caller has already resolved active-graph
// routing down to "no graph constraint").
func (sn *Snapshot) MatchPattern(graph, s, p, o rdffusion.Term) []storedQuad {
	mask, vals := boundMaskAndVals(graph, s, p, o)
	perm := BestIndex(candidateIndexes, mask)
	idx := sn.indexFor(perm)
	keys := idx.scan(vals, mask)
	out := make([]storedQuad, 0, len(keys))
	for _, k := range keys {
		out = append(out, sn.state.quads[k])
	}
	return out
}

// Scan implements rdffusion.StorageProvider.Scan: it resolves active-graph
// routing, matches the pattern per candidate graph, and streams the
// union as PlainTerm-encoded batches.
func (s *Store) Scan(ctx context.Context, pattern rdffusion.PatternScan) (rdffusion.RecordStream, error) {
	sn := s.Snapshot()
	known := make([]string, 0, len(sn.state.namedGraphs))
	for iri := range sn.state.namedGraphs {
		known = append(known, iri)
	}
	routing := EvaluateActiveGraphRouting(pattern.ActiveGraph, known, pattern.WithGraphColumn)

	var matched []storedQuad
	if routing.IncludeDefault {
		matched = append(matched, sn.MatchPattern(rdffusion.DefaultGraph{}, pattern.Subject, pattern.Predicate, pattern.Object)...)
	}
	for _, g := range routing.Graphs {
		matched = append(matched, sn.MatchPattern(rdffusion.NamedNode{IRI: g}, pattern.Subject, pattern.Predicate, pattern.Object)...)
	}

	return &plainBatchStream{
		mem:       memory.NewGoAllocator(),
		paginator: NewPaginator(matched, pattern.BatchSize),
		withGraph: routing.EmitGraphColumn,
	}, nil
}

var plainFields = []arrow.Field{
	{Name: "graph", Type: encoding.PlainTermType},
	{Name: "subject", Type: encoding.PlainTermType},
	{Name: "predicate", Type: encoding.PlainTermType},
	{Name: "object", Type: encoding.PlainTermType},
}

func plainSchema(withGraph bool) *arrow.Schema {
	if withGraph {
		return arrow.NewSchema(plainFields, nil)
	}
	return arrow.NewSchema(plainFields[1:], nil)
}

// plainBatchStream adapts a Paginator into rdffusion.RecordStream,
// encoding each page as a PlainTerm-columned Arrow record.
type plainBatchStream struct {
	mem       memory.Allocator
	paginator *Paginator
	withGraph bool
}

func (b *plainBatchStream) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, ok := b.paginator.Next()
	if !ok {
		return nil, io.EOF
	}
	gb := encoding.NewPlainBuilder(b.mem)
	sb := encoding.NewPlainBuilder(b.mem)
	pb := encoding.NewPlainBuilder(b.mem)
	ob := encoding.NewPlainBuilder(b.mem)
	for _, q := range page {
		gb.AppendTerm(q.G)
		sb.AppendTerm(q.S)
		pb.AppendTerm(q.P)
		ob.AppendTerm(q.O)
	}
	cols := []arrow.Array{sb.NewArray().Array(), pb.NewArray().Array(), ob.NewArray().Array()}
	if b.withGraph {
		cols = append([]arrow.Array{gb.NewArray().Array()}, cols...)
	}
	return array.NewRecord(plainSchema(b.withGraph), cols, int64(len(page))), nil
}

func (b *plainBatchStream) Close() {}

// quadPatternPlanner is the ExtensionPlanner recognizing logical.QuadPattern
// leaves directly, per spec.md §4.3 ("QuadPattern is also the physical
// leaf a StorageProvider's ExtensionPlanner recognizes directly").
type quadPatternPlanner struct {
	store *Store
}

func (p *quadPatternPlanner) CanPlan(node any) bool {
	_, ok := node.(logical.QuadPattern)
	return ok
}

func (p *quadPatternPlanner) Plan(ctx context.Context, node any) (rdffusion.RecordStream, error) {
	qp := node.(logical.QuadPattern)
	var s, pr, o rdffusion.Term
	if !qp.Pattern.Subject.IsVar() {
		s = qp.Pattern.Subject.Term
	}
	if !qp.Pattern.Predicate.IsVar() {
		pr = qp.Pattern.Predicate.Term
	}
	if !qp.Pattern.Object.IsVar() {
		o = qp.Pattern.Object.Term
	}
	return p.store.Scan(ctx, rdffusion.PatternScan{
		ActiveGraph:     qp.ActiveGraph,
		Subject:         s,
		Predicate:       pr,
		Object:          o,
		WithGraphColumn: qp.GraphVar != "",
		BatchSize:       defaultBatchSize,
	})
}

// ExtensionPlanners implements rdffusion.StorageProvider.
func (s *Store) ExtensionPlanners() []rdffusion.ExtensionPlanner {
	return []rdffusion.ExtensionPlanner{&quadPatternPlanner{store: s}}
}
