package rdffusion

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// ResultKind discriminates the three shapes a SPARQL query can produce.
type ResultKind string

const (
	ResultSolutions ResultKind = "solutions"
	ResultBoolean   ResultKind = "boolean"
	ResultGraph     ResultKind = "graph"
)

// QueryResults is the tagged union yielded by Engine.Query: Solutions
// (variables plus a stream of PlainTerm-encoded record batches), a
// Boolean (ASK queries), or a Graph (CONSTRUCT/DESCRIBE triple stream).
type QueryResults struct {
	Kind      ResultKind
	Variables []string
	Batches   RecordStream
	Boolean   bool
	Triples   TripleStream
}

// RecordStream yields Arrow record batches until it is exhausted (signalled
// by a nil record and io.EOF as the error), or an error. Batch boundaries are
// the only suspension/cancellation points: a cancelled context must stop
// the stream promptly between batches.
type RecordStream interface {
	Next(ctx context.Context) (arrow.Record, error)
	Close()
}

// TripleStream yields constructed triples for Graph results.
type TripleStream interface {
	Next(ctx context.Context) (Triple, bool, error)
	Close()
}

// QueryOptions carries the per-query configuration described in the
// external-interfaces configuration table, plus an optional timeout.
type QueryOptions struct {
	Config            *Config
	OptimizationLevel OptimizationLevel
	Timeout           context.Context
}

// Engine is the root entry point exposed to callers: query execution plus
// quad-store administration. Result serialization to wire formats and the
// SPARQL parser are external collaborators — Engine.Query accepts an
// already-parsed algebra tree (see package algebra).
type Engine interface {
	Query(ctx context.Context, query any, options QueryOptions) (QueryResults, error)
	Contains(ctx context.Context, quad Quad) (bool, error)
	Len(ctx context.Context) (int, error)
	QuadsForPattern(ctx context.Context, g GraphName, s, p, o Term) (RecordStream, error)

	Insert(ctx context.Context, quads []Quad) error
	Remove(ctx context.Context, quad Quad) (bool, error)
	InsertNamedGraph(ctx context.Context, graph NamedNode) error
	DropNamedGraph(ctx context.Context, graph NamedNode) (bool, error)
	ClearGraph(ctx context.Context, graph GraphName) error
	Clear(ctx context.Context) error
}

// StorageProvider is the storage extension point: a default quads scan
// ("TableProvider"-equivalent), plus a set of physical-node planners for
// QuadPattern/PropertyPath, plus the read/write admin methods on Engine.
type StorageProvider interface {
	Scan(ctx context.Context, pattern PatternScan) (RecordStream, error)
	ExtensionPlanners() []ExtensionPlanner
}

// PatternScan describes a bound/variable triple pattern scan request
// against an active graph.
type PatternScan struct {
	ActiveGraph ActiveGraph
	Subject     Term // nil means unbound
	Predicate   Term
	Object      Term
	WithGraphColumn bool
	BatchSize   int
}

// ActiveGraphMode enumerates the four active-graph modes a pattern scan
// may be evaluated under.
type ActiveGraphMode int

const (
	ActiveGraphDefaultOnly ActiveGraphMode = iota
	ActiveGraphNamedSet
	ActiveGraphAllNamed
	ActiveGraphUnionOfAll
)

// ActiveGraph selects the set of graphs in scope for a pattern evaluation.
type ActiveGraph struct {
	Mode   ActiveGraphMode
	Graphs []NamedNode // used when Mode == ActiveGraphNamedSet
}

// ExtensionPlanner translates a custom logical node into a storage-specific
// physical operator; implementations are opaque to this package.
type ExtensionPlanner interface {
	CanPlan(node any) bool
	Plan(ctx context.Context, node any) (RecordStream, error)
}

// FunctionRegistry is the function-registry extension point: third parties
// register additional built-in scalar UDFs keyed by (name, arity,
// first-arg-encoding).
type FunctionRegistry interface {
	Register(name string, arity int, encoding string, impl any) error
	Lookup(name string, arity int, encoding string) (any, bool)
}
