// Package factory wires the engine's moving parts — quad store, function
// registry, and query pipeline — into the rdffusion.Engine interface.
// Shape (package-level factory-function vars as test-injection hooks,
// zap structured logging, %w error wrapping) is grounded on the teacher's
// NewEntityManagerWithConfig (factory.go).
package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/algebra"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions"
	"github.com/rdf-fusion/rdffusion-go/functions/scalarops"
	"github.com/rdf-fusion/rdffusion-go/internal/exec"
	"github.com/rdf-fusion/rdffusion-go/logical"
	"github.com/rdf-fusion/rdffusion-go/logical/lowering"
	"github.com/rdf-fusion/rdffusion-go/store"
)

// storeFactory is a test hook for store construction.
var storeFactory = store.NewStore

// registryFactory is a test hook for registry construction.
var registryFactory = newDefaultRegistry

// newDefaultRegistry builds a Registry pre-populated with every built-in
// scalar op this repository implements.
func newDefaultRegistry() *functions.Registry {
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
	reg.RegisterOp(scalarops.Add)
	reg.RegisterOp(scalarops.Subtract)
	reg.RegisterOp(scalarops.Multiply)
	reg.RegisterOp(scalarops.Divide)
	reg.RegisterOp(scalarops.UnaryMinus{})
	reg.RegisterOp(scalarops.CastToString)
	reg.RegisterOp(scalarops.CastToBoolean)
	reg.RegisterOp(scalarops.CastToInteger)
	reg.RegisterOp(scalarops.CastToDouble)
	reg.RegisterOp(scalarops.RegexBinary)
	reg.RegisterOp(scalarops.RegexTernary)
	reg.RegisterOp(scalarops.Replace{})
	reg.RegisterOp(scalarops.Str{})
	reg.RegisterOp(scalarops.Concat{})
	reg.RegisterOp(scalarops.Substr{})
	reg.RegisterOp(scalarops.Lcase)
	reg.RegisterOp(scalarops.Ucase)
	return reg
}

// engineImpl is the rdffusion.Engine implementation backing a single
// in-memory quad store plus its query pipeline. Query accepts an
// algebra.Node (the already-parsed SPARQL algebra tree); the parser
// itself is an external, Non-goal collaborator.
type engineImpl struct {
	config   *rdffusion.Config
	store    *store.Store
	registry *functions.Registry
}

// NewEngine builds an Engine over a fresh in-memory quad store, wiring the
// default function registry and the FromAlgebra -> lowering.Plan ->
// internal/exec pipeline behind rdffusion.Engine.Query.
func NewEngine(config *rdffusion.Config) (rdffusion.Engine, error) {
	if config == nil {
		config = rdffusion.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("factory: invalid config: %w", err)
	}

	zap.S().Infow("initializing engine", "optimizationLevel", config.OptimizationLevel, "batchSize", config.BatchSize)

	st := storeFactory()
	reg := registryFactory()

	return &engineImpl{config: config, store: st, registry: reg}, nil
}

func (e *engineImpl) defaultActiveGraph() rdffusion.ActiveGraph {
	if e.config.UnionDefaultGraph {
		return rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphUnionOfAll}
	}
	return rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphDefaultOnly}
}

// Query runs query (an algebra.Node produced by an external SPARQL parser)
// to completion: FromAlgebra translation, mandatory lowering plus
// encoding placement, then row-oriented execution, re-encoded as a
// PlainTerm batch stream per QueryResults' contract.
func (e *engineImpl) Query(ctx context.Context, query any, options rdffusion.QueryOptions) (rdffusion.QueryResults, error) {
	node, ok := query.(algebra.Node)
	if !ok {
		return rdffusion.QueryResults{}, rdffusion.NewSyntaxError("INVALID_QUERY", fmt.Sprintf("factory: query must be an algebra.Node, got %T", query))
	}
	cfg := e.config
	if options.Config != nil {
		cfg = options.Config
	}
	if options.Timeout != nil {
		ctx = options.Timeout
	}

	plan, err := logical.FromAlgebra(node, e.defaultActiveGraph())
	if err != nil {
		return rdffusion.QueryResults{}, rdffusion.NewSyntaxError("TRANSLATE_FAILED", err.Error())
	}

	lowered, err := lowering.Plan(plan, cfg.OptimizationLevel, e.registry)
	if err != nil {
		return rdffusion.QueryResults{}, rdffusion.NewInternalError("LOWERING_FAILED", "factory: failed to lower plan", err)
	}

	executor := exec.New(e.store, e.registry)
	vars, rows, err := executor.Execute(ctx, lowered)
	if err != nil {
		return rdffusion.QueryResults{}, err
	}

	zap.S().Debugw("query executed", "variables", vars, "rows", len(rows))

	return rdffusion.QueryResults{
		Kind:      rdffusion.ResultSolutions,
		Variables: vars,
		Batches:   newRowRecordStream(vars, rows, cfg.BatchSize),
	}, nil
}

func (e *engineImpl) Contains(ctx context.Context, quad rdffusion.Quad) (bool, error) {
	return e.store.Contains(ctx, quad), nil
}

func (e *engineImpl) Len(ctx context.Context) (int, error) {
	return e.store.Len(ctx), nil
}

// QuadsForPattern scans quads matching (g, s, p, o) under the default
// active graph, where a nil term means unbound; g selects a single named
// graph (or the default graph) rather than the query-time active-graph set.
func (e *engineImpl) QuadsForPattern(ctx context.Context, g rdffusion.GraphName, s, p, o rdffusion.Term) (rdffusion.RecordStream, error) {
	ag := rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphDefaultOnly}
	withGraph := false
	if nn, ok := g.(rdffusion.NamedNode); ok {
		ag = rdffusion.ActiveGraph{Mode: rdffusion.ActiveGraphNamedSet, Graphs: []rdffusion.NamedNode{nn}}
		withGraph = true
	}
	return e.store.Scan(ctx, rdffusion.PatternScan{
		ActiveGraph:     ag,
		Subject:         s,
		Predicate:       p,
		Object:          o,
		WithGraphColumn: withGraph,
		BatchSize:       e.config.BatchSize,
	})
}

func (e *engineImpl) Insert(ctx context.Context, quads []rdffusion.Quad) error {
	if err := e.store.Insert(ctx, quads); err != nil {
		return rdffusion.NewStorageError("INSERT_FAILED", "factory: failed to insert quads", err)
	}
	return nil
}

func (e *engineImpl) Remove(ctx context.Context, quad rdffusion.Quad) (bool, error) {
	changed, err := e.store.Remove(ctx, quad)
	if err != nil {
		return false, rdffusion.NewStorageError("REMOVE_FAILED", "factory: failed to remove quad", err)
	}
	return changed, nil
}

func (e *engineImpl) InsertNamedGraph(ctx context.Context, graph rdffusion.NamedNode) error {
	if err := e.store.InsertNamedGraph(ctx, graph); err != nil {
		return rdffusion.NewStorageError("INSERT_GRAPH_FAILED", "factory: failed to insert named graph", err)
	}
	return nil
}

func (e *engineImpl) DropNamedGraph(ctx context.Context, graph rdffusion.NamedNode) (bool, error) {
	changed, err := e.store.DropNamedGraph(ctx, graph)
	if err != nil {
		return false, rdffusion.NewStorageError("DROP_GRAPH_FAILED", "factory: failed to drop named graph", err)
	}
	return changed, nil
}

func (e *engineImpl) ClearGraph(ctx context.Context, graph rdffusion.GraphName) error {
	if err := e.store.ClearGraph(ctx, graph); err != nil {
		return rdffusion.NewStorageError("CLEAR_GRAPH_FAILED", "factory: failed to clear graph", err)
	}
	return nil
}

func (e *engineImpl) Clear(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return rdffusion.NewStorageError("CLEAR_FAILED", "factory: failed to clear store", err)
	}
	return nil
}

// --- Row -> Arrow record re-encoding ---

// rowRecordStream paginates executor solution rows into PlainTerm-columned
// Arrow batches, one column per variable in vars order, mirroring
// store.plainBatchStream's builder idiom.
type rowRecordStream struct {
	mem   memory.Allocator
	vars  []string
	rows  []exec.Row
	batch int
	pos   int
}

func newRowRecordStream(vars []string, rows []exec.Row, batchSize int) *rowRecordStream {
	if batchSize <= 0 {
		batchSize = len(rows)
		if batchSize == 0 {
			batchSize = 1
		}
	}
	return &rowRecordStream{mem: memory.NewGoAllocator(), vars: vars, rows: rows, batch: batchSize}
}

func (r *rowRecordStream) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	end := r.pos + r.batch
	if end > len(r.rows) {
		end = len(r.rows)
	}
	page := r.rows[r.pos:end]
	r.pos = end

	fields := make([]arrow.Field, len(r.vars))
	cols := make([]arrow.Array, len(r.vars))
	for i, v := range r.vars {
		fields[i] = arrow.Field{Name: v, Type: encoding.PlainTermType}
		b := encoding.NewPlainBuilder(r.mem)
		for _, row := range page {
			if t, ok := row[v]; ok {
				b.AppendTerm(t)
			} else {
				b.AppendNull()
			}
		}
		cols[i] = b.NewArray().Array()
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(len(page))), nil
}

func (r *rowRecordStream) Close() {}
