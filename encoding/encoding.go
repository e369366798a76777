// Package encoding implements the columnar term encodings (PlainTerm,
// TypedValue, Sortable, ObjectId) that coexist across the planner and the
// quad store, plus the transcoders between them. Arrays and scalars are
// backed by github.com/apache/arrow-go/v18, grounded on the teacher's
// DuckDB/Arrow type-mapping idiom (internal/duckdb_type_mapper.go) but
// wired directly to Arrow instead of through a SQL driver.
package encoding

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
)

// ThinResult is the three-tier scalar-op result ladder: a decoded value,
// an Expected (per-row) error, or an Internal (batch-aborting) error.
type ThinResult[T any] struct {
	Value    T
	Expected bool   // true: this row is a SPARQL type error, becomes null
	Internal error  // non-nil: fatal, aborts the batch
	hasValue bool
}

// Ok wraps a normal result.
func Ok[T any](v T) ThinResult[T] {
	return ThinResult[T]{Value: v, hasValue: true}
}

// Expected produces a per-row SPARQL type error.
func Expected[T any]() ThinResult[T] {
	return ThinResult[T]{Expected: true}
}

// Internal produces a fatal, batch-aborting error.
func Internal[T any](err error) ThinResult[T] {
	return ThinResult[T]{Internal: err}
}

// IsOk reports whether the result carries a normal value.
func (r ThinResult[T]) IsOk() bool { return r.hasValue }

// Encoding identifies a columnar term layout by name, used as part of the
// function-dispatch registry key (name, arity, encoding).
type Encoding string

const (
	EncodingPlainTerm  Encoding = "plain_term"
	EncodingTypedValue Encoding = "typed_value"
	EncodingSortable   Encoding = "sortable"
	EncodingObjectID   Encoding = "object_id"
)

// Array wraps an arrow.Array known to satisfy one encoding's invariants.
type Array interface {
	Array() arrow.Array
	Len() int
}

// Scalar wraps a single encoded value.
type Scalar interface {
	IsValid() bool
}

// TermEncoding is the contract every encoding satisfies: it knows its
// Arrow-level data type and validates arrays/scalars against it.
type TermEncoding interface {
	Encoding() Encoding
	DataType() arrow.DataType
}

// Decoder iterates typed terms out of a column. Each Err(Expected)
// corresponds to a null row; Err(Internal) aborts the batch.
type Decoder[T any] interface {
	DecodeArray(arr Array) []ThinResult[T]
	DecodeScalar(s Scalar) ThinResult[T]
}

// Encoder builds a column from an iterator of results. Nulls are
// preserved positionally and errors(Internal) abort encoding.
type Encoder[T any] interface {
	EncodeArray(mem memory.Allocator, values []ThinResult[T]) (Array, error)
	EncodeScalar(mem memory.Allocator, value ThinResult[T]) (Scalar, error)
}

// Term is an alias for the root term type, used pervasively by decoders
// and encoders in this package.
type Term = rdffusion.Term
