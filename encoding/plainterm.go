package encoding

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
)

// TermType is the term_type discriminant stored in column 0 of a PlainTerm
// struct array.
type TermType uint8

const (
	TermTypeNamedNode TermType = iota
	TermTypeBlankNode
	TermTypeLiteral
	// TermTypeDefaultGraph marks the default-graph sentinel when a
	// PlainTerm column carries graph names.
	TermTypeDefaultGraph
)

// PlainTermType is the canonical Arrow data type for the PlainTerm
// encoding: a struct preserving lexical identity. Null at the struct
// level means the term is unbound.
var PlainTermType = arrow.StructOf(
	arrow.Field{Name: "term_type", Type: arrow.PrimitiveTypes.Uint8},
	arrow.Field{Name: "value", Type: arrow.BinaryTypes.String},
	arrow.Field{Name: "datatype", Type: arrow.BinaryTypes.String, Nullable: true},
	arrow.Field{Name: "language", Type: arrow.BinaryTypes.String, Nullable: true},
)

// PlainTerm is the TermEncoding implementation for the canonical,
// lexical-identity-preserving encoding used at plan boundaries.
type PlainTerm struct{}

func (PlainTerm) Encoding() Encoding      { return EncodingPlainTerm }
func (PlainTerm) DataType() arrow.DataType { return PlainTermType }

// PlainArray wraps an arrow.Array validated against PlainTermType.
type PlainArray struct {
	inner *array.Struct
}

// NewPlainArray validates arr against PlainTermType and wraps it.
func NewPlainArray(arr arrow.Array) (*PlainArray, error) {
	s, ok := arr.(*array.Struct)
	if !ok || !arrow.TypeEqual(arr.DataType(), PlainTermType) {
		return nil, fmt.Errorf("encoding: array does not satisfy PlainTerm data type")
	}
	return &PlainArray{inner: s}, nil
}

func (p *PlainArray) Array() arrow.Array { return p.inner }
func (p *PlainArray) Len() int           { return p.inner.Len() }

// PlainScalar is a single decoded PlainTerm value.
type PlainScalar struct {
	Term  rdffusion.Term
	Valid bool
}

func (s PlainScalar) IsValid() bool { return s.Valid }

// PlainBuilder incrementally constructs a PlainArray from a sequence of
// ThinResult[rdffusion.Term] rows. Err(Expected) rows become null;
// Err(Internal) aborts the build.
type PlainBuilder struct {
	mem     memory.Allocator
	sb      *array.StructBuilder
	typeB   *array.Uint8Builder
	valueB  *array.StringBuilder
	dtypeB  *array.StringBuilder
	langB   *array.StringBuilder
}

// NewPlainBuilder allocates a builder using mem.
func NewPlainBuilder(mem memory.Allocator) *PlainBuilder {
	sb := array.NewStructBuilder(mem, PlainTermType)
	return &PlainBuilder{
		mem:    mem,
		sb:     sb,
		typeB:  sb.FieldBuilder(0).(*array.Uint8Builder),
		valueB: sb.FieldBuilder(1).(*array.StringBuilder),
		dtypeB: sb.FieldBuilder(2).(*array.StringBuilder),
		langB:  sb.FieldBuilder(3).(*array.StringBuilder),
	}
}

// AppendNull appends an unbound (null) row.
func (b *PlainBuilder) AppendNull() {
	b.sb.AppendNull()
	b.typeB.AppendNull()
	b.valueB.AppendNull()
	b.dtypeB.AppendNull()
	b.langB.AppendNull()
}

// AppendTerm appends a bound term row.
func (b *PlainBuilder) AppendTerm(t rdffusion.Term) {
	b.sb.Append(true)
	switch v := t.(type) {
	case rdffusion.NamedNode:
		b.typeB.Append(uint8(TermTypeNamedNode))
		b.valueB.Append(v.IRI)
		b.dtypeB.AppendNull()
		b.langB.AppendNull()
	case rdffusion.BlankNode:
		b.typeB.Append(uint8(TermTypeBlankNode))
		b.valueB.Append(v.ID)
		b.dtypeB.AppendNull()
		b.langB.AppendNull()
	case rdffusion.Literal:
		b.typeB.Append(uint8(TermTypeLiteral))
		b.valueB.Append(v.Lexical)
		if v.Datatype != "" {
			b.dtypeB.Append(v.Datatype)
		} else {
			b.dtypeB.Append(rdffusion.XSDString)
		}
		if v.Language != "" {
			b.langB.Append(v.Language)
		} else {
			b.langB.AppendNull()
		}
	case rdffusion.DefaultGraph:
		b.typeB.Append(uint8(TermTypeDefaultGraph))
		b.valueB.Append("")
		b.dtypeB.AppendNull()
		b.langB.AppendNull()
	default:
		b.typeB.AppendNull()
		b.valueB.AppendNull()
		b.dtypeB.AppendNull()
		b.langB.AppendNull()
	}
}

// NewArray finalizes the builder into a PlainArray.
func (b *PlainBuilder) NewArray() *PlainArray {
	s := b.sb.NewStructArray()
	return &PlainArray{inner: s}
}

// DecodeTerm reads the row-th value out of arr, returning a type error
// result for malformed term_type tags (never for null rows: those simply
// report !ok).
func DecodeTerm(arr *PlainArray, row int) (term rdffusion.Term, ok bool, typeErr bool) {
	s := arr.inner
	if s.IsNull(row) {
		return nil, false, false
	}
	typeCol := s.Field(0).(*array.Uint8)
	valueCol := s.Field(1).(*array.String)
	dtypeCol := s.Field(2).(*array.String)
	langCol := s.Field(3).(*array.String)

	switch TermType(typeCol.Value(row)) {
	case TermTypeNamedNode:
		return rdffusion.NamedNode{IRI: valueCol.Value(row)}, true, false
	case TermTypeBlankNode:
		return rdffusion.BlankNode{ID: valueCol.Value(row)}, true, false
	case TermTypeLiteral:
		lit := rdffusion.Literal{Lexical: valueCol.Value(row)}
		if !dtypeCol.IsNull(row) {
			lit.Datatype = dtypeCol.Value(row)
		} else {
			lit.Datatype = rdffusion.XSDString
		}
		if !langCol.IsNull(row) {
			lit.Language = langCol.Value(row)
			lit.Datatype = rdffusion.RDFLangString
		}
		return lit, true, false
	case TermTypeDefaultGraph:
		return rdffusion.DefaultGraph{}, true, false
	default:
		return nil, false, true
	}
}

// EncodePlainTerms builds a PlainArray from an iterator of decoded terms,
// implementing the "default encoder" contract of §4.1: Err(Expected)
// produces a null row, Err(Internal) aborts the batch.
func EncodePlainTerms(mem memory.Allocator, rows []ThinResult[rdffusion.Term]) (*PlainArray, error) {
	b := NewPlainBuilder(mem)
	for _, r := range rows {
		if r.Internal != nil {
			return nil, r.Internal
		}
		if !r.IsOk() {
			b.AppendNull()
			continue
		}
		b.AppendTerm(r.Value)
	}
	return b.NewArray(), nil
}

// DecodePlainTerms iterates every row of arr into a ThinResult slice
// (the default decoder), per §4.1.
func DecodePlainTerms(arr *PlainArray) []ThinResult[rdffusion.Term] {
	out := make([]ThinResult[rdffusion.Term], arr.Len())
	for i := range out {
		t, ok, isTypeErr := DecodeTerm(arr, i)
		switch {
		case isTypeErr:
			out[i] = Expected[rdffusion.Term]()
		case !ok:
			out[i] = Expected[rdffusion.Term]()
		default:
			out[i] = Ok(t)
		}
	}
	return out
}
