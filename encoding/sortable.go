package encoding

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
)

// SortableTag is the total-order rung a term occupies in the Sortable
// encoding, per the ORDER BY tag ordering.
type SortableTag uint8

const (
	SortableTagNull SortableTag = iota
	SortableTagBlankNode
	SortableTagNamedNode
	SortableTagBoolean
	SortableTagNumeric
	SortableTagString
	SortableTagDateTime
	SortableTagTime
	SortableTagDate
	SortableTagDuration
	SortableTagYearMonthDuration
	SortableTagDayTimeDuration
	SortableTagUnknownLiteral
)

// SortableType is the Arrow data type backing the Sortable encoding: a
// (type_tag, numeric?, bytes) triple. Numeric is null for non-Numeric
// rows; bytes carries the secondary, lexicographic ordering key.
var SortableType = arrow.StructOf(
	arrow.Field{Name: "type_tag", Type: arrow.PrimitiveTypes.Uint8},
	arrow.Field{Name: "numeric", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	arrow.Field{Name: "bytes", Type: arrow.BinaryTypes.Binary},
)

// Sortable is the TermEncoding implementation with a total order over
// terms, unlike the partial order used by the `<`/`<=`/`>`/`>=`
// comparison operators. TranscodePlainToSortable produces it; ORDER BY in
// internal/exec does not use it (rows are ordered with compareValues
// there), and no aggregate uses it.
type Sortable struct{}

func (Sortable) Encoding() Encoding       { return EncodingSortable }
func (Sortable) DataType() arrow.DataType { return SortableType }

// SortableRow is one decoded Sortable key.
type SortableRow struct {
	Tag     SortableTag
	Numeric float64
	HasNum  bool
	Bytes   []byte
}

// CompareSortable implements the Sortable encoding's total order: primary
// key is the tag, secondary is the numeric value (Numeric rows) or the
// byte string (everything else).
func CompareSortable(a, b SortableRow) int {
	if a.Tag != b.Tag {
		if a.Tag < b.Tag {
			return -1
		}
		return 1
	}
	if a.Tag == SortableTagNumeric {
		switch {
		case a.Numeric < b.Numeric:
			return -1
		case a.Numeric > b.Numeric:
			return 1
		default:
			return 0
		}
	}
	return bytes.Compare(a.Bytes, b.Bytes)
}

// ToSortable maps a decoded term to its Sortable key. Terms are nil for
// unbound rows, mapping to SortableTagNull.
func ToSortable(t rdffusion.Term) SortableRow {
	switch v := t.(type) {
	case nil:
		return SortableRow{Tag: SortableTagNull}
	case rdffusion.BlankNode:
		return SortableRow{Tag: SortableTagBlankNode, Bytes: []byte(v.ID)}
	case rdffusion.NamedNode:
		return SortableRow{Tag: SortableTagNamedNode, Bytes: []byte(v.IRI)}
	case rdffusion.Literal:
		return sortableLiteral(v)
	default:
		return SortableRow{Tag: SortableTagUnknownLiteral, Bytes: []byte(fmt.Sprintf("%v", t))}
	}
}

func sortableLiteral(lit rdffusion.Literal) SortableRow {
	value := ParseLiteral(lit)
	switch v := value.(type) {
	case BooleanValue:
		b := byte(0)
		if v {
			b = 1
		}
		return SortableRow{Tag: SortableTagBoolean, Bytes: []byte{b}}
	case NumericValue:
		return SortableRow{Tag: SortableTagNumeric, Numeric: numericAsFloat(v), HasNum: true}
	case StringValue:
		key := v.Value
		if v.HasLanguage {
			key = v.Language + "\x00" + v.Value
		}
		return SortableRow{Tag: SortableTagString, Bytes: []byte(key)}
	case DateTimeValue:
		tag := SortableTagDateTime
		switch v.Kind {
		case DateTimeKindTime:
			tag = SortableTagTime
		case DateTimeKindDate:
			tag = SortableTagDate
		}
		return SortableRow{Tag: tag, Bytes: []byte(v.Lexical)}
	case DurationValue:
		tag := SortableTagDuration
		switch v.Kind {
		case DurationKindYearMonth:
			tag = SortableTagYearMonthDuration
		case DurationKindDayTime:
			tag = SortableTagDayTimeDuration
		}
		return SortableRow{Tag: tag, Bytes: []byte(formatISODuration(v))}
	default:
		return SortableRow{Tag: SortableTagUnknownLiteral, Bytes: []byte(lit.Datatype + "\x00" + lit.Lexical)}
	}
}

func numericAsFloat(v NumericValue) float64 {
	switch v.Kind {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return float64(v.IntVal)
	case rdffusion.NumericDecimal:
		f, _ := parseDecimalAsFloat(v.DecimalText)
		return f
	default:
		return v.FloatVal
	}
}

func parseDecimalAsFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

// SortableArray wraps an arrow.Array validated against SortableType.
type SortableArray struct {
	inner *array.Struct
}

func NewSortableArray(arr arrow.Array) (*SortableArray, error) {
	s, ok := arr.(*array.Struct)
	if !ok || !arrow.TypeEqual(arr.DataType(), SortableType) {
		return nil, fmt.Errorf("encoding: array does not satisfy Sortable data type")
	}
	return &SortableArray{inner: s}, nil
}

func (s *SortableArray) Array() arrow.Array { return s.inner }
func (s *SortableArray) Len() int           { return s.inner.Len() }

type SortableBuilder struct {
	sb     *array.StructBuilder
	tagB   *array.Uint8Builder
	numB   *array.Float64Builder
	bytesB *array.BinaryBuilder
}

func NewSortableBuilder(mem memory.Allocator) *SortableBuilder {
	sb := array.NewStructBuilder(mem, SortableType)
	return &SortableBuilder{
		sb:     sb,
		tagB:   sb.FieldBuilder(0).(*array.Uint8Builder),
		numB:   sb.FieldBuilder(1).(*array.Float64Builder),
		bytesB: sb.FieldBuilder(2).(*array.BinaryBuilder),
	}
}

func (b *SortableBuilder) Append(row SortableRow) {
	b.sb.Append(true)
	b.tagB.Append(uint8(row.Tag))
	if row.HasNum {
		b.numB.Append(row.Numeric)
	} else {
		b.numB.AppendNull()
	}
	b.bytesB.Append(row.Bytes)
}

func (b *SortableBuilder) NewArray() *SortableArray {
	return &SortableArray{inner: b.sb.NewStructArray()}
}

func DecodeSortable(arr *SortableArray, row int) SortableRow {
	s := arr.inner
	out := SortableRow{Tag: SortableTag(s.Field(0).(*array.Uint8).Value(row))}
	numCol := s.Field(1).(*array.Float64)
	if !numCol.IsNull(row) {
		out.Numeric, out.HasNum = numCol.Value(row), true
	}
	out.Bytes = s.Field(2).(*array.Binary).Value(row)
	return out
}
