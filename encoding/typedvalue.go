package encoding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
)

// Family is the type-family discriminant of the TypedValue dense union.
// Families claim disjoint sets of datatypes; a literal whose lexical form
// does not validate, or whose datatype is unrecognized, falls into
// FamilyUnknownLiteral rather than erroring.
type Family int8

const (
	FamilyResources Family = iota
	FamilyBoolean
	FamilyNumeric
	FamilyString
	FamilyDateTime
	FamilyDuration
	FamilyUnknownLiteral
)

var familyFields = []arrow.Field{
	{Name: "resources", Type: arrow.StructOf(
		arrow.Field{Name: "is_blank", Type: arrow.FixedWidthTypes.Boolean},
		arrow.Field{Name: "value", Type: arrow.BinaryTypes.String},
	)},
	{Name: "boolean", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "numeric", Type: arrow.StructOf(
		arrow.Field{Name: "kind", Type: arrow.PrimitiveTypes.Uint8},
		arrow.Field{Name: "int_val", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "decimal_text", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "float_val", Type: arrow.PrimitiveTypes.Float64},
	)},
	{Name: "string", Type: arrow.StructOf(
		arrow.Field{Name: "value", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "language", Type: arrow.BinaryTypes.String, Nullable: true},
	)},
	{Name: "date_time", Type: arrow.StructOf(
		arrow.Field{Name: "kind", Type: arrow.PrimitiveTypes.Uint8},
		arrow.Field{Name: "lexical", Type: arrow.BinaryTypes.String},
	)},
	{Name: "duration", Type: arrow.StructOf(
		arrow.Field{Name: "kind", Type: arrow.PrimitiveTypes.Uint8},
		arrow.Field{Name: "months", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "seconds", Type: arrow.PrimitiveTypes.Float64},
	)},
	{Name: "unknown_literal", Type: arrow.StructOf(
		arrow.Field{Name: "value", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "datatype", Type: arrow.BinaryTypes.String},
	)},
}

var familyTypeCodes = []arrow.UnionTypeCode{0, 1, 2, 3, 4, 5, 6}

// TypedValueType is the dense-union Arrow data type for the TypedValue
// encoding: one arm per type family, keyed by family-id. Nullness is
// carried only on the union's top-level null buffer.
var TypedValueType = arrow.DenseUnionOf(familyFields, familyTypeCodes)

// TypedValue is the TermEncoding implementation preserving value identity
// for recognized datatypes.
type TypedValue struct{}

func (TypedValue) Encoding() Encoding       { return EncodingTypedValue }
func (TypedValue) DataType() arrow.DataType { return TypedValueType }

// Value is the decoded sum type carried by one TypedValue row.
type Value interface {
	Family() Family
}

type ResourceValue struct {
	IsBlank bool
	Value   string
}

func (ResourceValue) Family() Family { return FamilyResources }

type BooleanValue bool

func (BooleanValue) Family() Family { return FamilyBoolean }

// NumericValue carries one rung of the numeric ladder. Only the field
// matching Kind is meaningful: IntVal for Int/Integer, DecimalText for
// Decimal (kept lexical to avoid lossy float round-tripping), FloatVal
// for Float/Double.
type NumericValue struct {
	Kind        rdffusion.NumericKind
	IntVal      int64
	DecimalText string
	FloatVal    float64
}

func (NumericValue) Family() Family { return FamilyNumeric }

type StringValue struct {
	Value       string
	Language    string
	HasLanguage bool
}

func (StringValue) Family() Family { return FamilyString }

type DateTimeKind uint8

const (
	DateTimeKindDateTime DateTimeKind = iota
	DateTimeKindDate
	DateTimeKindTime
)

type DateTimeValue struct {
	Kind    DateTimeKind
	Lexical string
	Time    time.Time
}

func (DateTimeValue) Family() Family { return FamilyDateTime }

type DurationKind uint8

const (
	DurationKindDuration DurationKind = iota
	DurationKindYearMonth
	DurationKindDayTime
)

// DurationValue splits a duration into its month and seconds components,
// per the xsd duration data model (the two are independent, unordered).
type DurationValue struct {
	Kind    DurationKind
	Months  int64
	Seconds float64
}

func (DurationValue) Family() Family { return FamilyDuration }

// UnknownLiteralValue is the fallback arm for literals whose lexical form
// fails validation, or whose datatype is not recognized.
type UnknownLiteralValue struct {
	Value    string
	Datatype string
}

func (UnknownLiteralValue) Family() Family { return FamilyUnknownLiteral }

// ParseLiteral parses a PlainTerm literal into its typed-value family,
// falling back to UnknownLiteralValue rather than erroring — matching the
// "PlainTerm -> TypedValue: never null" transcoder contract.
func ParseLiteral(lit rdffusion.Literal) Value {
	if lit.Language != "" || lit.Datatype == rdffusion.RDFLangString {
		return StringValue{Value: lit.Lexical, Language: lit.Language, HasLanguage: lit.Language != ""}
	}
	switch lit.Datatype {
	case rdffusion.XSDString, "":
		return StringValue{Value: lit.Lexical}
	case rdffusion.XSDBoolean:
		switch lit.Lexical {
		case "true", "1":
			return BooleanValue(true)
		case "false", "0":
			return BooleanValue(false)
		}
	case rdffusion.XSDInt:
		if v, err := strconv.ParseInt(strings.TrimSpace(lit.Lexical), 10, 32); err == nil {
			return NumericValue{Kind: rdffusion.NumericInt, IntVal: v}
		}
	case rdffusion.XSDInteger:
		if v, err := strconv.ParseInt(strings.TrimSpace(lit.Lexical), 10, 64); err == nil {
			return NumericValue{Kind: rdffusion.NumericInteger, IntVal: v}
		}
	case rdffusion.XSDDecimal:
		if isValidDecimalLexical(lit.Lexical) {
			return NumericValue{Kind: rdffusion.NumericDecimal, DecimalText: lit.Lexical}
		}
	case rdffusion.XSDFloat:
		if v, err := strconv.ParseFloat(strings.TrimSpace(lit.Lexical), 32); err == nil {
			return NumericValue{Kind: rdffusion.NumericFloat, FloatVal: v}
		}
	case rdffusion.XSDDouble:
		if v, err := strconv.ParseFloat(strings.TrimSpace(lit.Lexical), 64); err == nil {
			return NumericValue{Kind: rdffusion.NumericDouble, FloatVal: v}
		}
	case rdffusion.XSDDateTime:
		if t, err := time.Parse(time.RFC3339Nano, lit.Lexical); err == nil {
			return DateTimeValue{Kind: DateTimeKindDateTime, Lexical: lit.Lexical, Time: t}
		}
	case rdffusion.XSDDate:
		if t, err := time.Parse("2006-01-02", lit.Lexical); err == nil {
			return DateTimeValue{Kind: DateTimeKindDate, Lexical: lit.Lexical, Time: t}
		}
	case rdffusion.XSDTime:
		if t, err := time.Parse("15:04:05.999999999", lit.Lexical); err == nil {
			return DateTimeValue{Kind: DateTimeKindTime, Lexical: lit.Lexical, Time: t}
		}
	case rdffusion.XSDDuration:
		if months, secs, err := parseISODuration(lit.Lexical); err == nil {
			return DurationValue{Kind: DurationKindDuration, Months: months, Seconds: secs}
		}
	case rdffusion.XSDYearMonthDuration:
		if months, _, err := parseISODuration(lit.Lexical); err == nil {
			return DurationValue{Kind: DurationKindYearMonth, Months: months}
		}
	case rdffusion.XSDDayTimeDuration:
		if _, secs, err := parseISODuration(lit.Lexical); err == nil {
			return DurationValue{Kind: DurationKindDayTime, Seconds: secs}
		}
	}
	return UnknownLiteralValue{Value: lit.Lexical, Datatype: lit.Datatype}
}

// FormatValue formats a typed value back to its canonical PlainTerm
// literal. UnknownLiteralValue round-trips unchanged.
func FormatValue(v Value) rdffusion.Literal {
	switch val := v.(type) {
	case StringValue:
		if val.HasLanguage {
			return rdffusion.Literal{Lexical: val.Value, Datatype: rdffusion.RDFLangString, Language: val.Language}
		}
		return rdffusion.Literal{Lexical: val.Value, Datatype: rdffusion.XSDString}
	case BooleanValue:
		if val {
			return rdffusion.Literal{Lexical: "true", Datatype: rdffusion.XSDBoolean}
		}
		return rdffusion.Literal{Lexical: "false", Datatype: rdffusion.XSDBoolean}
	case NumericValue:
		return formatNumeric(val)
	case DateTimeValue:
		return rdffusion.Literal{Lexical: val.Lexical, Datatype: dateTimeDatatype(val.Kind)}
	case DurationValue:
		return rdffusion.Literal{Lexical: formatISODuration(val), Datatype: durationDatatype(val.Kind)}
	case UnknownLiteralValue:
		return rdffusion.Literal{Lexical: val.Value, Datatype: val.Datatype}
	default:
		return rdffusion.Literal{Lexical: fmt.Sprintf("%v", v), Datatype: rdffusion.XSDString}
	}
}

func formatNumeric(v NumericValue) rdffusion.Literal {
	switch v.Kind {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return rdffusion.Literal{Lexical: strconv.FormatInt(v.IntVal, 10), Datatype: rdffusion.NumericDatatypeIRI(v.Kind)}
	case rdffusion.NumericDecimal:
		return rdffusion.Literal{Lexical: v.DecimalText, Datatype: rdffusion.XSDDecimal}
	case rdffusion.NumericFloat:
		return rdffusion.Literal{Lexical: strconv.FormatFloat(v.FloatVal, 'g', -1, 32), Datatype: rdffusion.XSDFloat}
	default:
		return rdffusion.Literal{Lexical: strconv.FormatFloat(v.FloatVal, 'g', -1, 64), Datatype: rdffusion.XSDDouble}
	}
}

func dateTimeDatatype(k DateTimeKind) string {
	switch k {
	case DateTimeKindDate:
		return rdffusion.XSDDate
	case DateTimeKindTime:
		return rdffusion.XSDTime
	default:
		return rdffusion.XSDDateTime
	}
}

func durationDatatype(k DurationKind) string {
	switch k {
	case DurationKindYearMonth:
		return rdffusion.XSDYearMonthDuration
	case DurationKindDayTime:
		return rdffusion.XSDDayTimeDuration
	default:
		return rdffusion.XSDDuration
	}
}

func isValidDecimalLexical(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// parseISODuration parses a restricted xsd:duration lexical
// (PnYnMnDTnHnMnS) into whole months and fractional seconds.
func parseISODuration(s string) (months int64, seconds float64, err error) {
	orig := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, 0, fmt.Errorf("encoding: invalid duration %q", orig)
	}
	s = s[1:]
	datePart, timePart, hasTime := strings.Cut(s, "T")
	var years, monthsPart, days, hours, mins int64
	var secs float64
	if err := scanDurationUnits(datePart, map[byte]*int64{'Y': &years, 'M': &monthsPart, 'D': &days}); err != nil {
		return 0, 0, err
	}
	if hasTime {
		secParsed, rest := extractFloatUnit(timePart, 'S')
		if err := scanDurationUnits(rest, map[byte]*int64{'H': &hours, 'M': &mins}); err != nil {
			return 0, 0, err
		}
		secs = secParsed
	}
	months = years*12 + monthsPart
	seconds = float64(days)*86400 + float64(hours)*3600 + float64(mins)*60 + secs
	if neg {
		months, seconds = -months, -seconds
	}
	return months, seconds, nil
}

func scanDurationUnits(s string, dest map[byte]*int64) error {
	for len(s) > 0 {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '-') {
			i++
		}
		if i == 0 || i >= len(s) {
			return fmt.Errorf("encoding: invalid duration segment %q", s)
		}
		n, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil {
			return err
		}
		unit := s[i]
		if p, ok := dest[unit]; ok {
			*p = n
		}
		s = s[i+1:]
	}
	return nil
}

func extractFloatUnit(s string, unit byte) (float64, string) {
	idx := strings.IndexByte(s, unit)
	if idx < 0 {
		return 0, s
	}
	j := idx
	for j > 0 && (s[j-1] >= '0' && s[j-1] <= '9' || s[j-1] == '.' || s[j-1] == '-') {
		j--
	}
	v, _ := strconv.ParseFloat(s[j:idx], 64)
	return v, s[:j] + s[idx+1:]
}

func formatISODuration(v DurationValue) string {
	neg := v.Months < 0 || v.Seconds < 0
	months, seconds := v.Months, v.Seconds
	if neg {
		months, seconds = -months, -seconds
	}
	years, mm := months/12, months%12
	days := int64(seconds) / 86400
	rem := seconds - float64(days)*86400
	hours := int64(rem) / 3600
	rem -= float64(hours) * 3600
	mins := int64(rem) / 60
	rem -= float64(mins) * 60

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if mm != 0 {
		fmt.Fprintf(&b, "%dM", mm)
	}
	if days != 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours != 0 || mins != 0 || rem != 0 {
		b.WriteByte('T')
		if hours != 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if mins != 0 {
			fmt.Fprintf(&b, "%dM", mins)
		}
		if rem != 0 {
			fmt.Fprintf(&b, "%gS", rem)
		}
	}
	if b.Len() == 1 || (neg && b.Len() == 2) {
		b.WriteString("0D")
	}
	return b.String()
}

// TypedArray wraps an arrow.Array validated against TypedValueType.
type TypedArray struct {
	inner *array.DenseUnion
}

func NewTypedArray(arr arrow.Array) (*TypedArray, error) {
	u, ok := arr.(*array.DenseUnion)
	if !ok || !arrow.TypeEqual(arr.DataType(), TypedValueType) {
		return nil, fmt.Errorf("encoding: array does not satisfy TypedValue data type")
	}
	return &TypedArray{inner: u}, nil
}

func (t *TypedArray) Array() arrow.Array { return t.inner }
func (t *TypedArray) Len() int           { return t.inner.Len() }

// TypedBuilder incrementally constructs a TypedArray.
type TypedBuilder struct {
	mem     memory.Allocator
	builder *array.DenseUnionBuilder
}

func NewTypedBuilder(mem memory.Allocator) *TypedBuilder {
	b := array.NewBuilder(mem, TypedValueType).(*array.DenseUnionBuilder)
	return &TypedBuilder{mem: mem, builder: b}
}

func (b *TypedBuilder) AppendNull() {
	b.builder.AppendNull()
}

// AppendValue appends one decoded Value, routing it into its family arm.
func (b *TypedBuilder) AppendValue(v Value) {
	code := arrow.UnionTypeCode(v.Family())
	b.builder.Append(code)
	child := b.builder.Child(int(code))
	switch val := v.(type) {
	case ResourceValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.BooleanBuilder).Append(val.IsBlank)
		sb.FieldBuilder(1).(*array.StringBuilder).Append(val.Value)
	case BooleanValue:
		child.(*array.BooleanBuilder).Append(bool(val))
	case NumericValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.Uint8Builder).Append(uint8(val.Kind))
		sb.FieldBuilder(1).(*array.Int64Builder).Append(val.IntVal)
		if val.DecimalText != "" {
			sb.FieldBuilder(2).(*array.StringBuilder).Append(val.DecimalText)
		} else {
			sb.FieldBuilder(2).(*array.StringBuilder).AppendNull()
		}
		sb.FieldBuilder(3).(*array.Float64Builder).Append(val.FloatVal)
	case StringValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.StringBuilder).Append(val.Value)
		if val.HasLanguage {
			sb.FieldBuilder(1).(*array.StringBuilder).Append(val.Language)
		} else {
			sb.FieldBuilder(1).(*array.StringBuilder).AppendNull()
		}
	case DateTimeValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.Uint8Builder).Append(uint8(val.Kind))
		sb.FieldBuilder(1).(*array.StringBuilder).Append(val.Lexical)
	case DurationValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.Uint8Builder).Append(uint8(val.Kind))
		sb.FieldBuilder(1).(*array.Int64Builder).Append(val.Months)
		sb.FieldBuilder(2).(*array.Float64Builder).Append(val.Seconds)
	case UnknownLiteralValue:
		sb := child.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.StringBuilder).Append(val.Value)
		sb.FieldBuilder(1).(*array.StringBuilder).Append(val.Datatype)
	}
}

func (b *TypedBuilder) NewArray() *TypedArray {
	return &TypedArray{inner: b.builder.NewDenseUnionArray()}
}

// DecodeValue reads the row-th value out of arr.
func DecodeValue(arr *TypedArray, row int) (Value, bool) {
	u := arr.inner
	if u.IsNull(row) {
		return nil, false
	}
	code := u.TypeCode(row)
	offset := int(u.ValueOffset(row))
	child := u.Field(u.ChildID(row))

	switch Family(code) {
	case FamilyResources:
		s := child.(*array.Struct)
		return ResourceValue{
			IsBlank: s.Field(0).(*array.Boolean).Value(offset),
			Value:   s.Field(1).(*array.String).Value(offset),
		}, true
	case FamilyBoolean:
		return BooleanValue(child.(*array.Boolean).Value(offset)), true
	case FamilyNumeric:
		s := child.(*array.Struct)
		dtxt := ""
		dc := s.Field(2).(*array.String)
		if !dc.IsNull(offset) {
			dtxt = dc.Value(offset)
		}
		return NumericValue{
			Kind:        rdffusion.NumericKind(s.Field(0).(*array.Uint8).Value(offset)),
			IntVal:      s.Field(1).(*array.Int64).Value(offset),
			DecimalText: dtxt,
			FloatVal:    s.Field(3).(*array.Float64).Value(offset),
		}, true
	case FamilyString:
		s := child.(*array.Struct)
		lc := s.Field(1).(*array.String)
		sv := StringValue{Value: s.Field(0).(*array.String).Value(offset)}
		if !lc.IsNull(offset) {
			sv.Language, sv.HasLanguage = lc.Value(offset), true
		}
		return sv, true
	case FamilyDateTime:
		s := child.(*array.Struct)
		return DateTimeValue{
			Kind:    DateTimeKind(s.Field(0).(*array.Uint8).Value(offset)),
			Lexical: s.Field(1).(*array.String).Value(offset),
		}, true
	case FamilyDuration:
		s := child.(*array.Struct)
		return DurationValue{
			Kind:    DurationKind(s.Field(0).(*array.Uint8).Value(offset)),
			Months:  s.Field(1).(*array.Int64).Value(offset),
			Seconds: s.Field(2).(*array.Float64).Value(offset),
		}, true
	case FamilyUnknownLiteral:
		s := child.(*array.Struct)
		return UnknownLiteralValue{
			Value:    s.Field(0).(*array.String).Value(offset),
			Datatype: s.Field(1).(*array.String).Value(offset),
		}, true
	default:
		return nil, false
	}
}
