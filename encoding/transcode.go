package encoding

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rdf-fusion/rdffusion-go"
)

// IdLookup resolves ObjectId surrogates to and from PlainTerm. The quad
// store's dictionary (package objectid) is the production implementation;
// this package only depends on the interface, avoiding an import cycle.
type IdLookup interface {
	// EncodeTerm returns the surrogate id for t, or found=false if t is
	// not present in the dictionary (callers typically treat that as "no
	// match" rather than inserting on the fly).
	EncodeTerm(t rdffusion.Term) (id uint64, found bool, err error)
	// DecodeID resolves a surrogate id back to its term.
	DecodeID(id uint64) (t rdffusion.Term, found bool, err error)
}

// TranscodePlainToTyped implements the PlainTerm -> TypedValue transcoder:
// parse literal lexicals per datatype; on parse failure, produce
// OtherLiteral. Never produces a null row for a non-null input.
func TranscodePlainToTyped(mem memory.Allocator, src *PlainArray) *TypedArray {
	b := NewTypedBuilder(mem)
	for i := 0; i < src.Len(); i++ {
		term, ok, _ := DecodeTerm(src, i)
		if !ok {
			b.AppendNull()
			continue
		}
		switch v := term.(type) {
		case rdffusion.NamedNode:
			b.AppendValue(ResourceValue{Value: v.IRI})
		case rdffusion.BlankNode:
			b.AppendValue(ResourceValue{IsBlank: true, Value: v.ID})
		case rdffusion.Literal:
			b.AppendValue(ParseLiteral(v))
		default:
			b.AppendNull()
		}
	}
	return b.NewArray()
}

// TranscodeTypedToPlain implements the TypedValue -> PlainTerm transcoder:
// format each value to its canonical lexical form, preserving language
// tags; OtherLiteral passes through unchanged.
func TranscodeTypedToPlain(mem memory.Allocator, src *TypedArray) *PlainArray {
	b := NewPlainBuilder(mem)
	for i := 0; i < src.Len(); i++ {
		v, ok := DecodeValue(src, i)
		if !ok {
			b.AppendNull()
			continue
		}
		switch val := v.(type) {
		case ResourceValue:
			if val.IsBlank {
				b.AppendTerm(rdffusion.BlankNode{ID: val.Value})
			} else {
				b.AppendTerm(rdffusion.NamedNode{IRI: val.Value})
			}
		default:
			b.AppendTerm(FormatValue(v))
		}
	}
	return b.NewArray()
}

// TranscodePlainToSortable implements the Any -> Sortable transcoder over
// a PlainTerm source column.
func TranscodePlainToSortable(mem memory.Allocator, src *PlainArray) *SortableArray {
	b := NewSortableBuilder(mem)
	for i := 0; i < src.Len(); i++ {
		term, ok, _ := DecodeTerm(src, i)
		if !ok {
			b.Append(SortableRow{Tag: SortableTagNull})
			continue
		}
		b.Append(ToSortable(term))
	}
	return b.NewArray()
}

// TranscodeObjectIdToPlain implements the ObjectId -> PlainTerm
// transcoder: a dictionary lookup per row. A lookup miss is an internal
// (storage-consistency) error, not a per-row SPARQL type error — the
// dictionary is expected to be complete for any id the store produced.
func TranscodeObjectIdToPlain(mem memory.Allocator, src *ObjectIdArray, lookup IdLookup) (*PlainArray, error) {
	b := NewPlainBuilder(mem)
	for i := 0; i < src.Len(); i++ {
		id, ok := DecodeObjectId(src, i)
		if !ok {
			b.AppendNull()
			continue
		}
		if id == DefaultGraphID {
			b.AppendTerm(rdffusion.DefaultGraph{})
			continue
		}
		term, found, err := lookup.DecodeID(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, rdffusion.NewInternalError("OBJECT_ID_UNRESOLVED", "object id has no dictionary entry", nil)
		}
		b.AppendTerm(term)
	}
	return b.NewArray(), nil
}

// TranscodePlainToObjectId implements the PlainTerm -> ObjectId
// transcoder. A dictionary miss produces a null row (the term is simply
// absent from the store, e.g. a pattern's bound value never inserted) —
// it is never an error.
func TranscodePlainToObjectId(mem memory.Allocator, src *PlainArray, lookup IdLookup) (*ObjectIdArray, error) {
	b := NewObjectIdBuilder(mem)
	for i := 0; i < src.Len(); i++ {
		term, ok, _ := DecodeTerm(src, i)
		if !ok {
			b.AppendNull()
			continue
		}
		if _, isDefault := term.(rdffusion.DefaultGraph); isDefault {
			b.Append(DefaultGraphID)
			continue
		}
		id, found, err := lookup.EncodeTerm(term)
		if err != nil {
			return nil, err
		}
		if !found {
			b.AppendNull()
			continue
		}
		b.Append(id)
	}
	return b.NewArray(), nil
}
