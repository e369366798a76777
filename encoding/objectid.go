package encoding

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultGraphID is the sentinel ObjectId reserved for the default graph;
// no other term dictionary-encodes to it.
const DefaultGraphID uint64 = 0

// ObjectIdType is the Arrow data type backing the ObjectId encoding: a
// dense dictionary surrogate used inside the quad store's index storage.
var ObjectIdType arrow.DataType = arrow.PrimitiveTypes.Uint64

// ObjectID is the TermEncoding implementation for dictionary-encoded
// storage. It carries no value identity of its own; a separate mapping
// (package objectid) resolves ids to and from PlainTerm.
type ObjectID struct{}

func (ObjectID) Encoding() Encoding       { return EncodingObjectID }
func (ObjectID) DataType() arrow.DataType { return ObjectIdType }

// ObjectIdArray wraps a uint64 Arrow array of surrogate ids.
type ObjectIdArray struct {
	inner *array.Uint64
}

func NewObjectIdArray(arr arrow.Array) (*ObjectIdArray, error) {
	u, ok := arr.(*array.Uint64)
	if !ok {
		return nil, fmt.Errorf("encoding: array does not satisfy ObjectId data type")
	}
	return &ObjectIdArray{inner: u}, nil
}

func (a *ObjectIdArray) Array() arrow.Array { return a.inner }
func (a *ObjectIdArray) Len() int           { return a.inner.Len() }

// ObjectIdBuilder incrementally constructs an ObjectIdArray.
type ObjectIdBuilder struct {
	b *array.Uint64Builder
}

func NewObjectIdBuilder(mem memory.Allocator) *ObjectIdBuilder {
	return &ObjectIdBuilder{b: array.NewUint64Builder(mem)}
}

func (b *ObjectIdBuilder) Append(id uint64)        { b.b.Append(id) }
func (b *ObjectIdBuilder) AppendNull()              { b.b.AppendNull() }
func (b *ObjectIdBuilder) NewArray() *ObjectIdArray { return &ObjectIdArray{inner: b.b.NewUint64Array()} }

// DecodeObjectId reads the row-th id. The second return is false for a
// null (unbound) row.
func DecodeObjectId(arr *ObjectIdArray, row int) (uint64, bool) {
	if arr.inner.IsNull(row) {
		return 0, false
	}
	return arr.inner.Value(row), true
}
