package encoding

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
)

func TestPlainTermRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	rows := []ThinResult[rdffusion.Term]{
		Ok[rdffusion.Term](rdffusion.NamedNode{IRI: "http://example.org/a"}),
		Ok[rdffusion.Term](rdffusion.BlankNode{ID: "b1"}),
		Ok[rdffusion.Term](rdffusion.Literal{Lexical: "5", Datatype: rdffusion.XSDInteger}),
		Ok[rdffusion.Term](rdffusion.Literal{Lexical: "hi", Language: "en"}),
		Expected[rdffusion.Term](),
	}
	arr, err := EncodePlainTerms(mem, rows)
	require.NoError(t, err)
	require.Equal(t, 5, arr.Len())

	decoded := DecodePlainTerms(arr)
	require.Len(t, decoded, 5)
	assert.Equal(t, rdffusion.NamedNode{IRI: "http://example.org/a"}, decoded[0].Value)
	assert.Equal(t, rdffusion.BlankNode{ID: "b1"}, decoded[1].Value)
	assert.Equal(t, "5", decoded[2].Value.(rdffusion.Literal).Lexical)
	assert.False(t, decoded[4].IsOk())
}

func TestPlainTermInternalErrorAbortsBatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	boom := assert.AnError
	rows := []ThinResult[rdffusion.Term]{
		Ok[rdffusion.Term](rdffusion.NamedNode{IRI: "a"}),
		Internal[rdffusion.Term](boom),
	}
	_, err := EncodePlainTerms(mem, rows)
	assert.ErrorIs(t, err, boom)
}
