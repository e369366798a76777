package objectid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
)

func TestInsertIsIdempotent(t *testing.T) {
	m := NewMemoryMapping()
	a := rdffusion.NamedNode{IRI: "http://example.org/a"}
	id1, err := m.Insert(a)
	require.NoError(t, err)
	id2, err := m.Insert(a)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, m.Len())
}

func TestDefaultGraphSentinel(t *testing.T) {
	m := NewMemoryMapping()
	id, err := m.Insert(rdffusion.DefaultGraph{})
	require.NoError(t, err)
	assert.Equal(t, encoding.DefaultGraphID, id)
	assert.Equal(t, 0, m.Len())
}

func TestEncodeTermMissReportsNotFound(t *testing.T) {
	m := NewMemoryMapping()
	_, ok, err := m.EncodeTerm(rdffusion.NamedNode{IRI: "http://example.org/unseen"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeIDRoundTrip(t *testing.T) {
	m := NewMemoryMapping()
	a := rdffusion.NamedNode{IRI: "http://example.org/a"}
	id, err := m.Insert(a)
	require.NoError(t, err)
	back, ok, err := m.DecodeID(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, back)
}

func TestDistinctTermsGetDistinctIDs(t *testing.T) {
	m := NewMemoryMapping()
	a, err := m.Insert(rdffusion.NamedNode{IRI: "http://example.org/a"})
	require.NoError(t, err)
	b, err := m.Insert(rdffusion.NamedNode{IRI: "http://example.org/b"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
