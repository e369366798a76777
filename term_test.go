package rdffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedNodeString(t *testing.T) {
	n := NamedNode{IRI: "http://example.org/a"}
	assert.Equal(t, "<http://example.org/a>", n.String())
}

func TestLiteralString(t *testing.T) {
	assert.Equal(t, `"x"@en`, Literal{Lexical: "x", Datatype: RDFLangString, Language: "en"}.String())
	assert.Equal(t, `"5"^^<http://www.w3.org/2001/XMLSchema#integer>`, Literal{Lexical: "5", Datatype: XSDInteger}.String())
	assert.Equal(t, `"plain"`, Literal{Lexical: "plain", Datatype: XSDString}.String())
}

func TestLiteralIsLangString(t *testing.T) {
	assert.True(t, Literal{Lexical: "x", Language: "en"}.IsLangString())
	assert.False(t, Literal{Lexical: "x", Datatype: XSDString}.IsLangString())
}

func TestNewBlankNodeUnique(t *testing.T) {
	a := NewBlankNode()
	b := NewBlankNode()
	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewQuadDefaultsGraph(t *testing.T) {
	q := NewQuad(NamedNode{IRI: "a"}, NamedNode{IRI: "p"}, NamedNode{IRI: "b"}, nil)
	assert.Equal(t, DefaultGraph{}, q.Graph)
}
