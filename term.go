// Package rdffusion implements the bridge between the RDF/SPARQL data
// model and a columnar, Arrow-backed relational execution engine: term
// encodings, vectorized function dispatch, logical plan algebra and an
// in-memory quad store.
package rdffusion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rdf-fusion/rdffusion-go/internal"
)

// Term is the closed set of RDF term kinds: NamedNode, BlankNode, Literal,
// plus the DefaultGraph graph-name sentinel.
type Term interface {
	fmt.Stringer
	isTerm()
}

// NamedNode is an IRI.
type NamedNode struct {
	IRI string
}

func (NamedNode) isTerm() {}

func (n NamedNode) String() string {
	return "<" + n.IRI + ">"
}

// BlankNode is a dataset-local identifier. Equality is by identity within a
// dataset, never across datasets.
type BlankNode struct {
	ID string
}

func (BlankNode) isTerm() {}

func (b BlankNode) String() string {
	return "_:" + b.ID
}

// NewBlankNode allocates a fresh blank node with a base32-encoded UUIDv4
// local identifier, following the teacher's UUID-to-base32 identifier
// convention (internal/base32.go).
func NewBlankNode() BlankNode {
	return BlankNode{ID: internal.EncodeUUIDToBase32(uuid.New())}
}

// Literal is (lexical form, datatype IRI, optional language tag). Language
// tags are only valid for datatype rdf:langString.
type Literal struct {
	Lexical  string
	Datatype string
	Language string
}

func (Literal) isTerm() {}

func (l Literal) String() string {
	if l.Language != "" {
		return fmt.Sprintf("%q@%s", l.Lexical, l.Language)
	}
	if l.Datatype != "" && l.Datatype != XSDString {
		return fmt.Sprintf("%q^^<%s>", l.Lexical, l.Datatype)
	}
	return fmt.Sprintf("%q", l.Lexical)
}

// IsLangString reports whether the literal carries a language tag.
func (l Literal) IsLangString() bool {
	return l.Language != "" || l.Datatype == RDFLangString
}

// Well-known datatype and graph-name IRIs used throughout the module.
const (
	RDFLangString        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	XSDString            = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean           = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger           = "http://www.w3.org/2001/XMLSchema#integer"
	XSDInt               = "http://www.w3.org/2001/XMLSchema#int"
	XSDDecimal           = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDFloat             = "http://www.w3.org/2001/XMLSchema#float"
	XSDDouble            = "http://www.w3.org/2001/XMLSchema#double"
	XSDDateTime          = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDDate              = "http://www.w3.org/2001/XMLSchema#date"
	XSDTime              = "http://www.w3.org/2001/XMLSchema#time"
	XSDDuration          = "http://www.w3.org/2001/XMLSchema#duration"
	XSDYearMonthDuration = "http://www.w3.org/2001/XMLSchema#yearMonthDuration"
	XSDDayTimeDuration   = "http://www.w3.org/2001/XMLSchema#dayTimeDuration"
)

// GraphName is a term restricted to NamedNode, BlankNode, or the
// DefaultGraph sentinel.
type GraphName interface {
	Term
	isGraphName()
}

func (NamedNode) isGraphName() {}
func (BlankNode) isGraphName() {}

// DefaultGraph is the sentinel graph-name term denoting the unnamed graph.
type DefaultGraph struct{}

func (DefaultGraph) isTerm()      {}
func (DefaultGraph) isGraphName() {}
func (DefaultGraph) String() string {
	return "DEFAULT"
}

// Triple is (subject, predicate, object). Subject must be a NamedNode or
// BlankNode; predicate must be a NamedNode; object may be any term.
type Triple struct {
	Subject   Term
	Predicate NamedNode
	Object    Term
}

// Quad is a Triple plus a graph name.
type Quad struct {
	Triple
	Graph GraphName
}

// NewQuad builds a Quad, defaulting Graph to DefaultGraph when nil.
func NewQuad(s Term, p NamedNode, o Term, g GraphName) Quad {
	if g == nil {
		g = DefaultGraph{}
	}
	return Quad{Triple: Triple{Subject: s, Predicate: p, Object: o}, Graph: g}
}
