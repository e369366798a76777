// Package objectid implements the quad store's term dictionary: the
// bidirectional mapping between rdffusion.Term and the uint64 surrogate
// ids used by the ObjectId encoding inside storage indexes. It is the
// production implementation of encoding.IdLookup.
package objectid

import (
	"sync"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
)

// Mapping is the term dictionary contract: encode assigns (or reuses) a
// surrogate id for a term, decode resolves an id back to its term.
// Implementations must satisfy encoding.IdLookup.
type Mapping interface {
	encoding.IdLookup

	// Insert assigns a fresh id to t if absent and returns it; repeated
	// inserts of an equal term return the same id (idempotent).
	Insert(t rdffusion.Term) (id uint64, err error)
	// Len reports the number of distinct terms in the dictionary.
	Len() int
}

// memoryMapping is a single-writer/many-reader in-memory dictionary,
// grounded on the teacher's concurrency idiom for the relation index: a
// RWMutex guarding two maps kept as exact inverses of each other.
type memoryMapping struct {
	mu     sync.RWMutex
	byTerm map[termKey]uint64
	byID   map[uint64]rdffusion.Term
	next   uint64
}

// termKey is a comparable projection of rdffusion.Term suitable as a map
// key; Term's lexical String form is injective over the term grammar this
// engine supports (IRIs/blank ids/literal lexical+datatype+language never
// collide after quoting), so it doubles as an equality key.
type termKey string

func keyOf(t rdffusion.Term) termKey {
	return termKey(t.String())
}

// NewMemoryMapping constructs an empty in-memory dictionary. Id 0 is
// reserved for encoding.DefaultGraphID and is never assigned to a term.
func NewMemoryMapping() Mapping {
	return &memoryMapping{
		byTerm: make(map[termKey]uint64),
		byID:   make(map[uint64]rdffusion.Term),
		next:   encoding.DefaultGraphID + 1,
	}
}

func (m *memoryMapping) Insert(t rdffusion.Term) (uint64, error) {
	if _, isDefault := t.(rdffusion.DefaultGraph); isDefault {
		return encoding.DefaultGraphID, nil
	}
	k := keyOf(t)

	m.mu.RLock()
	if id, ok := m.byTerm[k]; ok {
		m.mu.RUnlock()
		return id, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byTerm[k]; ok {
		return id, nil
	}
	id := m.next
	m.next++
	m.byTerm[k] = id
	m.byID[id] = t
	return id, nil
}

func (m *memoryMapping) EncodeTerm(t rdffusion.Term) (uint64, bool, error) {
	if _, isDefault := t.(rdffusion.DefaultGraph); isDefault {
		return encoding.DefaultGraphID, true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byTerm[keyOf(t)]
	return id, ok, nil
}

func (m *memoryMapping) DecodeID(id uint64) (rdffusion.Term, bool, error) {
	if id == encoding.DefaultGraphID {
		return rdffusion.DefaultGraph{}, true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byID[id]
	return t, ok, nil
}

func (m *memoryMapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
