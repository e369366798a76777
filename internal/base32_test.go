package internal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEncodeToBase32(t *testing.T) {
	encoded := EncodeToBase32([]byte("hello world"))
	assert.Equal(t, "nbswy5dpeb5w86tmmq", encoded)
}

func TestEncodeUUIDToBase32(t *testing.T) {
	id := uuid.MustParse("f81d4fae-7dec-11d0-a765-00a0c91e6bf6")
	assert.Equal(t, "9aou9lt77qi7bj5facqmshtl8y", EncodeUUIDToBase32(id))
}

func TestEncodeUUIDToBase32ProducesDistinctIdentifiersPerBlankNode(t *testing.T) {
	a := EncodeUUIDToBase32(uuid.New())
	b := EncodeUUIDToBase32(uuid.New())
	assert.NotEqual(t, a, b)
}
