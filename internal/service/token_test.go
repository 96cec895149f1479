package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyToken(t *testing.T) {
	base := IdempotencyToken("alice", "event-1", "")

	assert.Equal(t, base, IdempotencyToken("alice", "event-1", ""))
	assert.NotEqual(t, base, IdempotencyToken("bob", "event-1", ""))
	assert.NotEqual(t, base, IdempotencyToken("alice", "event-2", ""))
	assert.NotEqual(t, base, IdempotencyToken("alice", "event-1", "retry-7"))

	// field boundaries are unambiguous
	assert.NotEqual(t, IdempotencyToken("ab", "c", ""), IdempotencyToken("a", "bc", ""))

	_, err := uuid.Parse(base)
	assert.NoError(t, err)
}
