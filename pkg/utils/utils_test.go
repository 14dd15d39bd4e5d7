package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", h)
	assert.True(t, CheckPassword("s3cret-pass", h))
	assert.False(t, CheckPassword("wrong", h))
}

func TestNewIDIsOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 200; i++ {
		next := NewID()
		assert.Len(t, next, 36)
		assert.Less(t, prev, next)
		prev = next
	}
}
