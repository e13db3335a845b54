package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	rehash, err := ComparePassword(hash, "correct horse")
	require.NoError(t, err)
	assert.False(t, rehash)

	_, err = ComparePassword(hash, "wrong")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestComparePassword_LegacySHA256(t *testing.T) {
	legacy := legacyHash("hunter2")

	rehash, err := ComparePassword(legacy, "hunter2")
	require.NoError(t, err)
	assert.True(t, rehash)

	_, err = ComparePassword(legacy, "hunter3")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestBurnCompareAlwaysFails(t *testing.T) {
	assert.ErrorIs(t, BurnCompare("anything"), ErrPasswordMismatch)
}

func TestKeyMatches(t *testing.T) {
	assert.True(t, KeyMatches("k-123", "k-123"))
	assert.False(t, KeyMatches("k-124", "k-123"))
	assert.False(t, KeyMatches("", "k-123"))
	assert.False(t, KeyMatches("k-123", ""))
}
