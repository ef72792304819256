package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Temp@123")
	require.NoError(t, err)
	assert.NotEqual(t, "Temp@123", hash)

	assert.NoError(t, hasher.Compare("Temp@123", hash))
	assert.ErrorIs(t, hasher.Compare("temp@123", hash), ErrPasswordMismatch)
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	err := NewBcryptHasher(bcrypt.MinCost).Compare("secret", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestNewBcryptHasher_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestBcryptHasher_LongPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	atLimit := strings.Repeat("a", MaxPasswordBytes)
	hash, err := hasher.Hash(atLimit)
	require.NoError(t, err)
	assert.NoError(t, hasher.Compare(atLimit, hash))

	_, err = hasher.Hash(atLimit + "a")
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// multi-byte runes count by bytes: 25 × 3 bytes = 75
	_, err = hasher.Hash(strings.Repeat("€", 25))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	assert.ErrorIs(t, hasher.Compare(atLimit+"a", hash), ErrPasswordMismatch)
}
