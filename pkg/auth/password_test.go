package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestComparePassword_Plaintext(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		candidate string
		want      bool
	}{
		{"exact match", "Sommer2024!", "Sommer2024!", true},
		{"case differs", "Sommer2024!", "sommer2024!", false},
		{"prefix only", "Sommer2024!", "Sommer", false},
		{"empty candidate", "Sommer2024!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComparePassword(tt.stored, tt.candidate))
		})
	}
}

func TestComparePassword_Bcrypt(t *testing.T) {
	hash, err := HashPassword("letmein", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsBcryptHash(hash))
	assert.True(t, ComparePassword(hash, "letmein"))
	assert.False(t, ComparePassword(hash, "letmeout"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestIsBcryptHash(t *testing.T) {
	assert.False(t, IsBcryptHash("plaintext"))
	assert.False(t, IsBcryptHash("$2a$10$short"))
	assert.True(t, IsBcryptHash("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"))
}
