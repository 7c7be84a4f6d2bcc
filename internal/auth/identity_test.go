package auth

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAPIKey(t *testing.T) {
	// SHA-256 of "abc"
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashAPIKey("abc"))

	first := HashAPIKey("my-secret")
	second := HashAPIKey("my-secret")
	assert.Equal(t, first, second, "hash must be deterministic")
	assert.Len(t, first, 64)
	assert.NotContains(t, first, "my-secret")
	assert.NotEqual(t, first, HashAPIKey("my-secret2"))
}

func TestGenerateAPIKey(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(key)
		require.NoError(t, err, "key must be unpadded URL-safe base64")
		assert.Len(t, raw, 32)

		assert.False(t, seen[key], "generated keys must not repeat")
		seen[key] = true
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"user", RoleUser, false},
		{" ADMIN ", RoleAdmin, false},
		{"root", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyUser(t *testing.T) {
	u := LegacyUser()
	assert.Equal(t, "legacy", u.Username)
	assert.True(t, u.IsAdmin())
	assert.Empty(t, u.APIKeyHash)

	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
}
