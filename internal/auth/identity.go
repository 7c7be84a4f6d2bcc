package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of authorization classes.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// apiKeyBytes is the entropy of a generated key.
const apiKeyBytes = 32

// LegacyUsername names the synthetic identity used by single-key mode.
const LegacyUsername = "legacy"

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", validationErr("role", "invalid role %q (must be admin or user)", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a stored identity. APIKeyHash is a SHA-256 hex digest, never the key itself.
type User struct {
	Username   string `json:"username"`
	APIKeyHash string `json:"api_key_hash"`
	Role       Role   `json:"role"`
	CreatedAt  string `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LegacyUser returns the synthetic admin identity for single-key deployments.
func LegacyUser() *User {
	return &User{
		Username: LegacyUsername,
		Role:     RoleAdmin,
	}
}

// HashAPIKey returns the hex SHA-256 digest of key. Identical keys always hash
// identically so the digest works as a lookup index.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey returns a URL-safe token carrying 32 bytes of crypto/rand entropy.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newUser builds a record with a hashed key and a UTC creation timestamp.
func newUser(username, apiKey string, role Role, now time.Time) User {
	return User{
		Username:   username,
		APIKeyHash: HashAPIKey(apiKey),
		Role:       role,
		CreatedAt:  now.UTC().Format(time.RFC3339),
	}
}
