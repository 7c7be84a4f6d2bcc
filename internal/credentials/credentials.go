// Package credentials keeps the legacy shared API key in the OS credential
// store (macOS Keychain, Windows Credential Manager, Linux Secret Service) so
// it does not have to live in the config file or the environment.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service name for OS credential store
	credentialService = "pkgmcp"
	// Key for the legacy single API key
	legacyKeyName = "legacy_api_key"

	minLegacyKeyLength = 16
)

// ErrNoLegacyKey is returned when no legacy key has been stored.
var ErrNoLegacyKey = errors.New("no legacy API key stored")

// Manager handles secure storage and retrieval of the legacy API key.
type Manager struct {
	service string
}

// NewManager creates a credential manager bound to the pkgmcp service.
func NewManager() *Manager {
	return &Manager{
		service: credentialService,
	}
}

// StoreLegacyKey saves key in the OS credential store, replacing any previous value.
//
// Parameters:
//   - key: Shared secret; at least 16 characters, no surrounding whitespace
//
// Returns:
//   - error: Storage errors or validation failures
func (m *Manager) StoreLegacyKey(key string) error {
	if err := validateLegacyKey(key); err != nil {
		return fmt.Errorf("invalid legacy key: %w", err)
	}

	if err := keyring.Set(m.service, legacyKeyName, key); err != nil {
		return fmt.Errorf("failed to store key in credential store: %w", err)
	}

	return nil
}

// GetLegacyKey retrieves the stored legacy key.
//
// Returns:
//   - string: The stored key
//   - error: ErrNoLegacyKey when nothing is stored, or a retrieval error
func (m *Manager) GetLegacyKey() (string, error) {
	key, err := keyring.Get(m.service, legacyKeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoLegacyKey
		}
		return "", fmt.Errorf("failed to retrieve key from credential store: %w", err)
	}

	if strings.TrimSpace(key) == "" {
		return "", ErrNoLegacyKey
	}

	return key, nil
}

// DeleteLegacyKey removes the stored key. Deleting a missing key is not an error.
func (m *Manager) DeleteLegacyKey() error {
	err := keyring.Delete(m.service, legacyKeyName)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete key from credential store: %w", err)
	}
	return nil
}

// HasLegacyKey checks if a key is stored without returning it.
func (m *Manager) HasLegacyKey() bool {
	_, err := m.GetLegacyKey()
	return err == nil
}

// Status reports whether the credential store can be used, by writing,
// reading back and deleting a probe value.
//
// Returns:
//   - map[string]any: "available" plus "error" or "warning" when relevant
func (m *Manager) Status() map[string]any {
	status := make(map[string]any)

	probeKey := "pkgmcp_probe"
	probeValue := "probe_value"

	if err := keyring.Set(m.service, probeKey, probeValue); err != nil {
		status["available"] = false
		status["error"] = err.Error()
		return status
	}

	got, err := keyring.Get(m.service, probeKey)
	if err != nil || got != probeValue {
		status["available"] = false
		if err != nil {
			status["error"] = err.Error()
		} else {
			status["error"] = "credential store corrupted - values don't match"
		}
		_ = keyring.Delete(m.service, probeKey)
		return status
	}

	if err := keyring.Delete(m.service, probeKey); err != nil {
		status["available"] = true
		status["warning"] = "credential store works but cleanup failed: " + err.Error()
		return status
	}

	status["available"] = true
	status["has_legacy_key"] = m.HasLegacyKey()
	return status
}

func validateLegacyKey(key string) error {
	if key != strings.TrimSpace(key) {
		return fmt.Errorf("key must not have leading or trailing whitespace")
	}
	if len(key) < minLegacyKeyLength {
		return fmt.Errorf("key too short (minimum %d characters)", minLegacyKeyLength)
	}
	return nil
}
