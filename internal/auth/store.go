package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkgmcp/internal/logging"
	"pkgmcp/pkg/fileops"
)

const (
	storeFileMode = 0o600
	storeDirMode  = 0o700
)

// storeDocument is the on-disk layout of the users file.
type storeDocument struct {
	Users []User `json:"users"`
}

// Store persists users in a single JSON file. Every lookup re-reads the file
// and every mutation rewrites it whole.
type Store struct {
	path   string
	logger *logging.AppLogger

	mu sync.Mutex // held across read-check-write for every mutation

	writeFile func(path string, data []byte, perm os.FileMode) error
	now       func() time.Time
}

// NewStore creates a store backed by path. The file is not touched until the
// first read or write.
func NewStore(path string, logger *logging.AppLogger) *Store {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Store{
		path:      path,
		logger:    logger.With("component", "user_store"),
		writeFile: fileops.AtomicWriteFile,
		now:       time.Now,
	}
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// EnsureInitialized creates the parent directory and an empty store file if
// they are missing, and resets the file mode to 0600. Safe to call repeatedly.
func (s *Store) EnsureInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: cannot access %s: %w", ErrStoreIO, s.path, err)
		}
		s.logger.Info("Creating users file", "path", s.path)
		return s.writeAllLocked([]User{})
	}

	if err := os.Chmod(s.path, storeFileMode); err != nil {
		return fmt.Errorf("%w: failed to set permissions on %s: %w", ErrStoreIO, s.path, err)
	}
	return nil
}

// ReadAll returns every stored user. A missing, unreadable or malformed file
// is logged and reads as an empty store.
func (s *Store) ReadAll() []User {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Users file does not exist yet", "path", s.path)
		} else {
			s.logger.Error("Failed to read users file", "path", s.path, "error", err)
		}
		return []User{}
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("Users file contains invalid JSON", "path", s.path, "error", err)
		return []User{}
	}
	if doc.Users == nil {
		return []User{}
	}
	return doc.Users
}

// WriteAll replaces the store contents with users. The previous file stays
// intact if any step fails; the error wraps ErrStoreIO.
func (s *Store) WriteAll(users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAllLocked(users)
}

func (s *Store) writeAllLocked(users []User) error {
	defer s.logger.LogPerformance("users file write", time.Now())

	if users == nil {
		users = []User{}
	}

	data, err := json.MarshalIndent(storeDocument{Users: users}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode users: %w", ErrStoreIO, err)
	}

	if err := fileops.EnsureDirectoryExists(filepath.Dir(s.path), storeDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}

	if err := s.writeFile(s.path, data, storeFileMode); err != nil {
		s.logger.Error("Failed to write users file", "path", s.path, "error", err)
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}

	s.logger.Debug("Users file written", "path", s.path, "count", len(users))
	return nil
}

// FindByUsername looks a user up by name.
func (s *Store) FindByUsername(username string) (*User, bool) {
	for _, u := range s.ReadAll() {
		if u.Username == username {
			found := u
			return &found, true
		}
	}
	return nil, false
}

// FindByAPIKeyHash looks a user up by the digest of their API key.
func (s *Store) FindByAPIKeyHash(hash string) (*User, bool) {
	if hash == "" {
		return nil, false
	}
	for _, u := range s.ReadAll() {
		if u.APIKeyHash == hash {
			found := u
			return &found, true
		}
	}
	return nil, false
}

// Create adds a user and returns it together with the plaintext API key. When
// apiKey is empty a random one is generated. The plaintext is not stored and
// cannot be recovered later.
//
// Parameters:
//   - username: Unique, non-empty name
//   - apiKey: Key to assign, or "" to generate one
//   - role: RoleAdmin or RoleUser
//
// Returns:
//   - User: The stored record
//   - string: The plaintext API key
//   - error: ErrValidation for bad input or duplicates, ErrStoreIO for write failures
func (s *Store) Create(username, apiKey string, role Role) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(username, apiKey, role, s.ReadAll())
}

// CreateFirstAdmin bootstraps the first admin. It fails with ErrValidation when
// the store already holds any user.
func (s *Store) CreateFirstAdmin(username, apiKey string) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.ReadAll()
	if len(users) > 0 {
		return User{}, "", validationErr("", "users already exist (%d); use create_user with an admin key instead", len(users))
	}

	return s.createLocked(username, apiKey, RoleAdmin, users)
}

func (s *Store) createLocked(username, apiKey string, role Role, users []User) (User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, "", validationErr("username", "cannot be empty")
	}
	if !role.Valid() {
		return User{}, "", validationErr("role", "invalid role %q (must be admin or user)", role)
	}

	for _, u := range users {
		if u.Username == username {
			return User{}, "", validationErr("username", "user %q already exists", username)
		}
	}

	if apiKey == "" {
		generated, err := GenerateAPIKey()
		if err != nil {
			return User{}, "", err
		}
		apiKey = generated
	}

	user := newUser(username, apiKey, role, s.now())
	if err := s.writeAllLocked(append(users, user)); err != nil {
		return User{}, "", err
	}

	s.logger.Info("Created user", "username", username, "role", role)
	return user, apiKey, nil
}

// Delete removes a user by name and reports whether one was removed. Deleting
// the only remaining admin fails with ErrValidation.
func (s *Store) Delete(username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.ReadAll()

	index := -1
	admins := 0
	for i, u := range users {
		if u.Username == username {
			index = i
		}
		if u.Role == RoleAdmin {
			admins++
		}
	}

	if index < 0 {
		return false, nil
	}

	if users[index].Role == RoleAdmin && admins <= 1 {
		return false, validationErr("username", "cannot delete %q: it is the last admin user", username)
	}

	remaining := make([]User, 0, len(users)-1)
	remaining = append(remaining, users[:index]...)
	remaining = append(remaining, users[index+1:]...)

	if err := s.writeAllLocked(remaining); err != nil {
		return false, err
	}

	s.logger.Info("Deleted user", "username", username)
	return true, nil
}

// HasAdmin reports whether any stored user is an admin.
func (s *Store) HasAdmin() bool {
	for _, u := range s.ReadAll() {
		if u.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// List returns every stored user in file order.
func (s *Store) List() []User {
	return s.ReadAll()
}
