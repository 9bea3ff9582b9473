// Package tokenstore persists the bearer token pair for the tradutor CLI
// and SDK. The store is a plain key-value accessor: it knows nothing about
// token semantics beyond reading and writing the pair.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenPair is the persisted access/refresh token pair. At most one pair is
// stored at a time; saving a new pair replaces the old one.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Sealer encrypts and decrypts the persisted payload. Optional; when nil the
// pair is stored as plain JSON.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// Store is a file-backed token pair store. Callers are responsible for
// sequencing concurrent writers.
type Store struct {
	path   string
	sealer Sealer
}

// NewStore creates a store persisting to the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewSealedStore creates a store that encrypts the pair at rest.
func NewSealedStore(path string, sealer Sealer) *Store {
	return &Store{path: path, sealer: sealer}
}

// DefaultPath returns the conventional token location,
// ~/.config/tradutor/token.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tradutor", "token.json"), nil
}

// Save persists the pair, replacing any existing one. The write is atomic:
// a temp file is written and renamed over the old pair.
func (s *Store) Save(pair TokenPair) error {
	if strings.TrimSpace(pair.AccessToken) == "" {
		return errors.New("refusing to save empty access token")
	}

	b, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token pair: %w", err)
	}
	if s.sealer != nil {
		if b, err = s.sealer.Seal(b); err != nil {
			return fmt.Errorf("failed to seal token pair: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write token pair: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Get returns the persisted pair. Missing, unreadable, or corrupt data is
// treated as absent, never as an error.
func (s *Store) Get() (TokenPair, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return TokenPair{}, false
	}
	if s.sealer != nil {
		if b, err = s.sealer.Open(b); err != nil {
			return TokenPair{}, false
		}
	}

	var pair TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return TokenPair{}, false
	}
	if strings.TrimSpace(pair.AccessToken) == "" {
		return TokenPair{}, false
	}
	return pair, true
}

// Clear removes the persisted pair. Idempotent: clearing an empty store is
// not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
