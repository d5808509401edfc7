// internal/auth/credentials.go
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrNoCredentials = errors.New("no credentials found")

// Credentials is one provider's stored login.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	Username    string    `json:"username,omitempty"`
	BaseURL     string    `json:"base_url,omitempty"`
	SavedAt     time.Time `json:"saved_at,omitempty"`
}

// FileStore keeps credentials of every provider in one JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func DefaultStorePath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "devpulse", "credentials.json")
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Save stores cred under provider, keeping the entries of other providers.
func (s *FileStore) Save(provider string, cred Credentials) error {
	all, err := s.loadAll()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read credentials: %w", err)
	}
	if all == nil {
		all = make(map[string]Credentials, 1)
	}
	if cred.SavedAt.IsZero() {
		cred.SavedAt = time.Now().UTC()
	}
	all[provider] = cred
	return s.writeAll(all)
}

// Load returns the stored credentials of provider, or ErrNoCredentials when
// the file is missing, unreadable or holds no token for it.
func (s *FileStore) Load(provider string) (Credentials, error) {
	all, err := s.loadAll()
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}
	if cred := all[provider]; cred.AccessToken != "" {
		return cred, nil
	}
	return Credentials{}, ErrNoCredentials
}

// Delete removes the provider's entry. Deleting a missing entry is not an error.
func (s *FileStore) Delete(provider string) error {
	all, err := s.loadAll()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if _, ok := all[provider]; !ok {
		return nil
	}
	delete(all, provider)
	return s.writeAll(all)
}

func (s *FileStore) loadAll() (map[string]Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	all := map[string]Credentials{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return all, nil
}

// writeAll replaces the file through a temp file so a crash never leaves a
// truncated credentials file behind.
func (s *FileStore) writeAll(all map[string]Credentials) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// EnvKey returns the environment variable holding provider's token,
// e.g. DEVPULSE_GITLAB_TOKEN.
func EnvKey(provider string) string {
	return fmt.Sprintf("DEVPULSE_%s_TOKEN", strings.ToUpper(provider))
}
