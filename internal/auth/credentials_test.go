// internal/auth/credentials_test.go
package auth_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsablic/devpulse/internal/auth"
)

func TestCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := auth.NewFileStore(filepath.Join(dir, "credentials.json"))

	cred := auth.Credentials{
		AccessToken: "test-token",
		Username:    "oauth2",
		BaseURL:     "https://gitlab.example.com",
	}

	if err := store.Save("gitlab", cred); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := store.Load("gitlab")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded.AccessToken != "test-token" {
		t.Errorf("expected test-token, got %s", loaded.AccessToken)
	}
	if loaded.BaseURL != "https://gitlab.example.com" {
		t.Errorf("expected base URL to round-trip, got %s", loaded.BaseURL)
	}
	if loaded.SavedAt.IsZero() {
		t.Error("expected SavedAt to be stamped")
	}
}

func TestCredentialsMissing(t *testing.T) {
	dir := t.TempDir()
	store := auth.NewFileStore(filepath.Join(dir, "credentials.json"))

	_, err := store.Load("github")
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestCredentialsDelete(t *testing.T) {
	dir := t.TempDir()
	store := auth.NewFileStore(filepath.Join(dir, "credentials.json"))

	store.Save("gitlab", auth.Credentials{AccessToken: "a"})
	store.Save("github", auth.Credentials{AccessToken: "b"})

	if err := store.Delete("gitlab"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := store.Load("gitlab"); err == nil {
		t.Error("expected gitlab credentials to be gone")
	}
	if cred, err := store.Load("github"); err != nil || cred.AccessToken != "b" {
		t.Errorf("expected github credentials kept, got %+v %v", cred, err)
	}
	if err := store.Delete("bitbucket"); err != nil {
		t.Errorf("expected deleting a missing entry to succeed, got %v", err)
	}
}

func TestCredentialsFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	store := auth.NewFileStore(path)

	cred := auth.Credentials{AccessToken: "secret"}
	if err := store.Save("github", cred); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestEnvKey(t *testing.T) {
	if got := auth.EnvKey("gitlab"); got != "DEVPULSE_GITLAB_TOKEN" {
		t.Errorf("expected DEVPULSE_GITLAB_TOKEN, got %s", got)
	}
}

func TestCredentialsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := auth.NewFileStore(path)

	if _, err := store.Load("gitlab"); !errors.Is(err, auth.ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials for a corrupt file, got %v", err)
	}
	if err := store.Save("gitlab", auth.Credentials{AccessToken: "x"}); err == nil {
		t.Error("expected save to refuse overwriting a corrupt file")
	}
	if data, _ := os.ReadFile(path); string(data) != "{not json" {
		t.Errorf("expected corrupt file left untouched, got %q", data)
	}
}
