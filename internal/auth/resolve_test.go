package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func fakeCLI(t *testing.T, out string, err error) *[]string {
	t.Helper()
	var calls []string
	orig := runCLI
	runCLI = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name)
		calls = append(calls, args...)
		return []byte(out), err
	}
	t.Cleanup(func() { runCLI = orig })
	return &calls
}

func noEnv(string) (string, bool) { return "", false }

func TestResolveOrder(t *testing.T) {
	fakeCLI(t, "cli-token\n", nil)
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	store.Save("gitlab", Credentials{AccessToken: "file-token", Username: "alice"})

	env := func(k string) (string, bool) {
		if k == "DEVPULSE_GITLAB_TOKEN" {
			return "env-token", true
		}
		return "", false
	}

	tests := []struct {
		name       string
		r          *Resolver
		explicit   string
		wantToken  string
		wantSource string
	}{
		{"explicit wins", &Resolver{Store: store, LookupEnv: env, UseCLI: true}, "flag-token", "flag-token", SourceConfig},
		{"env before file", &Resolver{Store: store, LookupEnv: env, UseCLI: true}, "", "env-token", SourceEnv},
		{"file before cli", &Resolver{Store: store, LookupEnv: noEnv, UseCLI: true}, "", "file-token", SourceFile},
		{"cli last", &Resolver{Store: NewFileStore(filepath.Join(t.TempDir(), "none.json")), LookupEnv: noEnv, UseCLI: true}, "", "cli-token", SourceCLI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Resolve(context.Background(), "gitlab", tt.explicit, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Token != tt.wantToken || got.Source != tt.wantSource {
				t.Errorf("expected %s from %s, got %s from %s", tt.wantToken, tt.wantSource, got.Token, got.Source)
			}
		})
	}
}

func TestResolveNothingFound(t *testing.T) {
	fakeCLI(t, "", errors.New("not installed"))
	r := &Resolver{LookupEnv: noEnv, UseCLI: true}

	_, err := r.Resolve(context.Background(), "github", "", "")
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestResolveCLIDisabled(t *testing.T) {
	calls := fakeCLI(t, "cli-token", nil)
	r := &Resolver{LookupEnv: noEnv}

	if _, err := r.Resolve(context.Background(), "gitlab", "", ""); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("expected no CLI invocation, got %v", *calls)
	}
}

func TestCLITokenCommands(t *testing.T) {
	tests := []struct {
		provider string
		host     string
		want     []string
	}{
		{"gitlab", "", []string{"glab", "config", "get", "token", "--host", "gitlab.com"}},
		{"gitlab", "gitlab.example.com", []string{"glab", "config", "get", "token", "--host", "gitlab.example.com"}},
		{"github", "api.github.com", []string{"gh", "auth", "token"}},
		{"github", "ghe.example.com", []string{"gh", "auth", "token", "--hostname", "ghe.example.com"}},
	}
	for _, tt := range tests {
		calls := fakeCLI(t, "tok", nil)
		token, ok := CLIToken(context.Background(), tt.provider, tt.host)
		if !ok || token != "tok" {
			t.Errorf("%s: expected token, got %q %v", tt.provider, token, ok)
		}
		if len(*calls) != len(tt.want) {
			t.Errorf("%s %s: expected %v, got %v", tt.provider, tt.host, tt.want, *calls)
			continue
		}
		for i := range tt.want {
			if (*calls)[i] != tt.want[i] {
				t.Errorf("%s %s: expected %v, got %v", tt.provider, tt.host, tt.want, *calls)
				break
			}
		}
	}
}

func TestCLITokenUnknownProviderOrBlank(t *testing.T) {
	fakeCLI(t, "   \n", nil)
	if _, ok := CLIToken(context.Background(), "gitlab", ""); ok {
		t.Error("expected blank output to be rejected")
	}
	if _, ok := CLIToken(context.Background(), "bitbucket", ""); ok {
		t.Error("expected unknown provider to be rejected")
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://gitlab.example.com/api/v4"); got != "gitlab.example.com" {
		t.Errorf("expected gitlab.example.com, got %q", got)
	}
	if got := Host(""); got != "" {
		t.Errorf("expected empty host, got %q", got)
	}
}
