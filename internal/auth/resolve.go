package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Token sources, in resolution order.
const (
	SourceConfig = "config"
	SourceEnv    = "env"
	SourceFile   = "credentials file"
	SourceCLI    = "cli"
)

// Resolved is a token together with where it came from.
type Resolved struct {
	Token    string
	Username string
	Source   string
}

// Resolver finds the token for a provider.
type Resolver struct {
	Store     *FileStore
	LookupEnv func(string) (string, bool)
	UseCLI    bool
}

// NewResolver returns a Resolver reading the process environment and store,
// falling back to the glab/gh CLIs.
func NewResolver(store *FileStore) *Resolver {
	return &Resolver{Store: store, LookupEnv: os.LookupEnv, UseCLI: true}
}

// Resolve returns the first token found for provider: explicit (flag or
// config), then DEVPULSE_<PROVIDER>_TOKEN, then the credentials file, then
// the provider CLI for the host of baseURL.
func (r *Resolver) Resolve(ctx context.Context, provider, explicit, baseURL string) (Resolved, error) {
	if explicit != "" {
		return Resolved{Token: explicit, Source: SourceConfig}, nil
	}

	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if token, ok := lookup(EnvKey(provider)); ok && token != "" {
		return Resolved{Token: token, Source: SourceEnv}, nil
	}

	if r.Store != nil {
		cred, err := r.Store.Load(provider)
		if err == nil {
			return Resolved{Token: cred.AccessToken, Username: cred.Username, Source: SourceFile}, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			return Resolved{}, err
		}
	}

	if r.UseCLI {
		if token, ok := CLIToken(ctx, provider, Host(baseURL)); ok {
			return Resolved{Token: token, Source: SourceCLI}, nil
		}
	}

	return Resolved{}, fmt.Errorf("%s: %w", provider, ErrNoCredentials)
}
