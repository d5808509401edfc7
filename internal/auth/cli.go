package auth

import (
	"context"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

const cliTimeout = 5 * time.Second

// runCLI executes an external command and returns its stdout.
var runCLI = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CLIToken asks the provider's own CLI (glab or gh) for a token for host.
// Returns false when the CLI is missing, not logged in or prints nothing.
func CLIToken(ctx context.Context, provider, host string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	var out []byte
	var err error
	switch provider {
	case "gitlab":
		if host == "" {
			host = "gitlab.com"
		}
		out, err = runCLI(ctx, "glab", "config", "get", "token", "--host", host)
	case "github":
		args := []string{"auth", "token"}
		if host != "" && host != "github.com" && host != "api.github.com" {
			args = append(args, "--hostname", host)
		}
		out, err = runCLI(ctx, "gh", args...)
	default:
		return "", false
	}
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", false
	}
	return token, true
}

// Host extracts the host name of a provider base URL.
func Host(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}
