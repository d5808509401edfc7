package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dsablic/devpulse/internal/provider"
)

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gh-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 11, "name": "api", "full_name": "acme/api", "default_branch": "main", "owner": map[string]any{"login": "acme"}},
			{"id": 12, "name": "old", "full_name": "acme/old", "archived": true, "owner": map[string]any{"login": "acme"}},
		})
	})
	mux.HandleFunc("/api/v3/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sha"); got != "develop" {
			t.Errorf("expected sha=develop, got %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"sha": "0123456789abcdef",
				"commit": map[string]any{
					"message":   "fix: bug\n\ndetails",
					"author":    map[string]any{"name": "Dev", "email": "dev@example.com", "date": "2024-02-01T00:00:00Z"},
					"committer": map[string]any{"name": "Dev", "email": "dev@example.com", "date": "2024-02-02T00:00:00Z"},
				},
			},
		})
	})
	mux.HandleFunc("/api/v3/repos/acme/api/commits/0123456789abcdef", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sha": "0123456789abcdef",
			"files": []map[string]any{
				{"filename": "main.go", "status": "modified", "patch": "@@ -1 +1 @@\n-a\n+b"},
				{"filename": "gone.py", "status": "removed", "patch": "-x"},
			},
		})
	})
	mux.HandleFunc("/api/v3/repositories/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})
	return httptest.NewServer(mux)
}

func TestGitHubSource(t *testing.T) {
	server := newGitHubServer(t)
	defer server.Close()

	gh, err := provider.NewGitHub("gh-token", server.URL, "acme", nil)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	ctx := context.Background()

	projects, err := gh.ListProjects(ctx, provider.ListProjectsOpts{})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected archived repo to be skipped, got %d projects", len(projects))
	}
	if projects[0].ID != 11 || projects[0].PathWithNamespace != "acme/api" {
		t.Errorf("unexpected project %+v", projects[0])
	}

	commits, err := gh.ListCommits(ctx, 11, provider.ListCommitsOpts{Ref: "develop"})
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(commits))
	}
	if commits[0].Title != "fix: bug" || commits[0].ShortID != "01234567" {
		t.Errorf("unexpected commit %+v", commits[0])
	}

	diffs, err := gh.CommitDiff(ctx, 11, "0123456789abcdef")
	if err != nil {
		t.Fatalf("CommitDiff: %v", err)
	}
	if len(diffs) != 2 || !diffs[1].DeletedFile || diffs[1].Path() != "gone.py" {
		t.Errorf("unexpected diffs %+v", diffs)
	}
}

func TestGitHubNotFound(t *testing.T) {
	server := newGitHubServer(t)
	defer server.Close()

	gh, err := provider.NewGitHub("gh-token", server.URL, "acme", nil)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}

	_, err = gh.GetProject(context.Background(), 404)
	if !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
