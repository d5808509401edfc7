// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dsablic/devpulse/internal/model"
)

// ErrUpstream marks failures of the source-control API: transport errors,
// timeouts and non-2xx responses.
var ErrUpstream = errors.New("upstream unavailable")

// ErrNotFound is returned for 404 responses. It also matches ErrUpstream.
var ErrNotFound = fmt.Errorf("%w: not found", ErrUpstream)

// Operation names, shared by timeouts, metrics and logs.
const (
	OpListProjects = "list_projects"
	OpGetProject   = "get_project"
	OpListBranches = "list_branches"
	OpListCommits  = "list_commits"
	OpCommitDiff   = "commit_diff"
)

// ListProjectsOpts configures a project listing.
type ListProjectsOpts struct {
	Search          string
	OrderBy         string // name, path, created_at, last_activity_at
	Sort            string // asc or desc
	Membership      bool
	IncludeArchived bool
	PerPage         int
	MaxPages        int // 0 = provider default
}

// ListBranchesOpts configures a branch listing.
type ListBranchesOpts struct {
	PerPage int
	All     bool // follow pagination
}

// ListCommitsOpts configures a commit listing. A zero Since or Until leaves
// that bound open.
type ListCommitsOpts struct {
	Ref     string
	AllRefs bool // ignored when Ref is set
	Since   time.Time
	Until   time.Time
	PerPage int
	Limit   int // cap on returned commits, 0 = every page up to the provider cap
}

// Source is the upstream source-control API. Every method is independently
// failable; errors wrap ErrUpstream.
type Source interface {
	ListProjects(ctx context.Context, opts ListProjectsOpts) ([]model.Project, error)
	GetProject(ctx context.Context, id int) (model.Project, error)
	ListBranches(ctx context.Context, projectID int, opts ListBranchesOpts) ([]model.Branch, error)
	ListCommits(ctx context.Context, projectID int, opts ListCommitsOpts) ([]model.Commit, error)
	CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error)
}

func upstreamErr(err error) error {
	if err == nil || errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func statusErr(api string, code int) error {
	if code == 404 {
		return fmt.Errorf("%w: %s returned status %d", ErrNotFound, api, code)
	}
	return fmt.Errorf("%w: %s returned status %d", ErrUpstream, api, code)
}
