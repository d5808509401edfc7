// internal/provider/github.go
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/dsablic/devpulse/internal/model"
)

const githubMaxPages = 20

type repoRef struct {
	owner string
	name  string
}

// GitHub is a Source backed by the GitHub REST API. Projects are
// repositories, addressed by their numeric repository ID.
type GitHub struct {
	client *github.Client
	owner  string

	mu    sync.RWMutex
	repos map[int]repoRef
}

var _ Source = (*GitHub)(nil)

// NewGitHub creates a GitHub source. owner restricts project listing to an
// organization; empty lists the authenticated user's repositories. A
// non-empty baseURL targets GitHub Enterprise. httpClient carries transport
// concerns such as rate limiting and may be nil.
func NewGitHub(token, baseURL, owner string, httpClient *http.Client) (*GitHub, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := github.NewClient(httpClient)
	if baseURL != "" && !strings.Contains(baseURL, "api.github.com") {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("github enterprise URL: %w", err)
		}
	}

	return &GitHub{client: client, owner: owner, repos: make(map[int]repoRef)}, nil
}

func (g *GitHub) remember(r *github.Repository) model.Project {
	p := model.Project{
		ID:                int(r.GetID()),
		Name:              r.GetName(),
		Path:              r.GetName(),
		PathWithNamespace: r.GetFullName(),
		NameWithNamespace: r.GetFullName(),
		Description:       r.GetDescription(),
		WebURL:            r.GetHTMLURL(),
		CloneURL:          r.GetCloneURL(),
		DefaultBranch:     r.GetDefaultBranch(),
		Visibility:        r.GetVisibility(),
		CreatedAt:         r.GetCreatedAt().Time,
		LastActivityAt:    r.GetPushedAt().Time,
		Archived:          r.GetArchived(),
	}
	g.mu.Lock()
	g.repos[p.ID] = repoRef{owner: r.GetOwner().GetLogin(), name: r.GetName()}
	g.mu.Unlock()
	return p
}

func (g *GitHub) lookup(ctx context.Context, id int) (repoRef, error) {
	g.mu.RLock()
	ref, ok := g.repos[id]
	g.mu.RUnlock()
	if ok {
		return ref, nil
	}
	if _, err := g.GetProject(ctx, id); err != nil {
		return repoRef{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.repos[id], nil
}

// ListProjects lists repositories of the configured organization, or of
// the authenticated user. Search filters by substring on the full name.
func (g *GitHub) ListProjects(ctx context.Context, opts ListProjectsOpts) ([]model.Project, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = githubMaxPages
	}
	listOpts := github.ListOptions{PerPage: pageSize(opts.PerPage)}
	sort := githubSort(opts.OrderBy)
	direction := orDefault(opts.Sort, "asc")
	search := strings.ToLower(opts.Search)

	var all []model.Project
	for page := 0; page < maxPages; page++ {
		var (
			repos []*github.Repository
			resp  *github.Response
			err   error
		)
		if g.owner != "" {
			repos, resp, err = g.client.Repositories.ListByOrg(ctx, g.owner, &github.RepositoryListByOrgOptions{
				Type: "all", Sort: sort, Direction: direction, ListOptions: listOpts,
			})
		} else {
			repos, resp, err = g.client.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
				Sort: sort, Direction: direction, ListOptions: listOpts,
			})
		}
		if err != nil {
			return nil, githubErr(err)
		}

		for _, r := range repos {
			if !opts.IncludeArchived && r.GetArchived() {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(r.GetFullName()), search) {
				continue
			}
			all = append(all, g.remember(r))
		}

		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}
	return all, nil
}

// GetProject fetches a repository by ID.
func (g *GitHub) GetProject(ctx context.Context, id int) (model.Project, error) {
	r, _, err := g.client.Repositories.GetByID(ctx, int64(id))
	if err != nil {
		return model.Project{}, githubErr(err)
	}
	return g.remember(r), nil
}

// ListBranches lists a repository's branches.
func (g *GitHub) ListBranches(ctx context.Context, projectID int, opts ListBranchesOpts) ([]model.Branch, error) {
	ref, err := g.lookup(ctx, projectID)
	if err != nil {
		return nil, err
	}

	listOpts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: pageSize(opts.PerPage)}}
	var all []model.Branch
	for page := 0; page < githubMaxPages; page++ {
		branches, resp, err := g.client.Repositories.ListBranches(ctx, ref.owner, ref.name, listOpts)
		if err != nil {
			return nil, githubErr(err)
		}
		for _, b := range branches {
			all = append(all, model.Branch{Name: b.GetName(), Protected: b.GetProtected()})
		}
		if !opts.All || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}
	return all, nil
}

// ListCommits lists commits reachable from Ref, or from the default branch.
// GitHub has no all-refs listing, so AllRefs is ignored.
func (g *GitHub) ListCommits(ctx context.Context, projectID int, opts ListCommitsOpts) ([]model.Commit, error) {
	ref, err := g.lookup(ctx, projectID)
	if err != nil {
		return nil, err
	}

	listOpts := &github.CommitsListOptions{
		SHA:         opts.Ref,
		Since:       opts.Since,
		Until:       opts.Until,
		ListOptions: github.ListOptions{PerPage: pageSize(opts.PerPage)},
	}

	var all []model.Commit
	for page := 0; page < githubMaxPages; page++ {
		commits, resp, err := g.client.Repositories.ListCommits(ctx, ref.owner, ref.name, listOpts)
		if err != nil {
			return nil, githubErr(err)
		}
		for _, c := range commits {
			all = append(all, githubCommit(c))
			if opts.Limit > 0 && len(all) >= opts.Limit {
				return all, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}
	return all, nil
}

// CommitDiff returns each changed file's patch.
func (g *GitHub) CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error) {
	ref, err := g.lookup(ctx, projectID)
	if err != nil {
		return nil, err
	}

	c, _, err := g.client.Repositories.GetCommit(ctx, ref.owner, ref.name, sha, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, githubErr(err)
	}

	diffs := make([]model.FileDiff, 0, len(c.Files))
	for _, f := range c.Files {
		d := model.FileDiff{
			OldPath: f.GetPreviousFilename(),
			NewPath: f.GetFilename(),
			Diff:    f.GetPatch(),
		}
		switch f.GetStatus() {
		case "added":
			d.NewFile = true
		case "removed":
			d.DeletedFile = true
			d.OldPath = d.NewPath
		case "renamed":
			d.RenamedFile = true
		}
		if d.OldPath == "" {
			d.OldPath = d.NewPath
		}
		diffs = append(diffs, d)
	}
	return diffs, nil
}

func githubCommit(c *github.RepositoryCommit) model.Commit {
	msg := c.GetCommit().GetMessage()
	title, _, _ := strings.Cut(msg, "\n")
	sha := c.GetSHA()
	short := sha
	if len(short) > 8 {
		short = short[:8]
	}
	return model.Commit{
		ID:           sha,
		ShortID:      short,
		Title:        strings.TrimSpace(title),
		Message:      msg,
		AuthorName:   c.GetCommit().GetAuthor().GetName(),
		AuthorEmail:  c.GetCommit().GetAuthor().GetEmail(),
		AuthoredDate: c.GetCommit().GetAuthor().GetDate().Time,
		CreatedAt:    c.GetCommit().GetCommitter().GetDate().Time,
	}
}

func githubSort(orderBy string) string {
	switch orderBy {
	case "created_at":
		return "created"
	case "last_activity_at":
		return "pushed"
	default:
		return "full_name"
	}
}

func githubErr(err error) error {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return fmt.Errorf("%w: %s", statusErr("github API", er.Response.StatusCode), er.Message)
	}
	return upstreamErr(err)
}
