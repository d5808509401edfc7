// internal/provider/gitlab.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dsablic/devpulse/internal/model"
)

const (
	gitlabAPIBase    = "https://gitlab.com"
	gitlabMaxPerPage = 100
	gitlabMaxPages   = 50
)

// GitLab is a Source backed by the GitLab v4 REST API.
type GitLab struct {
	token   string
	baseURL string
	client  *http.Client
}

var _ Source = (*GitLab)(nil)

// NewGitLab creates a GitLab source. An empty baseURL means gitlab.com; a
// nil client means http.DefaultClient.
func NewGitLab(token, baseURL string, client *http.Client) *GitLab {
	if baseURL == "" {
		baseURL = gitlabAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GitLab{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type gitlabProject struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Path              string     `json:"path"`
	PathWithNamespace string     `json:"path_with_namespace"`
	NameWithNamespace string     `json:"name_with_namespace"`
	Description       string     `json:"description"`
	WebURL            string     `json:"web_url"`
	HTTPURLToRepo     string     `json:"http_url_to_repo"`
	DefaultBranch     string     `json:"default_branch"`
	Visibility        string     `json:"visibility"`
	CreatedAt         *time.Time `json:"created_at"`
	LastActivityAt    *time.Time `json:"last_activity_at"`
	Archived          bool       `json:"archived"`
}

func (p gitlabProject) toModel() model.Project {
	return model.Project{
		ID:                p.ID,
		Name:              p.Name,
		Path:              p.Path,
		PathWithNamespace: p.PathWithNamespace,
		NameWithNamespace: p.NameWithNamespace,
		Description:       p.Description,
		WebURL:            p.WebURL,
		CloneURL:          p.HTTPURLToRepo,
		DefaultBranch:     p.DefaultBranch,
		Visibility:        p.Visibility,
		CreatedAt:         deref(p.CreatedAt),
		LastActivityAt:    deref(p.LastActivityAt),
		Archived:          p.Archived,
	}
}

type gitlabBranch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Default   bool   `json:"default"`
}

type gitlabCommit struct {
	ID            string     `json:"id"`
	ShortID       string     `json:"short_id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	AuthorName    string     `json:"author_name"`
	AuthorEmail   string     `json:"author_email"`
	AuthoredDate  *time.Time `json:"authored_date"`
	CreatedAt     *time.Time `json:"created_at"`
	CommittedDate *time.Time `json:"committed_date"`
}

func (c gitlabCommit) toModel() model.Commit {
	created := deref(c.CreatedAt)
	if created.IsZero() {
		created = deref(c.CommittedDate)
	}
	return model.Commit{
		ID:           c.ID,
		ShortID:      c.ShortID,
		Title:        c.Title,
		Message:      c.Message,
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		AuthoredDate: deref(c.AuthoredDate),
		CreatedAt:    created,
	}
}

type gitlabDiff struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

// ListProjects lists projects visible to the token.
func (g *GitLab) ListProjects(ctx context.Context, opts ListProjectsOpts) ([]model.Project, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(pageSize(opts.PerPage)))
	params.Set("order_by", orDefault(opts.OrderBy, "name"))
	params.Set("sort", orDefault(opts.Sort, "asc"))
	if opts.Search != "" {
		params.Set("search", opts.Search)
	}
	if opts.Membership {
		params.Set("membership", "true")
	}
	if !opts.IncludeArchived {
		params.Set("archived", "false")
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = gitlabMaxPages
	}

	var all []model.Project
	nextURL := fmt.Sprintf("%s/api/v4/projects?%s", g.baseURL, params.Encode())
	for page := 0; nextURL != "" && page < maxPages; page++ {
		var projects []gitlabProject
		header, err := g.getJSON(ctx, nextURL, &projects)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			all = append(all, p.toModel())
		}
		nextURL = g.nextPageURL(nextURL, header)
	}
	return all, nil
}

// GetProject fetches a single project.
func (g *GitLab) GetProject(ctx context.Context, id int) (model.Project, error) {
	var p gitlabProject
	if _, err := g.getJSON(ctx, fmt.Sprintf("%s/api/v4/projects/%d", g.baseURL, id), &p); err != nil {
		return model.Project{}, err
	}
	return p.toModel(), nil
}

// ListBranches lists a project's branches.
func (g *GitLab) ListBranches(ctx context.Context, projectID int, opts ListBranchesOpts) ([]model.Branch, error) {
	nextURL := fmt.Sprintf("%s/api/v4/projects/%d/repository/branches?per_page=%d",
		g.baseURL, projectID, pageSize(opts.PerPage))

	var all []model.Branch
	for page := 0; nextURL != "" && page < gitlabMaxPages; page++ {
		var branches []gitlabBranch
		header, err := g.getJSON(ctx, nextURL, &branches)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			all = append(all, model.Branch{Name: b.Name, Protected: b.Protected, Default: b.Default})
		}
		if !opts.All {
			break
		}
		nextURL = g.nextPageURL(nextURL, header)
	}
	return all, nil
}

// ListCommits lists commits in the requested window.
func (g *GitLab) ListCommits(ctx context.Context, projectID int, opts ListCommitsOpts) ([]model.Commit, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(pageSize(opts.PerPage)))
	switch {
	case opts.Ref != "":
		params.Set("ref_name", opts.Ref)
	case opts.AllRefs:
		params.Set("all", "true")
	}
	if !opts.Since.IsZero() {
		params.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		params.Set("until", opts.Until.UTC().Format(time.RFC3339))
	}

	var all []model.Commit
	nextURL := fmt.Sprintf("%s/api/v4/projects/%d/repository/commits?%s", g.baseURL, projectID, params.Encode())
	for page := 0; nextURL != "" && page < gitlabMaxPages; page++ {
		var commits []gitlabCommit
		header, err := g.getJSON(ctx, nextURL, &commits)
		if err != nil {
			return nil, err
		}
		for _, c := range commits {
			all = append(all, c.toModel())
			if opts.Limit > 0 && len(all) >= opts.Limit {
				return all, nil
			}
		}
		nextURL = g.nextPageURL(nextURL, header)
	}
	return all, nil
}

// CommitDiff fetches the per-file diff of a commit.
func (g *GitLab) CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error) {
	nextURL := fmt.Sprintf("%s/api/v4/projects/%d/repository/commits/%s/diff?per_page=%d",
		g.baseURL, projectID, url.PathEscape(sha), gitlabMaxPerPage)

	var all []model.FileDiff
	for page := 0; nextURL != "" && page < gitlabMaxPages; page++ {
		var diffs []gitlabDiff
		header, err := g.getJSON(ctx, nextURL, &diffs)
		if err != nil {
			return nil, err
		}
		for _, d := range diffs {
			all = append(all, model.FileDiff{
				OldPath:     d.OldPath,
				NewPath:     d.NewPath,
				Diff:        d.Diff,
				NewFile:     d.NewFile,
				DeletedFile: d.DeletedFile,
				RenamedFile: d.RenamedFile,
			})
		}
		nextURL = g.nextPageURL(nextURL, header)
	}
	return all, nil
}

func (g *GitLab) doGet(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if g.token != "" {
		req.Header.Set("PRIVATE-TOKEN", g.token)
	}
	req.Header.Set("Accept", "application/json")
	return g.client.Do(req)
}

// getJSON decodes a 200 response into v and returns its headers.
func (g *GitLab) getJSON(ctx context.Context, reqURL string, v any) (http.Header, error) {
	resp, err := g.doGet(ctx, reqURL)
	if err != nil {
		return nil, upstreamErr(fmt.Errorf("gitlab API request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr("gitlab API", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, upstreamErr(fmt.Errorf("decode gitlab response: %w", err))
	}
	return resp.Header, nil
}

func (g *GitLab) nextPageURL(currentURL string, header http.Header) string {
	// Offset pagination first, then keyset pagination via Link.
	if next := header.Get("X-Next-Page"); next != "" {
		u, err := url.Parse(currentURL)
		if err != nil {
			return ""
		}
		q := u.Query()
		q.Set("page", next)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return parseLinkNext(header.Get("Link"))
}

func pageSize(n int) int {
	if n <= 0 || n > gitlabMaxPerPage {
		return gitlabMaxPerPage
	}
	return n
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
