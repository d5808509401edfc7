// Package providertest provides an in-memory provider.Source for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/provider"
)

// Source is a scripted provider.Source. Commits are keyed by project and
// ref, where the empty ref answers the all-refs listing. Errors are keyed
// by Key(op, detail). It is safe for concurrent use.
type Source struct {
	Projects []model.Project
	Branches map[int][]model.Branch
	Commits  map[int]map[string][]model.Commit
	Diffs    map[string][]model.FileDiff
	Errs     map[string]error

	mu         sync.Mutex
	calls      map[string]int
	commitOpts []provider.ListCommitsOpts
}

var _ provider.Source = (*Source)(nil)

// Key names one scripted call. detail is the ref for list_commits, the sha
// for commit_diff and empty otherwise.
func Key(op, detail string) string {
	if detail == "" {
		return op
	}
	return op + ":" + detail
}

func (s *Source) hit(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[key]++
	return s.Errs[key]
}

// Calls returns how often the keyed call was made.
func (s *Source) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// TotalCalls returns the number of calls made for op, any detail.
func (s *Source) TotalCalls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for k, n := range s.calls {
		if k == op || len(k) > len(op) && k[:len(op)+1] == op+":" {
			total += n
		}
	}
	return total
}

// CommitOpts returns the options of every ListCommits call in order.
func (s *Source) CommitOpts() []provider.ListCommitsOpts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.ListCommitsOpts(nil), s.commitOpts...)
}

func (s *Source) ListProjects(ctx context.Context, _ provider.ListProjectsOpts) ([]model.Project, error) {
	if err := s.hit(provider.OpListProjects); err != nil {
		return nil, err
	}
	return append([]model.Project(nil), s.Projects...), ctx.Err()
}

func (s *Source) GetProject(ctx context.Context, id int) (model.Project, error) {
	if err := s.hit(provider.OpGetProject); err != nil {
		return model.Project{}, err
	}
	for _, p := range s.Projects {
		if p.ID == id {
			return p, ctx.Err()
		}
	}
	return model.Project{}, fmt.Errorf("project %d: %w", id, provider.ErrNotFound)
}

func (s *Source) ListBranches(ctx context.Context, projectID int, _ provider.ListBranchesOpts) ([]model.Branch, error) {
	if err := s.hit(provider.OpListBranches); err != nil {
		return nil, err
	}
	return append([]model.Branch(nil), s.Branches[projectID]...), ctx.Err()
}

func (s *Source) ListCommits(ctx context.Context, projectID int, opts provider.ListCommitsOpts) ([]model.Commit, error) {
	s.mu.Lock()
	s.commitOpts = append(s.commitOpts, opts)
	s.mu.Unlock()

	if err := s.hit(Key(provider.OpListCommits, opts.Ref)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrUpstream, err)
	}

	commits := append([]model.Commit(nil), s.Commits[projectID][opts.Ref]...)
	if opts.Limit > 0 && len(commits) > opts.Limit {
		commits = commits[:opts.Limit]
	}
	return commits, nil
}

func (s *Source) CommitDiff(ctx context.Context, _ int, sha string) ([]model.FileDiff, error) {
	if err := s.hit(Key(provider.OpCommitDiff, sha)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrUpstream, err)
	}
	return append([]model.FileDiff(nil), s.Diffs[sha]...), nil
}
