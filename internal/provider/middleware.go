package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/observability"
)

// Timeouts bounds each Source operation. Zero leaves an operation unbounded.
type Timeouts struct {
	ListProjects time.Duration
	GetProject   time.Duration
	ListBranches time.Duration
	ListCommits  time.Duration
	CommitDiff   time.Duration
}

type timeoutSource struct {
	next Source
	t    Timeouts
}

// WithTimeouts wraps src so every call runs under its operation's timeout.
func WithTimeouts(src Source, t Timeouts) Source {
	return &timeoutSource{next: src, t: t}
}

func bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *timeoutSource) ListProjects(ctx context.Context, opts ListProjectsOpts) ([]model.Project, error) {
	ctx, cancel := bound(ctx, s.t.ListProjects)
	defer cancel()
	return s.next.ListProjects(ctx, opts)
}

func (s *timeoutSource) GetProject(ctx context.Context, id int) (model.Project, error) {
	ctx, cancel := bound(ctx, s.t.GetProject)
	defer cancel()
	return s.next.GetProject(ctx, id)
}

func (s *timeoutSource) ListBranches(ctx context.Context, projectID int, opts ListBranchesOpts) ([]model.Branch, error) {
	ctx, cancel := bound(ctx, s.t.ListBranches)
	defer cancel()
	return s.next.ListBranches(ctx, projectID, opts)
}

func (s *timeoutSource) ListCommits(ctx context.Context, projectID int, opts ListCommitsOpts) ([]model.Commit, error) {
	ctx, cancel := bound(ctx, s.t.ListCommits)
	defer cancel()
	return s.next.ListCommits(ctx, projectID, opts)
}

func (s *timeoutSource) CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error) {
	ctx, cancel := bound(ctx, s.t.CommitDiff)
	defer cancel()
	return s.next.CommitDiff(ctx, projectID, sha)
}

type instrumentedSource struct {
	next    Source
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Instrument wraps src to record per-operation metrics and debug logs.
func Instrument(src Source, m *observability.Metrics, logger *slog.Logger) Source {
	return &instrumentedSource{next: src, metrics: m, logger: logger}
}

func (s *instrumentedSource) observe(ctx context.Context, op string, start time.Time, err error, attrs ...any) {
	status := Status(err)
	elapsed := time.Since(start)
	s.metrics.RecordUpstream(ctx, op, status, elapsed)
	if s.logger != nil {
		args := append([]any{"op", op, "status", status, "duration", elapsed}, attrs...)
		if err != nil {
			args = append(args, "error", err)
		}
		s.logger.DebugContext(ctx, "upstream call", args...)
	}
}

func (s *instrumentedSource) ListProjects(ctx context.Context, opts ListProjectsOpts) ([]model.Project, error) {
	start := time.Now()
	res, err := s.next.ListProjects(ctx, opts)
	s.observe(ctx, OpListProjects, start, err, "count", len(res))
	return res, err
}

func (s *instrumentedSource) GetProject(ctx context.Context, id int) (model.Project, error) {
	start := time.Now()
	res, err := s.next.GetProject(ctx, id)
	s.observe(ctx, OpGetProject, start, err, "project", id)
	return res, err
}

func (s *instrumentedSource) ListBranches(ctx context.Context, projectID int, opts ListBranchesOpts) ([]model.Branch, error) {
	start := time.Now()
	res, err := s.next.ListBranches(ctx, projectID, opts)
	s.observe(ctx, OpListBranches, start, err, "project", projectID, "count", len(res))
	return res, err
}

func (s *instrumentedSource) ListCommits(ctx context.Context, projectID int, opts ListCommitsOpts) ([]model.Commit, error) {
	start := time.Now()
	res, err := s.next.ListCommits(ctx, projectID, opts)
	s.observe(ctx, OpListCommits, start, err, "project", projectID, "ref", opts.Ref, "count", len(res))
	return res, err
}

func (s *instrumentedSource) CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error) {
	start := time.Now()
	res, err := s.next.CommitDiff(ctx, projectID, sha)
	s.observe(ctx, OpCommitDiff, start, err, "project", projectID, "commit", sha, "files", len(res))
	return res, err
}

// Status classifies an upstream error for metrics.
func Status(err error) string {
	switch {
	case err == nil:
		return observability.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return observability.StatusTimeout
	case errors.Is(err, ErrNotFound):
		return observability.StatusNotFound
	default:
		return observability.StatusError
	}
}
