// Package service is the presentation-facing boundary of the analytics
// engine: project resolution, cached developer statistics, commit listings
// and cache invalidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/config"
	"github.com/dsablic/devpulse/internal/devstats"
	"github.com/dsablic/devpulse/internal/estimate"
	"github.com/dsablic/devpulse/internal/health"
	"github.com/dsablic/devpulse/internal/locator"
	"github.com/dsablic/devpulse/internal/logging"
	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/observability"
	"github.com/dsablic/devpulse/internal/provider"
	"github.com/dsablic/devpulse/internal/window"
)

// ErrProjectNotFound is returned when upstream reports that a project does
// not exist. Other lookup failures wrap provider.ErrUpstream.
var ErrProjectNotFound = errors.New("project not found")

// ErrInvalidInterval is returned for an unknown trend interval.
var ErrInvalidInterval = errors.New("invalid interval (use weekly or monthly)")

// projectOps are the cache operations scoped to a single project.
var projectOps = []string{
	cache.OpProject,
	cache.OpBranches,
	cache.OpCommits,
	cache.OpCommitDiff,
	cache.OpStats,
}

// Engine serves the analytics operations.
type Engine struct {
	src      provider.Source
	cache    *cache.Cache
	locator  *locator.Locator
	agg      *devstats.Aggregator
	analysis config.AnalysisConfig
	provider string

	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache shares c between the engine and its components.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics passes m on to the locator and the aggregator.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger shared with the engine's components.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now for windows, health and report stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine over src. src should already carry per-operation
// timeouts (see provider.WithTimeouts).
func New(src provider.Source, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		src:      src,
		analysis: cfg.Analysis,
		provider: cfg.Provider.Kind,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDiscard(e.logger)

	lcfg := locator.DefaultConfig()
	lcfg.ScanTimeout = cfg.Timeouts.BranchScan
	e.locator = locator.New(src,
		locator.WithCache(e.cache),
		locator.WithConfig(lcfg),
		locator.WithMetrics(e.metrics),
		locator.WithLogger(e.logger),
	)
	e.agg = devstats.New(e.locator, src, estimate.New(cfg.Estimation), cfg.Analysis,
		devstats.WithCache(e.cache),
		devstats.WithMetrics(e.metrics),
		devstats.WithLogger(e.logger),
		devstats.WithClock(e.now),
	)
	return e
}

// CacheStats reports the engine cache's hit and miss counters.
func (e *Engine) CacheStats() (hits, misses int64) {
	s := e.cache.Stats()
	return s.Hits, s.Misses
}

// StatsOptions modifies a DeveloperStats call.
type StatsOptions struct {
	// Refresh drops every cached entry of the project before computing.
	Refresh bool
}

// StatsKey is the cache key of a DeveloperStats result. The raw window
// strings are used so a defaulted window stays cacheable.
func StatsKey(projectID int, since, until string) cache.Key {
	return cache.NewKey(cache.OpStats, projectID).
		With("since", since).
		With("until", until)
}

// DeveloperStats returns the developer report for projectID. It fails only
// when the project cannot be resolved or ctx is done; every other upstream
// failure degrades the report instead. Degraded reports are not cached.
func (e *Engine) DeveloperStats(ctx context.Context, projectID int, since, until string, opts StatsOptions) (model.Report, error) {
	if opts.Refresh {
		if _, err := e.InvalidateProject(ctx, projectID); err != nil {
			e.logger.WarnContext(ctx, "cache invalidation failed", "project", projectID, "error", err)
		}
	}

	project, err := e.Project(ctx, projectID)
	if err != nil {
		return model.Report{}, err
	}

	report, err := cache.CacheOrCompute(ctx, e.cache, StatsKey(projectID, since, until),
		func(ctx context.Context) (model.Report, error) {
			r, err := e.agg.ComputeDeveloperStats(ctx, projectID, since, until)
			if err != nil {
				return model.Report{}, err
			}
			devstats.SortDevelopers(r.Developers)
			return r, nil
		})
	if err != nil {
		return model.Report{}, err
	}

	report.Project = &project
	report.Provider = e.provider
	return report, nil
}

// InvalidateProject removes every cached entry scoped to projectID and
// returns how many were removed.
func (e *Engine) InvalidateProject(ctx context.Context, projectID int) (int, error) {
	var removed int
	for _, op := range projectOps {
		key := cache.NewKey(op, projectID)
		if err := e.cache.Delete(ctx, key.String()); err != nil {
			return removed, fmt.Errorf("invalidate %s: %w", op, err)
		}
		n, err := e.cache.Invalidate(ctx, key.Prefix())
		if err != nil {
			return removed, fmt.Errorf("invalidate %s: %w", op, err)
		}
		removed += n
	}
	e.logger.InfoContext(ctx, "project cache invalidated", "project", projectID, "entries", removed)
	return removed, nil
}

// Project returns a single project, cached. A missing project yields
// ErrProjectNotFound; an unreachable upstream yields provider.ErrUpstream.
func (e *Engine) Project(ctx context.Context, projectID int) (model.Project, error) {
	p, err := cache.CacheOrCompute(ctx, e.cache, cache.NewKey(cache.OpProject, projectID),
		func(ctx context.Context) (model.Project, error) {
			return e.src.GetProject(ctx, projectID)
		})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Project{}, ctxErr
		}
		if errors.Is(err, provider.ErrNotFound) {
			return model.Project{}, fmt.Errorf("%w: %d: %w", ErrProjectNotFound, projectID, err)
		}
		if !errors.Is(err, provider.ErrUpstream) {
			err = fmt.Errorf("%w: %w", provider.ErrUpstream, err)
		}
		return model.Project{}, fmt.Errorf("get project %d: %w", projectID, err)
	}
	return p, nil
}

// Projects lists projects ordered by name, each classified by activity.
// search filters case-insensitively on name, namespace path and
// description.
func (e *Engine) Projects(ctx context.Context, search string) ([]model.ProjectSummary, error) {
	projects, err := cache.CacheOrCompute(ctx, e.cache, cache.NewKey(cache.OpProjects),
		func(ctx context.Context) ([]model.Project, error) {
			return e.src.ListProjects(ctx, provider.ListProjectsOpts{OrderBy: "name", Sort: "asc"})
		})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	now := e.now()
	out := make([]model.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, model.ProjectSummary{Project: p, Health: health.ClassifyProject(p, now)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func matches(p model.Project, needle string) bool {
	for _, field := range []string{p.Name, p.NameWithNamespace, p.PathWithNamespace, p.Description} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ResolveProject accepts a numeric ID or a namespace path such as
// "group/project".
func (e *Engine) ResolveProject(ctx context.Context, ref string) (model.Project, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return e.Project(ctx, id)
	}

	projects, err := e.Projects(ctx, "")
	if err != nil {
		return model.Project{}, fmt.Errorf("resolve project %s: %w", ref, err)
	}
	for _, p := range projects {
		if strings.EqualFold(p.PathWithNamespace, ref) {
			return p.Project, nil
		}
	}
	return model.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
}

// Commits lists commits of a project, newest first, at most limit of them.
// Small listings (limit up to MaxCommitsForCards) ignore the date window.
func (e *Engine) Commits(ctx context.Context, projectID int, since, until string, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		limit = e.analysis.MaxCommitsForCards
	}

	var r window.Range
	if limit > e.analysis.MaxCommitsForCards {
		r = window.Parse(since, until, e.now(), e.analysis.DefaultWindowDays)
	}

	commits, err := e.locator.FindCommits(ctx, projectID, r.Since, r.Until, limit)
	if err != nil {
		return nil, err
	}
	commits = devstats.CanonicalOrder(commits)
	if len(commits) > limit {
		commits = commits[:limit]
	}
	return commits, nil
}

// ProgressFunc is told about each finished trend period.
type ProgressFunc func(completed, total int, period string)

// Trends computes one developer report per weekly or monthly period.
// progress may be nil.
func (e *Engine) Trends(ctx context.Context, projectID int, since, until, interval string, progress ProgressFunc) (model.TrendsReport, error) {
	if interval != window.Weekly && interval != window.Monthly {
		return model.TrendsReport{}, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}

	project, err := e.Project(ctx, projectID)
	if err != nil {
		return model.TrendsReport{}, err
	}

	r := window.Parse(since, until, e.now(), e.analysis.DefaultWindowDays)
	trends := model.TrendsReport{
		GeneratedAt: e.now().UTC().Format(time.RFC3339),
		Project:     &project,
		Since:       r.Since.Format(time.RFC3339),
		Until:       r.Until.Format(time.RFC3339),
		Interval:    interval,
		Periods:     []model.PeriodReport{},
	}

	periods := window.Periods(r, interval)
	for i, p := range periods {
		report, err := e.agg.Compute(ctx, projectID, p.Range)
		if err != nil {
			return model.TrendsReport{}, err
		}
		devstats.SortDevelopers(report.Developers)
		trends.Periods = append(trends.Periods, model.PeriodReport{Period: p.Label, Report: report})
		if progress != nil {
			progress(i+1, len(periods), p.Label)
		}
	}
	return trends, nil
}
