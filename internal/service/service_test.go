package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/config"
	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/provider"
	"github.com/dsablic/devpulse/internal/provider/providertest"
	"github.com/dsablic/devpulse/internal/service"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixture() *providertest.Source {
	return &providertest.Source{
		Projects: []model.Project{
			{ID: 1, Name: "Payments", PathWithNamespace: "fin/payments", NameWithNamespace: "Fin / Payments", LastActivityAt: now.AddDate(0, 0, -2)},
			{ID: 2, Name: "archive", PathWithNamespace: "ops/archive", Description: "Old BILLING scripts", LastActivityAt: now.AddDate(-2, 0, 0)},
			{ID: 42, Name: "api", PathWithNamespace: "core/api"},
			{ID: 420, Name: "web", PathWithNamespace: "core/web"},
		},
		Commits: map[int]map[string][]model.Commit{
			42: {"": {
				{ID: "a", AuthorEmail: "x@example.com", AuthorName: "X", Message: "one", AuthoredDate: now.Add(-time.Hour), CreatedAt: now.Add(-time.Hour)},
				{ID: "b", AuthorEmail: "y@example.com", AuthorName: "Y", Message: "two", AuthoredDate: now.Add(-2 * time.Hour), CreatedAt: now.Add(-2 * time.Hour)},
				{ID: "c", AuthorEmail: "y@example.com", AuthorName: "Y", Message: "three", AuthoredDate: now.Add(-3 * time.Hour), CreatedAt: now.Add(-3 * time.Hour)},
			}},
			420: {"": {{ID: "w", AuthorEmail: "z@example.com", Message: "web", AuthoredDate: now}}},
		},
		Diffs: map[string][]model.FileDiff{
			"a": {{NewPath: "a.go", Diff: "+package a"}},
			"b": {{NewPath: "b.go", Diff: "+package b\n+// doc"}},
			"c": {{NewPath: "c.go", Diff: "-package c"}},
		},
	}
}

func newEngine(t *testing.T, src *providertest.Source) (*service.Engine, *cache.Cache) {
	t.Helper()
	c := cache.New(cache.NewMemoryStore(0))
	return service.New(src, config.Default(), service.WithCache(c), service.WithClock(func() time.Time { return now })), c
}

func TestDeveloperStats(t *testing.T) {
	src := fixture()
	e, _ := newEngine(t, src)

	report, err := e.DeveloperStats(context.Background(), 42, "2024-06-01", "2024-06-15", service.StatsOptions{})
	require.NoError(t, err)

	require.NotNil(t, report.Project)
	assert.Equal(t, "core/api", report.Project.PathWithNamespace)
	assert.Equal(t, "gitlab", report.Provider)
	require.Len(t, report.Developers, 2)
	assert.Equal(t, "y@example.com", report.Developers[0].Email, "sorted by commit count")
	assert.Equal(t, int64(2), report.Developers[0].Commits)
	assert.Equal(t, int64(3), report.TotalCommits)
	assert.Equal(t, int64(3), report.AnalyzedCommits)
}

func TestDeveloperStatsIsCached(t *testing.T) {
	src := fixture()
	e, _ := newEngine(t, src)
	ctx := context.Background()

	_, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	_, err = e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, src.Calls(provider.OpListCommits))
	assert.Equal(t, 1, src.Calls(provider.OpGetProject))

	_, err = e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls(provider.OpListCommits))
	assert.Equal(t, 2, src.Calls(provider.OpGetProject))
}

func TestDeveloperStatsUnknownProject(t *testing.T) {
	e, _ := newEngine(t, fixture())

	_, err := e.DeveloperStats(context.Background(), 999, "", "", service.StatsOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrProjectNotFound))
	assert.True(t, errors.Is(err, provider.ErrNotFound))
}

func TestDeveloperStatsUpstreamDownStillReports(t *testing.T) {
	src := fixture()
	down := fmt.Errorf("%w: down", provider.ErrUpstream)
	src.Errs = map[string]error{
		provider.OpListCommits:  down,
		provider.OpListBranches: down,
	}
	e, _ := newEngine(t, src)

	report, err := e.DeveloperStats(context.Background(), 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Developers)
	assert.Equal(t, int64(0), report.TotalCommits)
}

func TestDegradedReportIsNotCached(t *testing.T) {
	src := fixture()
	down := fmt.Errorf("%w: down", provider.ErrUpstream)
	src.Errs = map[string]error{
		provider.OpListCommits:  down,
		provider.OpListBranches: down,
	}
	e, _ := newEngine(t, src)
	ctx := context.Background()

	outage, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.True(t, outage.Degraded)
	assert.NotEmpty(t, outage.Errors)

	src.Errs = nil
	recovered, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.False(t, recovered.Degraded)
	assert.Equal(t, int64(3), recovered.TotalCommits)
	assert.Equal(t, 2, src.Calls(provider.OpListCommits))

	_, err = e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls(provider.OpListCommits), "healthy report served from the cache")
}

func TestEstimatedDiffOutageIsNotCached(t *testing.T) {
	src := fixture()
	down := fmt.Errorf("%w: down", provider.ErrUpstream)
	src.Errs = map[string]error{
		providertest.Key(provider.OpCommitDiff, "a"): down,
	}
	e, _ := newEngine(t, src)
	ctx := context.Background()

	outage, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.True(t, outage.Degraded)
	assert.Equal(t, int64(3), outage.TotalCommits)
	assert.Equal(t, int64(1), outage.EstimatedCommits)

	src.Errs = nil
	recovered, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	assert.False(t, recovered.Degraded)
	assert.Equal(t, int64(3), recovered.AnalyzedCommits)
	assert.Equal(t, 2, src.Calls(providertest.Key(provider.OpCommitDiff, "a")))
}

func TestProjectUpstreamFailureIsNotNotFound(t *testing.T) {
	src := fixture()
	src.Errs = map[string]error{
		provider.OpGetProject: fmt.Errorf("%w: projects returned status 503", provider.ErrUpstream),
	}
	e, _ := newEngine(t, src)

	_, err := e.DeveloperStats(context.Background(), 42, "", "", service.StatsOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, service.ErrProjectNotFound))
	assert.True(t, errors.Is(err, provider.ErrUpstream))

	src.Errs = map[string]error{provider.OpGetProject: errors.New("connection reset")}
	_, err = e.Project(context.Background(), 42)
	assert.True(t, errors.Is(err, provider.ErrUpstream))
}

func TestDeveloperStatsCancelled(t *testing.T) {
	e, _ := newEngine(t, fixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvalidateProjectLeavesOtherProjects(t *testing.T) {
	src := fixture()
	e, c := newEngine(t, src)
	ctx := context.Background()

	_, err := e.DeveloperStats(ctx, 42, "", "", service.StatsOptions{})
	require.NoError(t, err)
	_, err = e.DeveloperStats(ctx, 420, "", "", service.StatsOptions{})
	require.NoError(t, err)

	removed, err := e.InvalidateProject(ctx, 42)
	require.NoError(t, err)
	assert.Positive(t, removed)

	_, ok := c.Get(ctx, cache.NewKey(cache.OpProject, 42).String())
	assert.False(t, ok)
	_, ok = c.Get(ctx, cache.NewKey(cache.OpProject, 420).String())
	assert.True(t, ok, "project 420 must survive invalidating 42")
	_, ok = c.Get(ctx, service.StatsKey(420, "", "").String())
	assert.True(t, ok)
}

func TestProjectsSearchAndHealth(t *testing.T) {
	e, _ := newEngine(t, fixture())
	ctx := context.Background()

	all, err := e.Projects(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"api", "archive", "Payments", "web"},
		[]string{all[0].Name, all[1].Name, all[2].Name, all[3].Name})

	found, err := e.Projects(ctx, "billing")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "archive", found[0].Name)
	assert.Equal(t, model.HealthAbandoned, found[0].Health.Category)

	found, err = e.Projects(ctx, "fin / pay")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, model.HealthActive, found[0].Health.Category)

	found, err = e.Projects(ctx, "core")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestProjectsPropagatesUpstreamError(t *testing.T) {
	src := fixture()
	src.Errs = map[string]error{provider.OpListProjects: provider.ErrUpstream}
	e, _ := newEngine(t, src)

	_, err := e.Projects(context.Background(), "")
	assert.True(t, errors.Is(err, provider.ErrUpstream))
}

func TestResolveProject(t *testing.T) {
	e, _ := newEngine(t, fixture())
	ctx := context.Background()

	p, err := e.ResolveProject(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "api", p.Name)

	p, err = e.ResolveProject(ctx, "FIN/payments")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)

	_, err = e.ResolveProject(ctx, "nope/nope")
	assert.True(t, errors.Is(err, service.ErrProjectNotFound))
}

func TestCommitsCardsIgnoreWindow(t *testing.T) {
	src := fixture()
	e, _ := newEngine(t, src)

	commits, err := e.Commits(context.Background(), 42, "2024-01-01", "2024-01-31", 2)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "a", commits[0].ID, "newest first")

	opts := src.CommitOpts()
	require.NotEmpty(t, opts)
	assert.True(t, opts[0].Since.IsZero())
	assert.True(t, opts[0].Until.IsZero())
}

func TestCommitsLargeListingUsesWindow(t *testing.T) {
	src := fixture()
	e, _ := newEngine(t, src)

	_, err := e.Commits(context.Background(), 42, "2024-06-01", "2024-06-10", 20)
	require.NoError(t, err)

	opts := src.CommitOpts()
	require.NotEmpty(t, opts)
	assert.True(t, opts[0].Since.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 20, opts[0].Limit)
}

func TestTrends(t *testing.T) {
	e, _ := newEngine(t, fixture())

	var seen []string
	progress := func(completed, total int, period string) {
		assert.Equal(t, 3, total)
		assert.Equal(t, len(seen)+1, completed)
		seen = append(seen, period)
	}

	trends, err := e.Trends(context.Background(), 42, "2024-04-01", "2024-06-15", "monthly", progress)
	require.NoError(t, err)
	require.Len(t, trends.Periods, 3)
	assert.Equal(t, "2024-04", trends.Periods[0].Period)
	assert.Equal(t, "2024-06", trends.Periods[2].Period)
	assert.Equal(t, []string{"2024-04", "2024-05", "2024-06"}, seen)

	_, err = e.Trends(context.Background(), 42, "", "", "daily", nil)
	assert.True(t, errors.Is(err, service.ErrInvalidInterval))
}

func TestCacheStats(t *testing.T) {
	e, _ := newEngine(t, fixture())
	ctx := context.Background()

	_, _ = e.Project(ctx, 42)
	_, _ = e.Project(ctx, 42)

	hits, misses := e.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
