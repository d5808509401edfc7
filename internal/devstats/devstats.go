// Package devstats aggregates per-developer contribution statistics for a
// project over a date window.
//
// Commits come from a CommitFinder. A small detailed sample, plus every
// recent commit, is measured from its real diff; the rest are estimated
// from their message length. Diff fetches run concurrently; folding into
// the per-developer totals is sequential.
package devstats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/churn"
	"github.com/dsablic/devpulse/internal/config"
	"github.com/dsablic/devpulse/internal/diffstat"
	"github.com/dsablic/devpulse/internal/estimate"
	"github.com/dsablic/devpulse/internal/locator"
	"github.com/dsablic/devpulse/internal/logging"
	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/observability"
	"github.com/dsablic/devpulse/internal/window"
)

const (
	UnknownAuthorName  = "Unknown"
	UnknownAuthorEmail = "unknown@example.com"
)

// CommitFinder locates the commits of a project in a window.
type CommitFinder interface {
	Find(ctx context.Context, projectID int, since, until time.Time, limit int) (locator.Result, error)
}

// DiffSource fetches the per-file diff of a commit.
type DiffSource interface {
	CommitDiff(ctx context.Context, projectID int, sha string) ([]model.FileDiff, error)
}

// Aggregator computes developer statistics reports.
type Aggregator struct {
	finder    CommitFinder
	diffs     DiffSource
	estimator *estimate.Estimator
	cfg       config.AnalysisConfig

	cache   *cache.Cache
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache caches fetched commit diffs.
func WithCache(c *cache.Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithMetrics records how many commits were measured and estimated.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger for absorbed lookup and diff failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock replaces time.Now, for the default window and recency checks.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New returns an Aggregator.
func New(finder CommitFinder, diffs DiffSource, est *estimate.Estimator, cfg config.AnalysisConfig, opts ...Option) *Aggregator {
	a := &Aggregator{
		finder:    finder,
		diffs:     diffs,
		estimator: est,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDiscard(a.logger)
	return a
}

// DiffKey is the cache key of a commit diff.
func DiffKey(projectID int, sha string) cache.Key {
	return cache.NewKey(cache.OpCommitDiff, projectID, sha)
}

// ComputeDeveloperStats parses since and until (falling back to the default
// trailing window) and aggregates the project's commits in that window.
// Upstream failures are absorbed; only context errors are returned.
func (a *Aggregator) ComputeDeveloperStats(ctx context.Context, projectID int, since, until string) (model.Report, error) {
	r := window.Parse(since, until, a.now(), a.cfg.DefaultWindowDays)
	if r.Defaulted && (since != "" || until != "") {
		a.logger.DebugContext(ctx, "invalid window, using default",
			"project", projectID, "since", since, "until", until)
	}
	return a.Compute(ctx, projectID, r)
}

// measurement is the contribution of one commit. failed marks a real diff
// that could not be fetched.
type measurement struct {
	stat   model.DiffStat
	files  []diffstat.FileResult
	real   bool
	failed bool
}

func countFailed(ms []measurement) int {
	n := 0
	for _, m := range ms {
		if m.failed {
			n++
		}
	}
	return n
}

// Compute aggregates the commits of projectID within r.
func (a *Aggregator) Compute(ctx context.Context, projectID int, r window.Range) (model.Report, error) {
	now := a.now()
	report := model.Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Window:      r.Model(),
		Developers:  []model.DeveloperStat{},
	}

	found, err := a.finder.Find(ctx, projectID, r.Since, r.Until, a.cfg.MaxCommitsPerRequest)
	if err != nil {
		if ctx.Err() != nil {
			return model.Report{}, ctx.Err()
		}
		a.logger.WarnContext(ctx, "commit lookup failed", "project", projectID, "error", err)
		report.Errors = append(report.Errors, "commit lookup failed: "+err.Error())
		report.Degraded = true
		return report, nil
	}
	if found.Exhausted {
		report.Errors = append(report.Errors, "commit lookup failed on every strategy")
		report.Degraded = true
	}

	commits := CanonicalOrder(found.Commits)
	selected := a.selectReal(commits, now)

	measured, err := a.measure(ctx, projectID, commits, selected)
	if err != nil {
		return model.Report{}, err
	}
	if failed := countFailed(measured); failed > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%d commit diffs unavailable, estimated instead", failed))
		report.Degraded = true
	}

	a.fold(ctx, &report, commits, measured)
	return report, nil
}

// CanonicalOrder sorts commits newest first by authored date, ties by ID.
// Upstream order differs between discovery strategies, so sampling works
// on this order instead.
func CanonicalOrder(commits []model.Commit) []model.Commit {
	sorted := append([]model.Commit(nil), commits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.AuthoredDate.Equal(b.AuthoredDate) {
			return a.AuthoredDate.After(b.AuthoredDate)
		}
		return a.ID < b.ID
	})
	return sorted
}

// SampleSize returns how many leading commits get a real diff:
// max(1, min(maxDetailed, floor(n*pct))), or 0 for no commits.
func SampleSize(n, maxDetailed int, pct float64) int {
	if n == 0 {
		return 0
	}
	size := int(float64(n) * pct)
	if size > maxDetailed {
		size = maxDetailed
	}
	if size < 1 {
		size = 1
	}
	return size
}

// selectReal marks the commits that are measured from a real diff: the
// detailed sample and every commit created within RecentDays of now.
func (a *Aggregator) selectReal(commits []model.Commit, now time.Time) []bool {
	selected := make([]bool, len(commits))
	sample := SampleSize(len(commits), a.cfg.MaxDetailedCommits, a.cfg.SamplePercentage)

	recent := time.Duration(a.cfg.RecentDays) * 24 * time.Hour
	for i, c := range commits {
		if i < sample {
			selected[i] = true
			continue
		}
		if a.cfg.RecentDays > 0 && !c.CreatedAt.IsZero() && now.Sub(c.CreatedAt) <= recent {
			selected[i] = true
		}
	}
	return selected
}

// measure fetches the selected diffs with bounded concurrency and estimates
// everything else. A failed or empty diff falls back to the estimate.
func (a *Aggregator) measure(ctx context.Context, projectID int, commits []model.Commit, selected []bool) ([]measurement, error) {
	results := make([]measurement, len(commits))

	limit := a.cfg.DiffConcurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	opts := diffstat.Options{SkipVendored: a.cfg.SkipVendored}
	for i, c := range commits {
		if !selected[i] || c.ID == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			diffs, err := cache.CacheOrCompute(ctx, a.cache, DiffKey(projectID, c.ID),
				func(ctx context.Context) ([]model.FileDiff, error) {
					return a.diffs.CommitDiff(ctx, projectID, c.ID)
				})
			if err != nil {
				a.logger.DebugContext(ctx, "commit diff failed, estimating",
					"project", projectID, "commit", c.ID, "error", err)
				results[i].failed = true
				return
			}
			stat, files := diffstat.AnalyzeCommit(diffs, opts)
			if stat.IsZero() {
				return
			}
			results[i] = measurement{stat: stat, files: files, real: true}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, c := range commits {
		if !results[i].real {
			results[i].stat = a.estimator.Estimate(c)
		}
	}
	return results, nil
}

// fold accumulates the measurements into report, in commit order.
func (a *Aggregator) fold(ctx context.Context, report *model.Report, commits []model.Commit, measured []measurement) {
	devs := make(map[string]*model.DeveloperStat)
	var order []string
	files := churn.NewCollector()

	for i, c := range commits {
		if c.ID == "" {
			report.SkippedCommits++
			a.logger.WarnContext(ctx, "skipping commit without id", "author", c.AuthorEmail)
			continue
		}
		m := measured[i]

		email := c.AuthorEmail
		if email == "" {
			email = UnknownAuthorEmail
		}
		dev, ok := devs[email]
		if !ok {
			name := c.AuthorName
			if name == "" {
				name = UnknownAuthorName
			}
			dev = model.NewDeveloperStat(name, email)
			devs[email] = dev
			order = append(order, email)
		}

		dev.Commits++
		dev.Add(m.stat)
		branch := dev.Branch(c.Attribution())
		branch.Commits++
		branch.Add(m.stat)

		report.TotalCommits++
		report.Totals.Add(m.stat)
		if m.real {
			dev.AnalyzedCommits++
			report.AnalyzedCommits++
			files.Add(m.files)
		} else {
			dev.EstimatedCommits++
			report.EstimatedCommits++
		}
	}

	for _, email := range order {
		report.Developers = append(report.Developers, *devs[email])
	}
	report.ByLanguage = files.Languages()
	report.TopFiles = files.TopFiles(a.cfg.TopFiles)

	a.metrics.RecordAnalyzed(ctx, observability.ModeReal, int(report.AnalyzedCommits))
	a.metrics.RecordAnalyzed(ctx, observability.ModeEstimate, int(report.EstimatedCommits))
	a.metrics.RecordAnalyzed(ctx, observability.ModeSkipped, int(report.SkippedCommits))
	a.logger.DebugContext(ctx, "aggregated developer stats",
		"commits", report.TotalCommits,
		"analyzed", report.AnalyzedCommits,
		"estimated", report.EstimatedCommits,
		"developers", len(report.Developers))
}

// SortDevelopers orders developers by commit count descending, then email.
func SortDevelopers(devs []model.DeveloperStat) {
	sort.SliceStable(devs, func(i, j int) bool {
		if devs[i].Commits != devs[j].Commits {
			return devs[i].Commits > devs[j].Commits
		}
		return devs[i].Email < devs[j].Email
	})
}
