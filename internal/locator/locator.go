// Package locator finds the commits of a project in a date window, falling
// back from a broad listing to a preferred branch and then to a bounded scan
// of several branches when the upstream returns nothing.
package locator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/logging"
	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/observability"
	"github.com/dsablic/devpulse/internal/provider"
)

// Strategy names, used in logs and metrics.
const (
	StrategyBroad     = "broad"
	StrategyPreferred = "preferred_branch"
	StrategyScan      = "branch_scan"
)

// Strategy outcomes.
const (
	OutcomeFound = "found"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

const (
	defaultPageSize     = 50
	defaultScanBranches = 3
	defaultScanPerPage  = 20
	defaultScanStop     = 30
)

// errExhausted marks a lookup where every strategy failed upstream. It keeps
// the empty result out of the cache and surfaces as Result.Exhausted.
var errExhausted = errors.New("every commit strategy failed")

// Config bounds the fallback cascade.
type Config struct {
	PreferredBranches []string
	ScanBranches      int
	ScanPerBranch     int
	ScanStopAt        int
	// ScanTimeout applies to each branch of the scan, on top of the
	// source's own listing timeout.
	ScanTimeout time.Duration
}

// DefaultConfig returns the built-in cascade bounds.
func DefaultConfig() Config {
	return Config{
		PreferredBranches: []string{"main", "master", "develop"},
		ScanBranches:      defaultScanBranches,
		ScanPerBranch:     defaultScanPerPage,
		ScanStopAt:        defaultScanStop,
		ScanTimeout:       15 * time.Second,
	}
}

// Locator runs the fallback cascade against a provider.Source.
type Locator struct {
	src     provider.Source
	cache   *cache.Cache
	metrics *observability.Metrics
	logger  *slog.Logger
	cfg     Config
}

// Option configures a Locator.
type Option func(*Locator)

// WithCache caches branch listings and located commits.
func WithCache(c *cache.Cache) Option {
	return func(l *Locator) { l.cache = c }
}

// WithMetrics records one strategy outcome per attempt.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Locator) { l.metrics = m }
}

// WithLogger sets the logger for absorbed upstream failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// WithConfig overrides the cascade bounds.
func WithConfig(cfg Config) Option {
	return func(l *Locator) { l.cfg = cfg }
}

// New returns a Locator reading from src.
func New(src provider.Source, opts ...Option) *Locator {
	l := &Locator{src: src, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDiscard(l.logger)
	return l
}

// CommitsKey is the cache key of a FindCommits call.
func CommitsKey(projectID int, since, until time.Time, limit int) cache.Key {
	return cache.NewKey(cache.OpCommits, projectID).
		With("since", since).
		With("until", until).
		With("limit", limit)
}

// BranchesKey is the cache key of a project's branch listing.
func BranchesKey(projectID int) cache.Key {
	return cache.NewKey(cache.OpBranches, projectID)
}

// Result is the outcome of a commit search. Exhausted reports that every
// strategy failed upstream, so empty Commits say nothing about the window.
type Result struct {
	Commits   []model.Commit
	Exhausted bool
}

// FindCommits returns the commits of projectID between since and until.
// Upstream failures are absorbed: when every strategy fails or finds
// nothing the result is empty and the error nil. Only a cancelled or
// expired ctx is returned as an error. A zero since or until leaves that
// bound open; limit <= 0 means the default page size.
func (l *Locator) FindCommits(ctx context.Context, projectID int, since, until time.Time, limit int) ([]model.Commit, error) {
	res, err := l.Find(ctx, projectID, since, until, limit)
	return res.Commits, err
}

// Find is FindCommits with the outage flag kept, for callers that must not
// keep a result built while upstream was failing.
func (l *Locator) Find(ctx context.Context, projectID int, since, until time.Time, limit int) (Result, error) {
	commits, err := cache.CacheOrCompute(ctx, l.cache, CommitsKey(projectID, since, until, limit),
		func(ctx context.Context) ([]model.Commit, error) {
			return l.locate(ctx, projectID, since, until, limit)
		})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err != nil {
		return Result{Commits: []model.Commit{}, Exhausted: errors.Is(err, errExhausted)}, nil
	}
	return Result{Commits: commits}, nil
}

type attempt struct {
	projectID int
	since     time.Time
	until     time.Time
	failures  int

	branches       []model.Branch
	branchesLoaded bool
}

func (l *Locator) locate(ctx context.Context, projectID int, since, until time.Time, limit int) ([]model.Commit, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	a := &attempt{projectID: projectID, since: since, until: until}

	if commits := l.broad(ctx, a, limit); len(commits) > 0 {
		return commits, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if commits := l.preferred(ctx, a, limit); len(commits) > 0 {
		return commits, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if commits := l.scan(ctx, a); len(commits) > 0 {
		return commits, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.failures > 0 {
		return nil, errExhausted
	}
	return []model.Commit{}, nil
}

func (l *Locator) broad(ctx context.Context, a *attempt, limit int) []model.Commit {
	commits, err := l.src.ListCommits(ctx, a.projectID, provider.ListCommitsOpts{
		AllRefs: true,
		Since:   a.since,
		Until:   a.until,
		PerPage: limit,
		Limit:   limit,
	})
	if err != nil {
		l.fail(ctx, a, StrategyBroad, "", err)
		return nil
	}
	l.record(ctx, StrategyBroad, len(commits))

	for i := range commits {
		commits[i].Attribute(model.BranchMultiple)
	}
	return commits
}

func (l *Locator) preferred(ctx context.Context, a *attempt, limit int) []model.Commit {
	branches := l.loadBranches(ctx, a)
	branch, ok := pickPreferred(branches, l.cfg.PreferredBranches)
	if !ok {
		l.record(ctx, StrategyPreferred, 0)
		return nil
	}

	commits, err := l.src.ListCommits(ctx, a.projectID, provider.ListCommitsOpts{
		Ref:     branch,
		Since:   a.since,
		Until:   a.until,
		PerPage: limit,
		Limit:   limit,
	})
	if err != nil {
		l.fail(ctx, a, StrategyPreferred, branch, err)
		return nil
	}
	l.record(ctx, StrategyPreferred, len(commits))

	for i := range commits {
		commits[i].Attribute(branch)
	}
	return commits
}

func (l *Locator) scan(ctx context.Context, a *attempt) []model.Commit {
	candidates := scanOrder(l.loadBranches(ctx, a))
	if len(candidates) > l.cfg.ScanBranches {
		candidates = candidates[:l.cfg.ScanBranches]
	}

	seen := make(map[string]struct{})
	var unique []model.Commit
	for _, b := range candidates {
		commits, err := l.scanBranch(ctx, a, b.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.fail(ctx, a, StrategyScan, b.Name, err)
			continue
		}
		for _, c := range commits {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			c.Attribute(b.Name)
			unique = append(unique, c)
		}
		if len(unique) >= l.cfg.ScanStopAt {
			break
		}
	}
	l.record(ctx, StrategyScan, len(unique))
	return unique
}

func (l *Locator) scanBranch(ctx context.Context, a *attempt, branch string) ([]model.Commit, error) {
	if l.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.ScanTimeout)
		defer cancel()
	}
	return l.src.ListCommits(ctx, a.projectID, provider.ListCommitsOpts{
		Ref:     branch,
		Since:   a.since,
		Until:   a.until,
		PerPage: l.cfg.ScanPerBranch,
		Limit:   l.cfg.ScanPerBranch,
	})
}

// loadBranches lists branches once per attempt, through the cache.
func (l *Locator) loadBranches(ctx context.Context, a *attempt) []model.Branch {
	if a.branchesLoaded {
		return a.branches
	}
	a.branchesLoaded = true

	branches, err := cache.CacheOrCompute(ctx, l.cache, BranchesKey(a.projectID),
		func(ctx context.Context) ([]model.Branch, error) {
			return l.src.ListBranches(ctx, a.projectID, provider.ListBranchesOpts{All: true})
		})
	if err != nil {
		a.failures++
		l.logger.WarnContext(ctx, "list branches failed",
			"project", a.projectID, "op", provider.OpListBranches, "error", err)
		return nil
	}
	a.branches = branches
	return branches
}

func (l *Locator) fail(ctx context.Context, a *attempt, strategy, branch string, err error) {
	a.failures++
	l.metrics.RecordStrategy(ctx, strategy, OutcomeError)
	l.logger.WarnContext(ctx, "commit strategy failed",
		"project", a.projectID, "op", provider.OpListCommits,
		"strategy", strategy, "branch", branch, "error", err)
}

func (l *Locator) record(ctx context.Context, strategy string, found int) {
	outcome := OutcomeEmpty
	if found > 0 {
		outcome = OutcomeFound
	}
	l.metrics.RecordStrategy(ctx, strategy, outcome)
	l.logger.DebugContext(ctx, "commit strategy finished", "strategy", strategy, "commits", found)
}

// pickPreferred returns the first preferred name present in branches, else
// the first listed branch.
func pickPreferred(branches []model.Branch, preferred []string) (string, bool) {
	if len(branches) == 0 {
		return "", false
	}
	names := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		names[b.Name] = struct{}{}
	}
	for _, p := range preferred {
		if _, ok := names[p]; ok {
			return p, true
		}
	}
	return branches[0].Name, true
}

// scanOrder puts unprotected branches before protected ones, keeping the
// listing order within each group.
func scanOrder(branches []model.Branch) []model.Branch {
	ordered := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		if !b.Protected {
			ordered = append(ordered, b)
		}
	}
	for _, b := range branches {
		if b.Protected {
			ordered = append(ordered, b)
		}
	}
	return ordered
}
