package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dsablic/devpulse/internal/auth"
	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/config"
	"github.com/dsablic/devpulse/internal/logging"
	"github.com/dsablic/devpulse/internal/observability"
	"github.com/dsablic/devpulse/internal/provider"
	"github.com/dsablic/devpulse/internal/service"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	overrides  struct {
		provider string
		baseURL  string
		token    string
		owner    string
		cache    string
		logLevel string
	}

	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer

	// resolver is replaced in tests.
	resolver *auth.Resolver
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	o := a.overrides
	if o.provider != "" {
		cfg.Provider.Kind = o.provider
	}
	if o.baseURL != "" {
		cfg.Provider.BaseURL = o.baseURL
	}
	if o.token != "" {
		cfg.Provider.Token = o.token
	}
	if o.owner != "" {
		cfg.Provider.Owner = o.owner
	}
	if o.cache != "" {
		cfg.Cache.Backend = o.cache
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closers = append(a.closers, closer)
	if a.resolver == nil {
		a.resolver = auth.NewResolver(auth.NewFileStore(auth.DefaultStorePath()))
	}
	a.logger.DebugContext(cmd.Context(), "configuration loaded", "provider", cfg.Provider.Kind, "cache", cfg.Cache.Backend)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

// token resolves the provider token. A missing token is not fatal: public
// GitLab projects and GitHub repositories can be read anonymously.
func (a *app) token(ctx context.Context) auth.Resolved {
	res, err := a.resolver.Resolve(ctx, a.cfg.Provider.Kind, a.cfg.Provider.Token, a.cfg.Provider.BaseURL)
	if err != nil {
		if !errors.Is(err, auth.ErrNoCredentials) {
			a.logger.WarnContext(ctx, "credentials lookup failed", "error", err)
		}
		a.logger.WarnContext(ctx, "no token found, using anonymous access", "provider", a.cfg.Provider.Kind)
		return auth.Resolved{}
	}
	a.logger.DebugContext(ctx, "token resolved", "source", res.Source)
	return res
}

// source builds the upstream client: rate limited HTTP, per-operation
// timeouts, then metrics.
func (a *app) source(ctx context.Context, metrics *observability.Metrics) (provider.Source, error) {
	p := a.cfg.Provider
	client := provider.NewHTTPClient(p.RequestsPerSecond, p.InsecureSkipVerify)
	token := a.token(ctx).Token

	var src provider.Source
	switch p.Kind {
	case "gitlab":
		src = provider.NewGitLab(token, p.BaseURL, client)
	case "github":
		gh, err := provider.NewGitHub(token, p.BaseURL, p.Owner, client)
		if err != nil {
			return nil, err
		}
		src = gh
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, p.Kind)
	}

	t := a.cfg.Timeouts
	src = provider.WithTimeouts(src, provider.Timeouts{
		ListProjects: t.ListProjects,
		GetProject:   t.GetProject,
		ListBranches: t.ListBranches,
		ListCommits:  t.ListCommits,
		CommitDiff:   t.CommitDiff,
	})
	return provider.Instrument(src, metrics, a.logger), nil
}

// newCache opens the configured backend. "none" yields a nil cache, which
// every consumer treats as always-miss.
func (a *app) newCache() (*cache.Cache, error) {
	c := a.cfg.Cache
	var store cache.Store
	switch c.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		s, err := cache.OpenSQLite(c.Path, nil)
		if err != nil {
			return nil, err
		}
		if n, err := s.Prune(context.Background()); err == nil && n > 0 {
			a.logger.Debug("pruned expired cache entries", "count", n)
		}
		store = s
	default:
		store = cache.NewMemoryStore(c.MaxEntries)
	}

	rc := cache.New(store,
		cache.WithTTLs(c.TTL.Map()),
		cache.WithDefaultTTL(c.TTL.Default),
		cache.WithLogger(a.logger),
	)
	a.closers = append(a.closers, rc)
	return rc, nil
}

// engine wires the service for CLI commands, which do not export metrics.
func (a *app) engine(ctx context.Context) (*service.Engine, error) {
	return a.engineWith(ctx, observability.Noop())
}

func (a *app) engineWith(ctx context.Context, metrics *observability.Metrics) (*service.Engine, error) {
	src, err := a.source(ctx, metrics)
	if err != nil {
		return nil, err
	}
	rc, err := a.newCache()
	if err != nil {
		return nil, err
	}
	return service.New(src, a.cfg,
		service.WithCache(rc),
		service.WithMetrics(metrics),
		service.WithLogger(a.logger),
	), nil
}
