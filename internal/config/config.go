// Package config loads and validates devpulse configuration from a YAML
// file, DEVPULSE_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dsablic/devpulse/internal/cache"
	"github.com/dsablic/devpulse/internal/estimate"
)

// Sentinel validation errors.
var (
	ErrInvalidProvider   = errors.New("invalid provider kind")
	ErrInvalidTimeout    = errors.New("timeouts must be positive")
	ErrInvalidLimit      = errors.New("analysis limits must be positive")
	ErrInvalidPercentage = errors.New("percentage must be within [0, 1]")
	ErrInvalidThresholds = errors.New("estimation thresholds must be strictly increasing")
	ErrInvalidSplit      = errors.New("estimation split must sum to 1.0")
	ErrInvalidBackend    = errors.New("invalid cache backend")
	ErrInvalidPort       = errors.New("invalid server port")
	ErrInvalidLogLevel   = errors.New("invalid log level")
)

const (
	maxPort        = 65535
	splitTolerance = 0.001
)

// Config holds all devpulse configuration.
type Config struct {
	Provider   ProviderConfig  `mapstructure:"provider" yaml:"provider"`
	Timeouts   TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Analysis   AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Estimation estimate.Config `mapstructure:"estimation" yaml:"estimation"`
	Cache      CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Logging    LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Server     ServerConfig    `mapstructure:"server" yaml:"server"`
}

// ProviderConfig selects and configures the upstream source.
type ProviderConfig struct {
	Kind               string  `mapstructure:"kind" yaml:"kind"`
	BaseURL            string  `mapstructure:"base_url" yaml:"base_url"`
	Token              string  `mapstructure:"token" yaml:"token,omitempty"`
	Owner              string  `mapstructure:"owner" yaml:"owner,omitempty"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	InsecureSkipVerify bool    `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// TimeoutsConfig bounds each upstream operation.
type TimeoutsConfig struct {
	ListProjects time.Duration `mapstructure:"list_projects" yaml:"list_projects"`
	GetProject   time.Duration `mapstructure:"get_project" yaml:"get_project"`
	ListCommits  time.Duration `mapstructure:"list_commits" yaml:"list_commits"`
	BranchScan   time.Duration `mapstructure:"branch_scan" yaml:"branch_scan"`
	ListBranches time.Duration `mapstructure:"list_branches" yaml:"list_branches"`
	CommitDiff   time.Duration `mapstructure:"commit_diff" yaml:"commit_diff"`
}

// AnalysisConfig controls sampling and aggregation.
type AnalysisConfig struct {
	MaxCommitsPerRequest int     `mapstructure:"max_commits_per_request" yaml:"max_commits_per_request"`
	MaxDetailedCommits   int     `mapstructure:"max_detailed_commits" yaml:"max_detailed_commits"`
	MaxCommitsForCards   int     `mapstructure:"max_commits_for_cards" yaml:"max_commits_for_cards"`
	RecentDays           int     `mapstructure:"recent_days" yaml:"recent_days"`
	SamplePercentage     float64 `mapstructure:"sample_percentage" yaml:"sample_percentage"`
	DiffConcurrency      int     `mapstructure:"diff_concurrency" yaml:"diff_concurrency"`
	DefaultWindowDays    int     `mapstructure:"default_window_days" yaml:"default_window_days"`
	SkipVendored         bool    `mapstructure:"skip_vendored" yaml:"skip_vendored"`
	TopFiles             int     `mapstructure:"top_files" yaml:"top_files"`
}

// CacheConfig selects the cache backend and its TTLs.
type CacheConfig struct {
	Backend    string         `mapstructure:"backend" yaml:"backend"`
	Path       string         `mapstructure:"path" yaml:"path"`
	MaxEntries int            `mapstructure:"max_entries" yaml:"max_entries"`
	TTL        CacheTTLConfig `mapstructure:"ttl" yaml:"ttl"`
}

// CacheTTLConfig holds the time-to-live of each cached operation.
type CacheTTLConfig struct {
	Projects   time.Duration `mapstructure:"projects" yaml:"projects"`
	Project    time.Duration `mapstructure:"project" yaml:"project"`
	Commits    time.Duration `mapstructure:"commits" yaml:"commits"`
	CommitDiff time.Duration `mapstructure:"commit_diff" yaml:"commit_diff"`
	Stats      time.Duration `mapstructure:"stats" yaml:"stats"`
	Branches   time.Duration `mapstructure:"branches" yaml:"branches"`
	Default    time.Duration `mapstructure:"default" yaml:"default"`
}

// Map returns the per-operation table understood by the cache package.
func (t CacheTTLConfig) Map() map[string]time.Duration {
	return map[string]time.Duration{
		cache.OpProjects:   t.Projects,
		cache.OpProject:    t.Project,
		cache.OpCommits:    t.Commits,
		cache.OpCommitDiff: t.CommitDiff,
		cache.OpStats:      t.Stats,
		cache.OpBranches:   t.Branches,
	}
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig configures `devpulse serve`.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	Metrics      bool          `mapstructure:"metrics" yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:              "gitlab",
			BaseURL:           "https://gitlab.com",
			RequestsPerSecond: 10,
		},
		Timeouts: TimeoutsConfig{
			ListProjects: 30 * time.Second,
			GetProject:   20 * time.Second,
			ListCommits:  25 * time.Second,
			BranchScan:   15 * time.Second,
			ListBranches: 15 * time.Second,
			CommitDiff:   15 * time.Second,
		},
		Analysis: AnalysisConfig{
			MaxCommitsPerRequest: 10,
			MaxDetailedCommits:   3,
			MaxCommitsForCards:   5,
			RecentDays:           30,
			SamplePercentage:     0.1,
			DiffConcurrency:      2,
			DefaultWindowDays:    30,
			TopFiles:             20,
		},
		Estimation: estimate.DefaultConfig(),
		Cache: CacheConfig{
			Backend:    "memory",
			Path:       filepath.Join("~", ".cache", "devpulse", "cache.db"),
			MaxEntries: cache.DefaultMaxEntries,
			TTL: CacheTTLConfig{
				Projects:   2 * time.Hour,
				Project:    time.Hour,
				Commits:    time.Hour,
				CommitDiff: 30 * time.Minute,
				Stats:      80 * time.Minute,
				Branches:   30 * time.Minute,
				Default:    cache.DefaultTTL,
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			Metrics:      true,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/devpulse/config.yaml, falling back to
// ~/.config/devpulse/config.yaml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "devpulse", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "devpulse", "config.yaml")
}

// searchPaths lists the files tried, in order, when no path is given.
func searchPaths() []string {
	return []string{"devpulse.yaml", DefaultPath()}
}

// Load loads configuration from configPath (or the first existing default
// location when empty), then applies DEVPULSE_* environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configPath == "" {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DEVPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("provider.kind", d.Provider.Kind)
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.owner", "")
	v.SetDefault("provider.requests_per_second", d.Provider.RequestsPerSecond)
	v.SetDefault("provider.insecure_skip_verify", false)

	v.SetDefault("timeouts.list_projects", d.Timeouts.ListProjects)
	v.SetDefault("timeouts.get_project", d.Timeouts.GetProject)
	v.SetDefault("timeouts.list_commits", d.Timeouts.ListCommits)
	v.SetDefault("timeouts.branch_scan", d.Timeouts.BranchScan)
	v.SetDefault("timeouts.list_branches", d.Timeouts.ListBranches)
	v.SetDefault("timeouts.commit_diff", d.Timeouts.CommitDiff)

	v.SetDefault("analysis.max_commits_per_request", d.Analysis.MaxCommitsPerRequest)
	v.SetDefault("analysis.max_detailed_commits", d.Analysis.MaxDetailedCommits)
	v.SetDefault("analysis.max_commits_for_cards", d.Analysis.MaxCommitsForCards)
	v.SetDefault("analysis.recent_days", d.Analysis.RecentDays)
	v.SetDefault("analysis.sample_percentage", d.Analysis.SamplePercentage)
	v.SetDefault("analysis.diff_concurrency", d.Analysis.DiffConcurrency)
	v.SetDefault("analysis.default_window_days", d.Analysis.DefaultWindowDays)
	v.SetDefault("analysis.skip_vendored", d.Analysis.SkipVendored)
	v.SetDefault("analysis.top_files", d.Analysis.TopFiles)

	e := d.Estimation
	v.SetDefault("estimation.small_threshold", e.SmallThreshold)
	v.SetDefault("estimation.medium_threshold", e.MediumThreshold)
	v.SetDefault("estimation.large_threshold", e.LargeThreshold)
	for name, l := range map[string]estimate.Lines{"tiny": e.Tiny, "small": e.Small, "medium": e.Medium, "large": e.Large} {
		v.SetDefault("estimation."+name+".additions", l.Additions)
		v.SetDefault("estimation."+name+".deletions", l.Deletions)
	}
	v.SetDefault("estimation.split.code", e.Split.Code)
	v.SetDefault("estimation.split.comment", e.Split.Comment)
	v.SetDefault("estimation.split.blank", e.Split.Blank)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.ttl.projects", d.Cache.TTL.Projects)
	v.SetDefault("cache.ttl.project", d.Cache.TTL.Project)
	v.SetDefault("cache.ttl.commits", d.Cache.TTL.Commits)
	v.SetDefault("cache.ttl.commit_diff", d.Cache.TTL.CommitDiff)
	v.SetDefault("cache.ttl.stats", d.Cache.TTL.Stats)
	v.SetDefault("cache.ttl.branches", d.Cache.TTL.Branches)
	v.SetDefault("cache.ttl.default", d.Cache.TTL.Default)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.metrics", d.Server.Metrics)
}

// Validate checks cfg for values the engine cannot work with.
func Validate(cfg *Config) error {
	switch cfg.Provider.Kind {
	case "gitlab", "github":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, cfg.Provider.Kind)
	}

	t := cfg.Timeouts
	for name, d := range map[string]time.Duration{
		"list_projects": t.ListProjects,
		"get_project":   t.GetProject,
		"list_commits":  t.ListCommits,
		"branch_scan":   t.BranchScan,
		"list_branches": t.ListBranches,
		"commit_diff":   t.CommitDiff,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidTimeout, name, d)
		}
	}

	a := cfg.Analysis
	for name, n := range map[string]int{
		"max_commits_per_request": a.MaxCommitsPerRequest,
		"max_detailed_commits":    a.MaxDetailedCommits,
		"max_commits_for_cards":   a.MaxCommitsForCards,
		"diff_concurrency":        a.DiffConcurrency,
		"default_window_days":     a.DefaultWindowDays,
	} {
		if n <= 0 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidLimit, name, n)
		}
	}
	if a.RecentDays < 0 || a.TopFiles < 0 {
		return fmt.Errorf("%w: recent_days=%d top_files=%d", ErrInvalidLimit, a.RecentDays, a.TopFiles)
	}
	if a.SamplePercentage < 0 || a.SamplePercentage > 1 {
		return fmt.Errorf("%w: sample_percentage=%g", ErrInvalidPercentage, a.SamplePercentage)
	}

	if err := validateEstimation(cfg.Estimation); err != nil {
		return err
	}

	switch cfg.Cache.Backend {
	case "memory", "sqlite", "none":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.Cache.Backend)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Logging.Level)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Server.Port)
	}

	return nil
}

func validateEstimation(e estimate.Config) error {
	if e.SmallThreshold < 0 || e.SmallThreshold >= e.MediumThreshold || e.MediumThreshold >= e.LargeThreshold {
		return fmt.Errorf("%w: %d, %d, %d", ErrInvalidThresholds, e.SmallThreshold, e.MediumThreshold, e.LargeThreshold)
	}
	for name, p := range map[string]float64{"code": e.Split.Code, "comment": e.Split.Comment, "blank": e.Split.Blank} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: split.%s=%g", ErrInvalidPercentage, name, p)
		}
	}
	if math.Abs(e.Split.Sum()-1) > splitTolerance {
		return fmt.Errorf("%w: got %g", ErrInvalidSplit, e.Split.Sum())
	}
	return nil
}
