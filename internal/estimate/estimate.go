// Package estimate produces synthetic line counts for commits whose diffs
// are not analysed.
package estimate

import (
	"unicode/utf8"

	"github.com/dsablic/devpulse/internal/model"
)

// Bucket is the size class a commit message falls into.
type Bucket string

const (
	Tiny   Bucket = "tiny"
	Small  Bucket = "small"
	Medium Bucket = "medium"
	Large  Bucket = "large"
)

// Lines is a point estimate of added and removed lines.
type Lines struct {
	Additions int64 `mapstructure:"additions" yaml:"additions" json:"additions"`
	Deletions int64 `mapstructure:"deletions" yaml:"deletions" json:"deletions"`
}

// Split is the share of estimated lines attributed to each category.
type Split struct {
	Code    float64 `mapstructure:"code" yaml:"code" json:"code"`
	Comment float64 `mapstructure:"comment" yaml:"comment" json:"comment"`
	Blank   float64 `mapstructure:"blank" yaml:"blank" json:"blank"`
}

// Sum returns Code + Comment + Blank.
func (s Split) Sum() float64 {
	return s.Code + s.Comment + s.Blank
}

// Config holds the heuristic's thresholds, per-bucket estimates and split.
// Thresholds are exclusive lower bounds on message length.
type Config struct {
	SmallThreshold  int   `mapstructure:"small_threshold" yaml:"small_threshold"`
	MediumThreshold int   `mapstructure:"medium_threshold" yaml:"medium_threshold"`
	LargeThreshold  int   `mapstructure:"large_threshold" yaml:"large_threshold"`
	Tiny            Lines `mapstructure:"tiny" yaml:"tiny"`
	Small           Lines `mapstructure:"small" yaml:"small"`
	Medium          Lines `mapstructure:"medium" yaml:"medium"`
	Large           Lines `mapstructure:"large" yaml:"large"`
	Split           Split `mapstructure:"split" yaml:"split"`
}

// DefaultConfig returns the built-in estimation table.
func DefaultConfig() Config {
	return Config{
		SmallThreshold:  50,
		MediumThreshold: 100,
		LargeThreshold:  200,
		Tiny:            Lines{Additions: 8, Deletions: 4},
		Small:           Lines{Additions: 15, Deletions: 8},
		Medium:          Lines{Additions: 25, Deletions: 12},
		Large:           Lines{Additions: 50, Deletions: 25},
		Split:           Split{Code: 0.75, Comment: 0.15, Blank: 0.10},
	}
}

// Estimator applies a Config. The zero value is not usable; use New.
type Estimator struct {
	cfg Config
}

// New returns an Estimator for cfg.
func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the configuration the estimator was built with.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Classify returns the bucket for a message of the given length in characters.
func (e *Estimator) Classify(length int) Bucket {
	switch {
	case length > e.cfg.LargeThreshold:
		return Large
	case length > e.cfg.MediumThreshold:
		return Medium
	case length > e.cfg.SmallThreshold:
		return Small
	default:
		return Tiny
	}
}

func (e *Estimator) lines(b Bucket) Lines {
	switch b {
	case Large:
		return e.cfg.Large
	case Medium:
		return e.cfg.Medium
	case Small:
		return e.cfg.Small
	default:
		return e.cfg.Tiny
	}
}

// Estimate returns synthetic statistics for c, derived only from the length
// of its message. Category counts are truncated, so their sum may fall a few
// lines short of the total.
func (e *Estimator) Estimate(c model.Commit) model.DiffStat {
	return e.ForLength(utf8.RuneCountInString(c.Message))
}

// ForLength is Estimate for a bare message length.
func (e *Estimator) ForLength(length int) model.DiffStat {
	l := e.lines(e.Classify(length))
	sp := e.cfg.Split
	return model.DiffStat{
		Additions:         l.Additions,
		Deletions:         l.Deletions,
		AdditionsCode:     portion(l.Additions, sp.Code),
		AdditionsComments: portion(l.Additions, sp.Comment),
		AdditionsBlank:    portion(l.Additions, sp.Blank),
		DeletionsCode:     portion(l.Deletions, sp.Code),
		DeletionsComments: portion(l.Deletions, sp.Comment),
		DeletionsBlank:    portion(l.Deletions, sp.Blank),
	}
}

func portion(n int64, pct float64) int64 {
	return int64(float64(n) * pct)
}
