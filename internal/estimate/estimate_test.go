package estimate_test

import (
	"strings"
	"testing"

	"github.com/dsablic/devpulse/internal/estimate"
	"github.com/dsablic/devpulse/internal/model"
)

func TestClassifyBoundaries(t *testing.T) {
	e := estimate.New(estimate.DefaultConfig())

	tests := []struct {
		length   int
		expected estimate.Bucket
	}{
		{0, estimate.Tiny},
		{50, estimate.Tiny},
		{51, estimate.Small},
		{100, estimate.Small},
		{101, estimate.Medium},
		{200, estimate.Medium},
		{201, estimate.Large},
		{5000, estimate.Large},
	}

	for _, tt := range tests {
		if got := e.Classify(tt.length); got != tt.expected {
			t.Errorf("length %d: expected %s, got %s", tt.length, tt.expected, got)
		}
	}
}

func TestEstimate(t *testing.T) {
	e := estimate.New(estimate.DefaultConfig())

	tests := []struct {
		name     string
		message  string
		expected model.DiffStat
	}{
		{
			name:    "tiny",
			message: "fix typo",
			expected: model.DiffStat{
				Additions: 8, Deletions: 4,
				AdditionsCode: 6, AdditionsComments: 1, AdditionsBlank: 0,
				DeletionsCode: 3, DeletionsComments: 0, DeletionsBlank: 0,
			},
		},
		{
			name:    "small",
			message: strings.Repeat("a", 75),
			expected: model.DiffStat{
				Additions: 15, Deletions: 8,
				AdditionsCode: 11, AdditionsComments: 2, AdditionsBlank: 1,
				DeletionsCode: 6, DeletionsComments: 1, DeletionsBlank: 0,
			},
		},
		{
			name:    "medium",
			message: strings.Repeat("b", 150),
			expected: model.DiffStat{
				Additions: 25, Deletions: 12,
				AdditionsCode: 18, AdditionsComments: 3, AdditionsBlank: 2,
				DeletionsCode: 9, DeletionsComments: 1, DeletionsBlank: 1,
			},
		},
		{
			name:    "large",
			message: strings.Repeat("c", 250),
			expected: model.DiffStat{
				Additions: 50, Deletions: 25,
				AdditionsCode: 37, AdditionsComments: 7, AdditionsBlank: 5,
				DeletionsCode: 18, DeletionsComments: 3, DeletionsBlank: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(model.Commit{Message: tt.message})
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestEstimateCountsCharactersNotBytes(t *testing.T) {
	e := estimate.New(estimate.DefaultConfig())
	// 60 runes, 120 bytes.
	msg := strings.Repeat("é", 60)
	if got := e.Estimate(model.Commit{Message: msg}); got.Additions != 15 {
		t.Errorf("expected small bucket (15 additions), got %d", got.Additions)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	e := estimate.New(estimate.DefaultConfig())
	a := e.Estimate(model.Commit{ID: "a", Message: strings.Repeat("x", 120)})
	b := e.Estimate(model.Commit{ID: "b", Message: strings.Repeat("y", 120)})
	if a != b {
		t.Errorf("expected identical estimates for identical lengths, got %+v and %+v", a, b)
	}
}

func TestEstimateTruncatesSplit(t *testing.T) {
	e := estimate.New(estimate.DefaultConfig())
	for _, n := range []int{0, 60, 150, 300} {
		s := e.ForLength(n)
		sum := s.AdditionsCode + s.AdditionsComments + s.AdditionsBlank
		if sum > s.Additions {
			t.Errorf("length %d: split sum %d exceeds additions %d", n, sum, s.Additions)
		}
		if s.Additions-sum > 3 {
			t.Errorf("length %d: split sum %d too far below additions %d", n, sum, s.Additions)
		}
	}
}

func TestCustomConfig(t *testing.T) {
	cfg := estimate.DefaultConfig()
	cfg.Split = estimate.Split{Code: 1}
	cfg.Tiny = estimate.Lines{Additions: 2, Deletions: 1}
	e := estimate.New(cfg)

	got := e.ForLength(1)
	if got.AdditionsCode != 2 || got.DeletionsCode != 1 || got.AdditionsComments != 0 {
		t.Errorf("unexpected stats: %+v", got)
	}
}
