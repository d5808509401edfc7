package health

import (
	"math"
	"testing"
	"time"

	"github.com/dsablic/devpulse/internal/model"
)

var now = time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		daysAgo  int
		expected model.HealthCategory
	}{
		{"179 days = active", 179, model.HealthActive},
		{"180 days = maintained", 180, model.HealthMaintained},
		{"364 days = maintained", 364, model.HealthMaintained},
		{"365 days = abandoned", 365, model.HealthAbandoned},
		{"366 days = abandoned", 366, model.HealthAbandoned},
		{"0 days = active", 0, model.HealthActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.AddDate(0, 0, -tt.daysAgo)
			result := Classify(last, now)
			if result.Category != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result.Category)
			}
			if result.DaysSinceActive != tt.daysAgo {
				t.Errorf("expected %d days, got %d", tt.daysAgo, result.DaysSinceActive)
			}
		})
	}
}

func TestClassifyZeroIsUnknown(t *testing.T) {
	result := Classify(time.Time{}, now)
	if result.Category != model.HealthUnknown {
		t.Errorf("expected unknown, got %s", result.Category)
	}
	if result.DaysSinceActive != -1 {
		t.Errorf("expected -1 days, got %d", result.DaysSinceActive)
	}
	if result.LastActivityDate != "" {
		t.Errorf("expected no date, got %q", result.LastActivityDate)
	}
}

func TestClassifyFutureIsActive(t *testing.T) {
	result := Classify(now.Add(48*time.Hour), now)
	if result.Category != model.HealthActive || result.DaysSinceActive != 0 {
		t.Errorf("expected active with 0 days, got %+v", result)
	}
}

func TestClassifyProjectFallsBackToCreation(t *testing.T) {
	p := model.Project{CreatedAt: now.AddDate(0, 0, -200)}
	if got := ClassifyProject(p, now); got.Category != model.HealthMaintained {
		t.Errorf("expected maintained, got %s", got.Category)
	}

	p.LastActivityAt = now.AddDate(0, 0, -3)
	if got := ClassifyProject(p, now); got.Category != model.HealthActive {
		t.Errorf("expected active, got %s", got.Category)
	}
}

func TestSummarize(t *testing.T) {
	projects := []model.ProjectSummary{
		{Health: model.ProjectHealth{Category: model.HealthActive}},
		{Health: model.ProjectHealth{Category: model.HealthActive}},
		{Health: model.ProjectHealth{Category: model.HealthMaintained}},
		{Health: model.ProjectHealth{Category: model.HealthAbandoned}},
		{Health: model.ProjectHealth{Category: model.HealthUnknown}},
	}

	s := Summarize(projects)
	if s == nil {
		t.Fatal("expected summary")
	}
	if s.Active.Projects != 2 || s.Maintained.Projects != 1 || s.Abandoned.Projects != 1 || s.Unknown.Projects != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if math.Abs(s.Active.Percent-50) > 0.001 {
		t.Errorf("expected 50%% active, got %.2f", s.Active.Percent)
	}
	if s.Unknown.Percent != 0 {
		t.Errorf("expected unknown to carry no percentage, got %.2f", s.Unknown.Percent)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}
