// internal/health/health.go
package health

import (
	"time"

	"github.com/dsablic/devpulse/internal/model"
)

const (
	ActiveThresholdDays     = 180
	MaintainedThresholdDays = 365
)

// Classify returns a ProjectHealth based on the last activity relative to
// now. A zero lastActivity is unknown.
func Classify(lastActivity, now time.Time) model.ProjectHealth {
	if lastActivity.IsZero() {
		return model.ProjectHealth{Category: model.HealthUnknown, DaysSinceActive: -1}
	}

	days := int(now.Sub(lastActivity).Hours() / 24)
	if days < 0 {
		days = 0
	}

	var category model.HealthCategory
	switch {
	case days < ActiveThresholdDays:
		category = model.HealthActive
	case days < MaintainedThresholdDays:
		category = model.HealthMaintained
	default:
		category = model.HealthAbandoned
	}

	return model.ProjectHealth{
		Category:         category,
		LastActivityDate: lastActivity.UTC().Format(time.RFC3339),
		DaysSinceActive:  days,
	}
}

// ClassifyProject classifies p by its last activity, falling back to its
// creation date for projects that never recorded activity.
func ClassifyProject(p model.Project, now time.Time) model.ProjectHealth {
	last := p.LastActivityAt
	if last.IsZero() {
		last = p.CreatedAt
	}
	return Classify(last, now)
}
