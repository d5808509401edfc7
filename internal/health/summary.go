// internal/health/summary.go
package health

import (
	"github.com/dsablic/devpulse/internal/model"
)

// Summarize counts projects per health category. Percentages are of the
// classified (non-unknown) projects. Returns nil for an empty listing.
func Summarize(projects []model.ProjectSummary) *model.HealthSummary {
	if len(projects) == 0 {
		return nil
	}

	summary := &model.HealthSummary{}
	for _, p := range projects {
		switch p.Health.Category {
		case model.HealthActive:
			summary.Active.Projects++
		case model.HealthMaintained:
			summary.Maintained.Projects++
		case model.HealthAbandoned:
			summary.Abandoned.Projects++
		default:
			summary.Unknown.Projects++
		}
	}

	classified := summary.Active.Projects + summary.Maintained.Projects + summary.Abandoned.Projects
	if classified > 0 {
		summary.Active.Percent = float64(summary.Active.Projects) / float64(classified) * 100
		summary.Maintained.Percent = float64(summary.Maintained.Projects) / float64(classified) * 100
		summary.Abandoned.Percent = float64(summary.Abandoned.Projects) / float64(classified) * 100
	}
	return summary
}
