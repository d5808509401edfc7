package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/dsablic/devpulse/internal/devstats"
	"github.com/dsablic/devpulse/internal/model"
)

// Output formats accepted by the CLI.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatTable    = "table"
)

// ErrUnknownFormat is returned for formats other than json, markdown and table.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a --format value. Empty selects the table.
func ParseFormat(s string) (string, error) {
	switch s {
	case "":
		return FormatTable, nil
	case FormatJSON, FormatMarkdown, FormatTable:
		return s, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// WriteReport renders a developer statistics report in format.
func WriteReport(w io.Writer, format string, report model.Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatMarkdown:
		return WriteMarkdown(w, report)
	case FormatTable:
		return WriteTable(w, report)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteTrends renders a trends report in format.
func WriteTrends(w io.Writer, format string, report model.TrendsReport) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatMarkdown:
		return WriteTrendsMarkdown(w, report)
	case FormatTable:
		return WriteTrendsTable(w, report)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteComposition renders a composition report in format.
func WriteComposition(w io.Writer, format string, c model.Composition) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, c)
	case FormatMarkdown:
		return WriteCompositionMarkdown(w, c)
	case FormatTable:
		return WriteCompositionTable(w, c)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ProjectListing is the JSON shape of a project listing.
type ProjectListing struct {
	Projects []model.ProjectSummary `json:"projects"`
	Health   *model.HealthSummary   `json:"health,omitempty"`
}

// WriteProjects renders a project listing in format.
func WriteProjects(w io.Writer, format string, listing ProjectListing) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, listing)
	case FormatMarkdown:
		return WriteProjectsMarkdown(w, listing)
	case FormatTable:
		if err := WriteProjectsTable(w, listing.Projects); err != nil {
			return err
		}
		if h := listing.Health; h != nil {
			fmt.Fprintf(w, "active %d (%.0f%%), maintained %d (%.0f%%), abandoned %d (%.0f%%), unknown %d\n",
				h.Active.Projects, h.Active.Percent, h.Maintained.Projects, h.Maintained.Percent,
				h.Abandoned.Projects, h.Abandoned.Percent, h.Unknown.Projects)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteCommits renders a commit listing in format.
func WriteCommits(w io.Writer, format string, commits []model.Commit) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, commits)
	case FormatMarkdown:
		return WriteCommitsMarkdown(w, commits)
	case FormatTable:
		return WriteCommitsTable(w, commits)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ranked returns the developers ordered by commit count, then email, without
// modifying the report.
func ranked(devs []model.DeveloperStat) []model.DeveloperStat {
	out := make([]model.DeveloperStat, len(devs))
	copy(out, devs)
	devstats.SortDevelopers(out)
	return out
}
