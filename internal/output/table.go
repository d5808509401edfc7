package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dsablic/devpulse/internal/model"
)

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func num(n int64) string {
	return humanize.Comma(n)
}

func rightAligned(cols ...int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight}
	}
	return cfgs
}

// WriteTable renders the developer ranking as a terminal table.
func WriteTable(w io.Writer, report model.Report) error {
	title := "Developer statistics"
	if name := projectName(report.Project); name != "" {
		title += ": " + name
	}
	fmt.Fprintf(w, "%s (%s to %s)\n", title, report.Window.Since, report.Window.Until)

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"#", "Developer", "Email", "Commits", "Additions", "Deletions", "Code +", "Code -", "Branches"})
	for i, dev := range ranked(report.Developers) {
		tbl.AppendRow(table.Row{
			i + 1, dev.Name, dev.Email, num(dev.Commits),
			num(dev.Additions), num(dev.Deletions),
			num(dev.AdditionsCode), num(dev.DeletionsCode),
			len(dev.Branches),
		})
	}
	tbl.AppendFooter(table.Row{
		"", "Total", "", num(report.TotalCommits),
		num(report.Totals.Additions), num(report.Totals.Deletions),
		num(report.Totals.AdditionsCode), num(report.Totals.DeletionsCode), "",
	})
	tbl.SetColumnConfigs(rightAligned(4, 5, 6, 7, 8, 9))
	tbl.Render()

	fmt.Fprintf(w, "%s analyzed, %s estimated", num(report.AnalyzedCommits), num(report.EstimatedCommits))
	if report.SkippedCommits > 0 {
		fmt.Fprintf(w, ", %s skipped", num(report.SkippedCommits))
	}
	fmt.Fprintln(w)
	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "errors: %s\n", strings.Join(report.Errors, "; "))
	}
	return nil
}

// WriteTrendsTable renders one row per period.
func WriteTrendsTable(w io.Writer, report model.TrendsReport) error {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Period", "Developers", "Commits", "Additions", "Deletions", "Top contributor"})
	for _, p := range report.Periods {
		top := "-"
		if devs := ranked(p.Report.Developers); len(devs) > 0 {
			top = devs[0].Name
		}
		tbl.AppendRow(table.Row{
			p.Period, len(p.Report.Developers), num(p.Report.TotalCommits),
			num(p.Report.Totals.Additions), num(p.Report.Totals.Deletions), top,
		})
	}
	tbl.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	tbl.Render()
	return nil
}

// WriteProjectsTable renders a project listing with health classes.
func WriteProjectsTable(w io.Writer, projects []model.ProjectSummary) error {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Project", "Health", "Last activity", "Default branch"})
	for _, p := range projects {
		last := "-"
		if !p.LastActivityAt.IsZero() {
			last = humanize.Time(p.LastActivityAt)
		}
		name := p.PathWithNamespace
		if name == "" {
			name = p.Name
		}
		tbl.AppendRow(table.Row{p.ID, name, string(p.Health.Category), last, p.DefaultBranch})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d projects", len(projects)), "", "", ""})
	tbl.Render()
	return nil
}

// WriteCompositionTable renders per-language sizes of a checkout.
func WriteCompositionTable(w io.Writer, c model.Composition) error {
	fmt.Fprintf(w, "%s", c.Project)
	if c.Branch != "" {
		fmt.Fprintf(w, "@%s", c.Branch)
	}
	if c.License != "" {
		fmt.Fprintf(w, " (%s)", c.License)
	}
	fmt.Fprintln(w)

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Language", "Files", "Code", "Comments", "Blanks", "Complexity"})
	for _, lang := range c.Languages {
		tbl.AppendRow(table.Row{
			lang.Name, num(lang.Files), num(lang.Code), num(lang.Comments), num(lang.Blanks), num(lang.Complexity),
		})
	}
	tbl.AppendFooter(table.Row{
		"Total", num(c.Totals.Files), num(c.Totals.Code), num(c.Totals.Comments), num(c.Totals.Blanks), num(c.Totals.Complexity),
	})
	tbl.SetColumnConfigs(rightAligned(2, 3, 4, 5, 6))
	tbl.Render()
	return nil
}

// WriteCommitsTable renders a commit listing.
func WriteCommitsTable(w io.Writer, commits []model.Commit) error {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Commit", "Date", "Author", "Branch", "Title"})
	for _, c := range commits {
		tbl.AppendRow(table.Row{c.ShortID, c.AuthoredDate.UTC().Format("2006-01-02"), c.AuthorName, c.Attribution(), c.Title})
	}
	tbl.Render()
	return nil
}
