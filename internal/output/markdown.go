// internal/output/markdown.go
package output

import (
	"fmt"
	"io"

	"github.com/dsablic/devpulse/internal/model"
)

func projectName(p *model.Project) string {
	if p == nil {
		return ""
	}
	if p.PathWithNamespace != "" {
		return p.PathWithNamespace
	}
	return p.Name
}

// WriteMarkdown writes the report as GitHub-flavored markdown to w.
func WriteMarkdown(w io.Writer, report model.Report) error {
	fmt.Fprintf(w, "# Developer Statistics Report\n\n")
	if name := projectName(report.Project); name != "" {
		if report.Project.WebURL != "" {
			fmt.Fprintf(w, "**Project:** [%s](%s)\n", name, report.Project.WebURL)
		} else {
			fmt.Fprintf(w, "**Project:** %s\n", name)
		}
	}
	if report.Provider != "" {
		fmt.Fprintf(w, "**Provider:** %s\n", report.Provider)
	}
	fmt.Fprintf(w, "**Window:** %s to %s", report.Window.Since, report.Window.Until)
	if report.Window.Defaulted {
		fmt.Fprintf(w, " (default)")
	}
	fmt.Fprintf(w, "\n**Generated:** %s\n\n", report.GeneratedAt)

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Developers | %d |\n", len(report.Developers))
	fmt.Fprintf(w, "| Commits | %d |\n", report.TotalCommits)
	fmt.Fprintf(w, "| Analyzed commits | %d |\n", report.AnalyzedCommits)
	fmt.Fprintf(w, "| Estimated commits | %d |\n", report.EstimatedCommits)
	fmt.Fprintf(w, "| Additions | %d |\n", report.Totals.Additions)
	fmt.Fprintf(w, "| Deletions | %d |\n\n", report.Totals.Deletions)

	fmt.Fprintf(w, "## Developers\n\n")
	fmt.Fprintf(w, "| # | Developer | Commits | Additions | Deletions | Code +/- | Comments +/- | Branches |\n")
	fmt.Fprintf(w, "|--:|-----------|--------:|----------:|----------:|---------:|-------------:|---------:|\n")
	for i, dev := range ranked(report.Developers) {
		fmt.Fprintf(w, "| %d | %s <%s> | %d | %d | %d | %d/%d | %d/%d | %d |\n",
			i+1, dev.Name, dev.Email, dev.Commits, dev.Additions, dev.Deletions,
			dev.AdditionsCode, dev.DeletionsCode, dev.AdditionsComments, dev.DeletionsComments,
			len(dev.Branches))
	}
	fmt.Fprintln(w)

	if len(report.ByLanguage) > 0 {
		fmt.Fprintf(w, "## Languages\n\n")
		fmt.Fprintf(w, "| Language | Files | Additions | Deletions |\n")
		fmt.Fprintf(w, "|----------|------:|----------:|----------:|\n")
		for _, lang := range report.ByLanguage {
			fmt.Fprintf(w, "| %s | %d | %d | %d |\n", lang.Name, lang.Files, lang.Additions, lang.Deletions)
		}
		fmt.Fprintln(w)
	}

	if len(report.TopFiles) > 0 {
		fmt.Fprintf(w, "## Top Files\n\n")
		fmt.Fprintf(w, "| File | Changes | Additions | Deletions |\n")
		fmt.Fprintf(w, "|------|--------:|----------:|----------:|\n")
		for _, f := range report.TopFiles {
			fmt.Fprintf(w, "| `%s` | %d | %d | %d |\n", f.Path, f.Changes, f.Additions, f.Deletions)
		}
		fmt.Fprintln(w)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "## Errors\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// WriteTrendsMarkdown writes one summary row per period.
func WriteTrendsMarkdown(w io.Writer, report model.TrendsReport) error {
	fmt.Fprintf(w, "# Developer Trends Report\n\n")
	if name := projectName(report.Project); name != "" {
		fmt.Fprintf(w, "**Project:** %s\n", name)
	}
	fmt.Fprintf(w, "**Period:** %s to %s (%s)\n", report.Since, report.Until, report.Interval)
	fmt.Fprintf(w, "**Generated:** %s\n\n", report.GeneratedAt)

	fmt.Fprintf(w, "| Period | Developers | Commits | Additions | Deletions | Top contributor |\n")
	fmt.Fprintf(w, "|--------|-----------:|--------:|----------:|----------:|-----------------|\n")
	for _, p := range report.Periods {
		top := "-"
		if devs := ranked(p.Report.Developers); len(devs) > 0 {
			top = devs[0].Name
		}
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %s |\n",
			p.Period, len(p.Report.Developers), p.Report.TotalCommits,
			p.Report.Totals.Additions, p.Report.Totals.Deletions, top)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteCompositionMarkdown writes a composition baseline as markdown.
func WriteCompositionMarkdown(w io.Writer, c model.Composition) error {
	fmt.Fprintf(w, "# Project Composition\n\n")
	fmt.Fprintf(w, "**Project:** %s\n", c.Project)
	if c.Branch != "" {
		fmt.Fprintf(w, "**Branch:** %s\n", c.Branch)
	}
	if c.License != "" {
		fmt.Fprintf(w, "**License:** %s\n", c.License)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "| Language | Files | Code | Comments | Blanks | Complexity |\n")
	fmt.Fprintf(w, "|----------|------:|-----:|---------:|-------:|-----------:|\n")
	for _, lang := range c.Languages {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %d |\n",
			lang.Name, lang.Files, lang.Code, lang.Comments, lang.Blanks, lang.Complexity)
	}
	fmt.Fprintf(w, "| **Total** | %d | %d | %d | %d | %d |\n\n",
		c.Totals.Files, c.Totals.Code, c.Totals.Comments, c.Totals.Blanks, c.Totals.Complexity)
	return nil
}

// WriteProjectsMarkdown writes a project listing as a markdown table.
func WriteProjectsMarkdown(w io.Writer, listing ProjectListing) error {
	fmt.Fprintf(w, "# Projects\n\n")
	fmt.Fprintf(w, "| ID | Project | Health | Days since activity |\n")
	fmt.Fprintf(w, "|---:|---------|--------|--------------------:|\n")
	for _, p := range listing.Projects {
		name := p.PathWithNamespace
		if name == "" {
			name = p.Name
		}
		if p.WebURL != "" {
			name = fmt.Sprintf("[%s](%s)", name, p.WebURL)
		}
		days := "-"
		if p.Health.DaysSinceActive >= 0 {
			days = fmt.Sprint(p.Health.DaysSinceActive)
		}
		fmt.Fprintf(w, "| %d | %s | %s | %s |\n", p.ID, name, p.Health.Category, days)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteCommitsMarkdown writes a commit listing as a markdown table.
func WriteCommitsMarkdown(w io.Writer, commits []model.Commit) error {
	fmt.Fprintf(w, "| Commit | Date | Author | Branch | Title |\n")
	fmt.Fprintf(w, "|--------|------|--------|--------|-------|\n")
	for _, c := range commits {
		fmt.Fprintf(w, "| `%s` | %s | %s | %s | %s |\n",
			c.ShortID, c.AuthoredDate.UTC().Format("2006-01-02"), c.AuthorName, c.Attribution(), c.Title)
	}
	fmt.Fprintln(w)
	return nil
}
