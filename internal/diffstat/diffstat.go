// Package diffstat turns unified-diff bodies and whole files into
// code/comment/blank line counts.
package diffstat

import (
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/dsablic/devpulse/internal/lines"
	"github.com/dsablic/devpulse/internal/model"
)

// AnalyzeDiff counts the added and removed lines of a unified-diff body.
// Lines that start with neither '+' nor '-' are ignored. Every counted line
// lands in exactly one category, so Additions always equals the sum of the
// three addition categories (and likewise for Deletions).
func AnalyzeDiff(diffText, filename string) model.DiffStat {
	var stats model.DiffStat
	if diffText == "" {
		return stats
	}

	lang := lines.DetectLanguage(filename)
	for _, line := range strings.Split(diffText, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			stats.Additions++
			switch lines.Classify(line[1:], lang) {
			case lines.KindBlank:
				stats.AdditionsBlank++
			case lines.KindComment:
				stats.AdditionsComments++
			default:
				stats.AdditionsCode++
			}
		case '-':
			stats.Deletions++
			switch lines.Classify(line[1:], lang) {
			case lines.KindBlank:
				stats.DeletionsBlank++
			case lines.KindComment:
				stats.DeletionsComments++
			default:
				stats.DeletionsCode++
			}
		}
	}
	return stats
}

// AnalyzeFileContent counts every line of a whole file by category.
func AnalyzeFileContent(content, filename string) model.FileLines {
	var stats model.FileLines
	if content == "" {
		return stats
	}

	lang := lines.DetectLanguage(filename)
	for _, line := range strings.Split(content, "\n") {
		stats.Total++
		switch lines.Classify(line, lang) {
		case lines.KindBlank:
			stats.Blank++
		case lines.KindComment:
			stats.Comment++
		default:
			stats.Code++
		}
	}
	return stats
}

// Options controls which files of a commit are counted.
type Options struct {
	// SkipVendored drops vendored, generated and dot files.
	SkipVendored bool
}

// FileResult is the per-file outcome of AnalyzeCommit.
type FileResult struct {
	Path     string
	Language string
	Stat     model.DiffStat
	Skipped  bool
}

// AnalyzeCommit sums the per-file statistics of a commit diff.
func AnalyzeCommit(diffs []model.FileDiff, opts Options) (model.DiffStat, []FileResult) {
	var total model.DiffStat
	results := make([]FileResult, 0, len(diffs))

	for _, fd := range diffs {
		path := fd.Path()
		res := FileResult{Path: path, Language: DisplayLanguage(path)}

		if opts.SkipVendored && Excluded(path) {
			res.Skipped = true
			results = append(results, res)
			continue
		}
		if fd.Diff == "" {
			results = append(results, res)
			continue
		}

		res.Stat = AnalyzeDiff(fd.Diff, path)
		total.Add(res.Stat)
		results = append(results, res)
	}
	return total, results
}

// Excluded reports whether path is vendored, generated or a dot file.
func Excluded(path string) bool {
	return enry.IsVendor(path) || enry.IsDotFile(path) || enry.IsGenerated(path, nil)
}

// DisplayLanguage returns a human-readable language name for path,
// preferring linguist naming and falling back to the classifier's key.
func DisplayLanguage(path string) string {
	if name, _ := enry.GetLanguageByExtension(path); name != "" {
		return name
	}
	if name, _ := enry.GetLanguageByFilename(path); name != "" {
		return name
	}
	return lines.DetectLanguage(path).String()
}
