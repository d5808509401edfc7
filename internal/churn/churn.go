// Package churn accumulates per-file and per-language change volume from
// the commits analysed with real diffs.
package churn

import (
	"sort"

	"github.com/dsablic/devpulse/internal/diffstat"
	"github.com/dsablic/devpulse/internal/model"
)

const DefaultTopFiles = 20

type fileAgg struct {
	changes   int64
	additions int64
	deletions int64
}

type langAgg struct {
	files     map[string]struct{}
	additions int64
	deletions int64
}

// Collector folds per-file diff results. It is not safe for concurrent use.
type Collector struct {
	files map[string]*fileAgg
	langs map[string]*langAgg
}

func NewCollector() *Collector {
	return &Collector{
		files: make(map[string]*fileAgg),
		langs: make(map[string]*langAgg),
	}
}

// Add records one commit's file results. Skipped files are ignored.
func (c *Collector) Add(results []diffstat.FileResult) {
	for _, r := range results {
		if r.Skipped {
			continue
		}

		f, ok := c.files[r.Path]
		if !ok {
			f = &fileAgg{}
			c.files[r.Path] = f
		}
		f.changes++
		f.additions += r.Stat.Additions
		f.deletions += r.Stat.Deletions

		l, ok := c.langs[r.Language]
		if !ok {
			l = &langAgg{files: make(map[string]struct{})}
			c.langs[r.Language] = l
		}
		l.files[r.Path] = struct{}{}
		l.additions += r.Stat.Additions
		l.deletions += r.Stat.Deletions
	}
}

// TopFiles returns up to limit files ordered by change count, then lines
// changed, then path. limit <= 0 uses DefaultTopFiles.
func (c *Collector) TopFiles(limit int) []model.FileChurn {
	if limit <= 0 {
		limit = DefaultTopFiles
	}

	var topFiles []model.FileChurn
	for path, a := range c.files {
		topFiles = append(topFiles, model.FileChurn{
			Path: path, Changes: a.changes, Additions: a.additions, Deletions: a.deletions,
		})
	}

	sort.Slice(topFiles, func(i, j int) bool {
		a, b := topFiles[i], topFiles[j]
		if a.Changes != b.Changes {
			return a.Changes > b.Changes
		}
		if la, lb := a.Additions+a.Deletions, b.Additions+b.Deletions; la != lb {
			return la > lb
		}
		return a.Path < b.Path
	})

	if len(topFiles) > limit {
		topFiles = topFiles[:limit]
	}
	return topFiles
}

// Languages returns per-language totals ordered by lines changed.
func (c *Collector) Languages() []model.LanguageStats {
	var out []model.LanguageStats
	for name, a := range c.langs {
		out = append(out, model.LanguageStats{
			Name:      name,
			Files:     int64(len(a.files)),
			Additions: a.additions,
			Deletions: a.deletions,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ti := out[i].Additions + out[i].Deletions
		tj := out[j].Additions + out[j].Deletions
		if ti != tj {
			return ti > tj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
