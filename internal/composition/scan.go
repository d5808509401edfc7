// internal/composition/scan.go
package composition

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/boyter/scc/v3/processor"
	"github.com/go-enry/go-enry/v2"

	"github.com/dsablic/devpulse/internal/model"
)

var initOnce sync.Once

// Scanner counts lines per language in a checked-out tree using scc.
type Scanner struct {
	// SkipVendored also skips files enry classifies as vendored or
	// generated, beyond the always-skipped dependency directories.
	SkipVendored bool
}

// NewScanner creates a Scanner. scc's language tables are initialised
// exactly once, even when scanners are created concurrently.
func NewScanner() *Scanner {
	initOnce.Do(func() {
		processor.ProcessConstants()
	})
	return &Scanner{}
}

func skipDir(name string) bool {
	switch name {
	case ".git", ".hg", "node_modules", "vendor":
		return true
	}
	return false
}

// Scan walks dir and returns per-language statistics ordered by code lines,
// plus their totals.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]model.CompositionLanguage, model.CompositionLanguage, error) {
	langMap := map[string]*model.CompositionLanguage{}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable files
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if path != dir && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.SkipVendored {
			rel, _ := filepath.Rel(dir, path)
			if enry.IsVendor(rel) || enry.IsGenerated(rel, nil) {
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		possibleLanguages, _ := processor.DetectLanguage(info.Name())
		if len(possibleLanguages) == 0 {
			return nil
		}

		job := &processor.FileJob{
			Filename:          info.Name(),
			Content:           content,
			Bytes:             int64(len(content)),
			PossibleLanguages: possibleLanguages,
		}
		job.Language = processor.DetermineLanguage(job.Filename, job.Language, job.PossibleLanguages, job.Content)
		if job.Language == "" {
			return nil
		}

		processor.CountStats(job)
		if job.Binary {
			return nil
		}

		lang, ok := langMap[job.Language]
		if !ok {
			lang = &model.CompositionLanguage{Name: job.Language}
			langMap[job.Language] = lang
		}
		lang.Files++
		lang.Lines += job.Lines
		lang.Code += job.Code
		lang.Comments += job.Comment
		lang.Blanks += job.Blank
		lang.Complexity += job.Complexity
		return nil
	})
	if err != nil {
		return nil, model.CompositionLanguage{}, err
	}

	var langs []model.CompositionLanguage
	totals := model.CompositionLanguage{Name: "Total"}
	for _, lang := range langMap {
		langs = append(langs, *lang)
		totals.Files += lang.Files
		totals.Lines += lang.Lines
		totals.Code += lang.Code
		totals.Comments += lang.Comments
		totals.Blanks += lang.Blanks
		totals.Complexity += lang.Complexity
	}
	sort.Slice(langs, func(i, j int) bool {
		if langs[i].Code != langs[j].Code {
			return langs[i].Code > langs[j].Code
		}
		return langs[i].Name < langs[j].Name
	})
	return langs, totals, nil
}
