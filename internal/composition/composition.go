// Package composition measures the size of a project's default branch so
// contribution numbers have a baseline.
package composition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dsablic/devpulse/internal/logging"
	"github.com/dsablic/devpulse/internal/model"
)

// ErrNoCloneURL is returned for projects without an HTTP clone URL.
var ErrNoCloneURL = errors.New("project has no clone URL")

// Analyzer clones a project and scans its tree.
type Analyzer struct {
	cloner  *Cloner
	scanner *Scanner
	logger  *slog.Logger
}

// New returns an Analyzer.
func New(cloner *Cloner, scanner *Scanner, logger *slog.Logger) *Analyzer {
	return &Analyzer{cloner: cloner, scanner: scanner, logger: logging.OrDiscard(logger)}
}

// Analyze clones p's default branch, counts it and detects its license.
func (a *Analyzer) Analyze(ctx context.Context, p model.Project) (model.Composition, error) {
	if p.CloneURL == "" {
		return model.Composition{}, fmt.Errorf("%s: %w", p.PathWithNamespace, ErrNoCloneURL)
	}

	a.logger.InfoContext(ctx, "cloning project", "project", p.PathWithNamespace, "branch", p.DefaultBranch)
	dir, cleanup, err := a.cloner.Clone(ctx, p.CloneURL, p.DefaultBranch)
	if err != nil {
		return model.Composition{}, fmt.Errorf("clone %s: %w", p.PathWithNamespace, err)
	}
	defer cleanup()

	return a.AnalyzeDir(ctx, p, dir)
}

// AnalyzeDir measures an existing checkout of p.
func (a *Analyzer) AnalyzeDir(ctx context.Context, p model.Project, dir string) (model.Composition, error) {
	langs, totals, err := a.scanner.Scan(ctx, dir)
	if err != nil {
		return model.Composition{}, fmt.Errorf("scan %s: %w", p.PathWithNamespace, err)
	}
	if langs == nil {
		langs = []model.CompositionLanguage{}
	}

	return model.Composition{
		Project:   p.PathWithNamespace,
		Branch:    p.DefaultBranch,
		License:   DetectLicense(dir),
		Languages: langs,
		Totals:    totals,
	}, nil
}
