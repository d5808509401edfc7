// Package narrative turns a developer statistics report into prose by piping
// it through a locally installed AI CLI.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrNoCLI is returned when none of the supported CLIs is installed.
var ErrNoCLI = errors.New("no supported AI CLI found")

var supportedCLIs = []string{"claude", "codex", "gemini"}

// SupportedCLIs returns the supported AI CLI names in preference order.
func SupportedCLIs() []string {
	out := make([]string, len(supportedCLIs))
	copy(out, supportedCLIs)
	return out
}

// LookupFunc resolves a command name to its path. Compatible with exec.LookPath.
type LookupFunc func(name string) (string, error)

// DetectCLI finds the first supported AI CLI on the PATH.
func DetectCLI() (string, error) {
	return DetectCLIWith(exec.LookPath)
}

// DetectCLIWith is DetectCLI with an injectable lookup.
func DetectCLIWith(lookup LookupFunc) (string, error) {
	for _, cli := range supportedCLIs {
		if _, err := lookup(cli); err == nil {
			return cli, nil
		}
	}
	return "", fmt.Errorf("%w; install one of: %s", ErrNoCLI, strings.Join(supportedCLIs, ", "))
}

// BuildArgs returns the command and arguments for a non-interactive run of
// cli with prompt.
func BuildArgs(cli, prompt string) (string, []string) {
	switch cli {
	case "codex":
		return "codex", []string{"exec", prompt}
	case "gemini":
		return "gemini", []string{"-p", prompt}
	default:
		return "claude", []string{"-p", prompt}
	}
}

const basePrompt = `You are an engineering manager's assistant. You will receive a JSON document on stdin describing developer contributions to one software project.

The JSON has one of two shapes:
1. **Statistics report**: top-level "developers" (per author: commits, additions, deletions split into code/comments/blank, and a per-branch breakdown), plus "totals", "window", "analyzed_commits", "estimated_commits", "by_language" and "top_files".
2. **Trends report**: top-level "periods", each holding one statistics report under "report".

Some commits are measured from real diffs and the rest are estimated from a size heuristic. Say so when estimated commits outnumber analyzed ones, and treat line counts as approximate.

Produce a Markdown document. Output ONLY Markdown, with no fence around the whole output and no preamble.
Format numbers with comma separators (e.g. 1,234,567).

### For a statistics report

1. **Title**: "# Contribution Report: <project>"
2. **Summary** (## Summary): two short paragraphs on who drove the work in the window and where it landed.
3. **Ranking** (## Ranking): table ordered by commits. Columns: Rank, Developer, Commits, Additions, Deletions, Code %, Main Branch.
4. **Focus Areas** (## Focus Areas): the busiest files and languages, and which branches saw most activity.
5. **Caveats** (## Caveats): estimated share, skipped commits and any errors listed in the report.

### For a trends report

1. **Title**: "# Contribution Trends: <project>"
2. **Overview** (## Overview): how activity changed across periods.
3. **Period Summary** (## Period Summary): one row per period. Columns: Period, Developers, Commits, Additions, Deletions, Top Contributor.
4. **Notable Changes** (## Notable Changes): bullets on developers joining, leaving or shifting volume.

Do not judge individual performance from line counts alone.
`

// DefaultPrompt returns the built-in prompt, with extra appended as
// additional instructions when non-empty.
func DefaultPrompt(extra string) string {
	if extra == "" {
		return basePrompt
	}
	return basePrompt + "\n### Additional Instructions\n\n" + extra + "\n"
}

// Runner executes name with args, feeding stdin and returning stdout.
type Runner func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Generator writes narratives with one AI CLI.
type Generator struct {
	CLI    string
	Prompt string
	Run    Runner
}

// New returns a Generator for cli using DefaultPrompt(extra).
func New(cli, extra string) *Generator {
	return &Generator{CLI: cli, Prompt: DefaultPrompt(extra), Run: execRunner}
}

// Generate marshals report to JSON, pipes it to the CLI and returns the
// generated markdown.
func (g *Generator) Generate(ctx context.Context, report any) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	run := g.Run
	if run == nil {
		run = execRunner
	}
	name, args := BuildArgs(g.CLI, g.Prompt)
	out, err := run(ctx, bytes.NewReader(data), name, args...)
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", g.CLI, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("%s returned no output", g.CLI)
	}
	return text + "\n", nil
}
