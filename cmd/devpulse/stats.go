package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsablic/devpulse/internal/composition"
	"github.com/dsablic/devpulse/internal/health"
	"github.com/dsablic/devpulse/internal/model"
	"github.com/dsablic/devpulse/internal/narrative"
	"github.com/dsablic/devpulse/internal/output"
	"github.com/dsablic/devpulse/internal/service"
	"github.com/dsablic/devpulse/internal/ui"
	"github.com/dsablic/devpulse/internal/window"
)

var errProjectRequired = errors.New("a project ID or path is required")

// resolveProject uses the argument when given and otherwise offers an
// interactive picker on a terminal.
func resolveProject(ctx context.Context, e *service.Engine, args []string) (model.Project, error) {
	if len(args) == 1 {
		return e.ResolveProject(ctx, args[0])
	}
	if !ui.IsInteractive() {
		return model.Project{}, errProjectRequired
	}

	projects, err := e.Projects(ctx, "")
	if err != nil {
		return model.Project{}, err
	}
	id, err := ui.PickProject(projects)
	if err != nil {
		return model.Project{}, err
	}
	return e.Project(ctx, id)
}

func addWindowFlags(cmd *cobra.Command, since, until *string) {
	cmd.Flags().StringVar(since, "since", "", "window start (YYYY-MM-DD or RFC 3339, default: until minus the default window)")
	cmd.Flags().StringVar(until, "until", "", "window end (YYYY-MM-DD or RFC 3339, default: now)")
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		since, until, format, prompt string
		refresh, withNarrative       bool
	)

	cmd := &cobra.Command{
		Use:   "stats [project]",
		Short: "Per-developer contribution statistics for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			project, err := resolveProject(ctx, e, args)
			if err != nil {
				return err
			}

			report, err := e.DeveloperStats(ctx, project.ID, since, until, service.StatsOptions{Refresh: refresh})
			if err != nil {
				return err
			}

			if withNarrative {
				cli, err := narrative.DetectCLI()
				if err != nil {
					return err
				}
				text, err := narrative.New(cli, prompt).Generate(ctx, report)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			return output.WriteReport(cmd.OutOrStdout(), outFmt, report)
		},
	}

	addWindowFlags(cmd, &since, &until)
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "output format (json, markdown, table)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "invalidate cached data for the project before computing")
	cmd.Flags().BoolVar(&withNarrative, "narrative", false, "write an AI narrative of the report using a local AI CLI")
	cmd.Flags().StringVar(&prompt, "narrative-prompt", "", "extra instructions for the narrative")
	return cmd
}

func newCommitsCmd(a *app) *cobra.Command {
	var (
		since, until, format string
		limit                int
	)

	cmd := &cobra.Command{
		Use:   "commits <project>",
		Short: "List recent commits of a project",
		Long: `List recent commits of a project, newest first. Short listings
(up to analysis.max_commits_for_cards) ignore the date window.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			project, err := e.ResolveProject(ctx, args[0])
			if err != nil {
				return err
			}
			commits, err := e.Commits(ctx, project.ID, since, until, limit)
			if err != nil {
				return err
			}
			return output.WriteCommits(cmd.OutOrStdout(), outFmt, commits)
		},
	}

	addWindowFlags(cmd, &since, &until)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of commits (default analysis.max_commits_for_cards)")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "output format (json, markdown, table)")
	return cmd
}

func newProjectsCmd(a *app) *cobra.Command {
	var search, format string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects with their activity health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			projects, err := e.Projects(ctx, search)
			if err != nil {
				return err
			}
			return output.WriteProjects(cmd.OutOrStdout(), outFmt, output.ProjectListing{
				Projects: projects,
				Health:   health.Summarize(projects),
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on name, namespace and description")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "output format (json, markdown, table)")
	return cmd
}

func newTrendsCmd(a *app) *cobra.Command {
	var since, until, interval, format string

	cmd := &cobra.Command{
		Use:   "trends <project>",
		Short: "Per-period developer statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			project, err := e.ResolveProject(ctx, args[0])
			if err != nil {
				return err
			}

			progress := ui.NewReporter("Analyzing periods", "Analyzed", "periods", 0)
			trends, err := e.Trends(ctx, project.ID, since, until, interval, progress.Update)
			progress.Done(len(trends.Periods))
			if err != nil {
				return err
			}
			return output.WriteTrends(cmd.OutOrStdout(), outFmt, trends)
		},
	}

	addWindowFlags(cmd, &since, &until)
	cmd.Flags().StringVarP(&interval, "interval", "i", window.Monthly, "period length (weekly, monthly)")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "output format (json, markdown, table)")
	return cmd
}

func newCompositionCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "composition <project>",
		Short: "Size baseline of a project's default branch",
		Long: `Clone the project's default branch and count files, code, comments
and blank lines per language, and detect its license.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			project, err := e.ResolveProject(ctx, args[0])
			if err != nil {
				return err
			}

			username := "oauth2"
			if a.cfg.Provider.Kind == "github" {
				username = "x-access-token"
			}
			scanner := composition.NewScanner()
			scanner.SkipVendored = a.cfg.Analysis.SkipVendored
			analyzer := composition.New(composition.NewCloner(a.token(ctx).Token, username), scanner, a.logger)

			result, err := analyzer.Analyze(ctx, project)
			if err != nil {
				return err
			}
			return output.WriteComposition(cmd.OutOrStdout(), outFmt, result)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "output format (json, markdown, table)")
	return cmd
}
