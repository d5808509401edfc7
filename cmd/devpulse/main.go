package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "devpulse",
		Short: "Per-developer contribution statistics for GitLab and GitHub projects",
		Long: `devpulse measures who changed what in a project over a date window:
commits, added and removed lines split into code, comments and blanks,
and a per-branch breakdown for every author.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default ./devpulse.yaml or $XDG_CONFIG_HOME/devpulse/config.yaml)")
	f.StringVar(&a.overrides.provider, "provider", "", "provider kind (gitlab, github)")
	f.StringVar(&a.overrides.baseURL, "base-url", "", "provider API base URL")
	f.StringVar(&a.overrides.token, "token", "", "provider access token")
	f.StringVar(&a.overrides.owner, "owner", "", "GitHub organization or user to list repositories for")
	f.StringVar(&a.overrides.cache, "cache", "", "cache backend (memory, sqlite, none)")
	f.StringVar(&a.overrides.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newStatsCmd(a),
		newCommitsCmd(a),
		newProjectsCmd(a),
		newTrendsCmd(a),
		newCompositionCmd(a),
		newServeCmd(a),
		newAuthCmd(a),
		newConfigCmd(a),
	)
	return root
}
