package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsablic/devpulse/internal/auth"
	"github.com/dsablic/devpulse/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
	}
	cmd.AddCommand(newAuthLoginCmd(a), newAuthStatusCmd(a), newAuthLogoutCmd(a))
	return cmd
}

func newAuthLoginCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for the selected provider",
		Long: `Store the token given with --token, or prompt for one on a terminal,
in the credentials file for the provider selected with --provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			providerName := a.cfg.Provider.Kind
			token := a.overrides.token
			if token == "" {
				if !ui.IsInteractive() {
					return errors.New("--token is required when not running in a terminal")
				}
				var err error
				if token, err = ui.PromptToken(providerName); err != nil {
					return err
				}
			}

			store := a.resolver.Store
			cred := auth.Credentials{AccessToken: token, Username: username, BaseURL: a.cfg.Provider.BaseURL}
			if err := store.Save(providerName, cred); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s token to %s\n", providerName, store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "user name paired with the token for git clones")
	return cmd
}

func newAuthStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the provider token comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := a.cfg.Provider.Kind
			res, err := a.resolver.Resolve(cmd.Context(), kind, a.cfg.Provider.Token, a.cfg.Provider.BaseURL)
			if errors.Is(err, auth.ErrNoCredentials) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not authenticated\n", kind)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: token from %s (%s)\n", kind, res.Source, mask(res.Token))
			return nil
		},
	}
}

func newAuthLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			providerName := a.cfg.Provider.Kind
			if err := a.resolver.Store.Delete(providerName); err != nil {
				return fmt.Errorf("remove credentials: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Removed %s token\n", providerName)
			return nil
		},
	}
}

// mask keeps the last four characters of a token.
func mask(token string) string {
	const visible = 4
	if len(token) <= visible {
		return "****"
	}
	return "****" + token[len(token)-visible:]
}
