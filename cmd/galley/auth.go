package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/galley/internal/app"
)

const tokenEnv = "GALLEY_TOKEN"

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API token for later sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(token) == "" {
				token = os.Getenv(tokenEnv)
			}
			return withEnv(cmd, flags, func(env *app.Env) error {
				if err := env.Login(cmd.Context(), token); err != nil {
					return fmt.Errorf("login: %w (pass --token or set %s)", err, tokenEnv)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token stored")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (default $"+tokenEnv+")")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(env *app.Env) error {
				if err := env.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token removed")
				return nil
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the API connection and stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(env *app.Env) error {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "api:    %s\n", env.Client.BaseURL())
				if err := env.Client.Ping(cmd.Context()); err != nil {
					fmt.Fprintf(w, "server: unreachable (%v)\n", err)
				} else {
					fmt.Fprintln(w, "server: ok")
				}
				saved, ok, err := env.TokenAge(cmd.Context())
				switch {
				case err != nil:
					return err
				case ok:
					fmt.Fprintf(w, "token:  stored %s\n", saved.Format("2006-01-02 15:04"))
				default:
					fmt.Fprintln(w, "token:  none")
				}
				fmt.Fprintf(w, "log:    %s\n", env.Config.LogPath())
				return nil
			})
		},
	}
}
