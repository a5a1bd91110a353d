package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mesaYaReviews/internal/modules/restaurants/application/port"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "restaurants",
		Short:         "Browse and review restaurants from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.logMetrics()
		},
	}
	root.PersistentFlags().StringVar(&a.staticToken, "token", "", "use this bearer token instead of the stored session")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print raw JSON instead of formatted text")
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newSearchCommand(a),
		newGetCommand(a),
		newCreateCommand(a),
		newUpdateCommand(a),
		newDeleteCommand(a),
		newReviewsCommand(a),
		newReviewCommand(a),
		newUploadCommand(a),
		newPhotoCommand(a),
		newWatchCommand(a),
	)
	return root
}

func newLoginCommand(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.signInSource()
			if err != nil {
				return err
			}
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			if password == "" || password == "-" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if err := source.SignIn(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (session %s)\n", source.Username(), a.sessions.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", `password, or "-" to read it from stdin`)
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.signInSource()
			if err != nil {
				return err
			}
			if err := source.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// describe adds the next step to failures the user can act on.
func describe(err error) error {
	switch {
	case errors.Is(err, port.ErrAuthExpired):
		return fmt.Errorf("%w\nrun `restaurants login` to sign in", err)
	case errors.Is(err, port.ErrSchemaMismatch):
		return fmt.Errorf("unexpected response from the API: %w", err)
	default:
		return err
	}
}
