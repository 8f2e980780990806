package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"qualify/internal/app"
	id "qualify/pkg/domain"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens for service accounts and smoke tests",
	}

	var (
		userID string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for an existing active user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, err := id.ParseUserID(userID)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				u, err := a.Users.Get(cmd.Context(), uid)
				if err != nil {
					return err
				}
				if !u.Active {
					return fmt.Errorf("user %s is inactive", uid)
				}
				if ttl <= 0 {
					ttl = a.Config.Auth.TokenTTL
				}
				token, err := a.Tokens.Issue(u.ID, u.Role, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to QUALIFY_JWT_TTL")
	_ = issue.MarkFlagRequired("user-id")
	cmd.AddCommand(issue)
	return cmd
}
