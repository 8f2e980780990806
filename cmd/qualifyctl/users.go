package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"qualify/internal/app"
	"qualify/internal/users"
	id "qualify/pkg/domain"
)

type createdUser struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Role        id.Role `json:"role"`
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Provision users",
	}

	var (
		email       string
		displayName string
		role        string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user. The password is read from QUALIFY_USER_PASSWORD so it never appears in shell history.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("QUALIFY_USER_PASSWORD")
			if password == "" {
				return errors.New("QUALIFY_USER_PASSWORD is required")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				u, err := a.Users.Create(cmd.Context(), users.CreateRequest{
					Email:       email,
					DisplayName: displayName,
					Role:        id.Role(role),
					Password:    password,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), createdUser{
					ID:          u.ID.String(),
					Email:       u.Email,
					DisplayName: u.DisplayName,
					Role:        u.Role,
				})
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "Email address (required)")
	create.Flags().StringVar(&displayName, "name", "", "Display name; derived from the email when empty")
	create.Flags().StringVar(&role, "role", string(id.RoleTrainee), "Role: admin, qa or trainee")
	_ = create.MarkFlagRequired("email")
	cmd.AddCommand(create)
	return cmd
}
