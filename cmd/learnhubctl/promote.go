package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

// RoleSetter is implemented by *repository.Repository.
type RoleSetter interface {
	SetUserRole(ctx context.Context, username string, role model.Role) error
}

func newPromoteCmd(opts *rootOptions) *cobra.Command {
	var username string
	var demote bool

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant (or with --demote, revoke) the admin role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			repo, err := opts.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			role := model.RoleAdmin
			if demote {
				role = model.RoleLearner
			}
			if err := setRole(cmd.Context(), repo, username, role); err != nil {
				return err
			}
			cmd.Printf("user %s is now %s\n", username, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username to change")
	cmd.Flags().BoolVar(&demote, "demote", false, "Revoke admin instead of granting it")
	return cmd
}

func setRole(ctx context.Context, store RoleSetter, username string, role model.Role) error {
	if err := store.SetUserRole(ctx, username, role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("no user named %q", username)
		}
		return err
	}
	return nil
}
