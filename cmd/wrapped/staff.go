package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-wrapped/internal/auth"
	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// minPasswordLength guards staff accounts created from the command line.
const minPasswordLength = 8

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts for the feedback inbox",
	}
	cmd.AddCommand(newStaffCreateCmd())
	return cmd
}

type staffInput struct {
	username string
	email    string
	password string
}

func (in staffInput) validate() error {
	switch {
	case strings.TrimSpace(in.username) == "":
		return fmt.Errorf("--username is required")
	case !strings.Contains(in.email, "@"):
		return fmt.Errorf("--email must be an email address")
	case len(in.password) < minPasswordLength:
		return fmt.Errorf("--password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// staffCreator persists staff accounts. *db.StaffRepository satisfies it.
type staffCreator interface {
	Create(ctx context.Context, staff *db.StaffUser) error
}

func createStaff(ctx context.Context, repo staffCreator, in staffInput) (*db.StaffUser, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.password)
	if err != nil {
		return nil, err
	}
	staff := &db.StaffUser{
		Username:     strings.TrimSpace(in.username),
		Email:        strings.TrimSpace(in.email),
		PasswordHash: hash,
	}
	if err := repo.Create(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

func newStaffCreateCmd() *cobra.Command {
	var in staffInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := in.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.db.Close()

			staff, err := createStaff(ctx, env.db.Staff(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created staff user %q (id %d)\n", staff.Username, staff.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.username, "username", "", "login name")
	cmd.Flags().StringVar(&in.email, "email", "", "contact email")
	cmd.Flags().StringVar(&in.password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
