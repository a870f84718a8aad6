package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.db.Close()

			if err := env.db.Migrate(ctx); err != nil {
				return err
			}
			env.logger.Info("migrations applied")
			return nil
		},
	}
}
