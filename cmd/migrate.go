package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", app.store.Driver())
			return nil
		},
	}
}
