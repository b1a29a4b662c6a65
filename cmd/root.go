package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bnema/stockroom/internal/domain"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stockroom",
		Short:         "Stockroom: issue, track and account for pooled credentials",
		Long:          "stockroom keeps a pool of login/password/proxy resources, hands them out to managers without duplicates, records their verdicts and lifetimes, and reports on stock and purchases.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().Int64("actor", 0, "Chat id of the manager issuing the command")
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newMigrateCmd(app),
		newManagerCmd(app),
		newSecretCmd(app),
		newSayCmd(app),
		newIssueCmd(app),
		newIngestCmd(app),
		newImportCmd(app),
		newMineCmd(app),
		newMarkCmd(app),
		newLifetimeCmd(app),
		newHistoryCmd(app),
		newSweepCmd(app),
		newStockCmd(app),
		newReportCmd(app),
	)

	return rootCmd
}

// resolveActor maps --actor to a role through the manager registry.
func resolveActor(ctx context.Context, cmd *cobra.Command, app *app) (domain.Actor, error) {
	id, err := cmd.Flags().GetInt64("actor")
	if err != nil {
		return domain.Actor{}, err
	}
	if id <= 0 {
		return domain.Actor{}, errors.New("--actor is required")
	}

	actor, err := app.access.Resolve(ctx, domain.ManagerID(id))
	if err != nil {
		return domain.Actor{}, err
	}
	app.logger.Debug().Int64("actor_id", id).Str("role", string(actor.Role)).Str("command", cmd.Name()).Msg("actor resolved")
	return actor, nil
}

func parseResourceID(raw string) (domain.ResourceID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid resource id %q", raw)
	}
	return domain.ResourceID(id), nil
}
