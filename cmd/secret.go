package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage connection secrets referenced from config",
		Long:  "secret stores values that config.toml refers to by name, such as database.dsn_secret and redis.password_secret.",
	}

	cmd.AddCommand(
		newSecretSetCmd(app),
		newSecretDeleteCmd(app),
	)

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
			value := strings.TrimRight(string(data), "\r\n")
			if value == "" {
				return errors.New("secret value is empty")
			}

			if err := app.secrets.Put(cmd.Context(), args[0], value); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s\n", args[0])
			return nil
		},
	}
}

func newSecretDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.secrets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret %s\n", args[0])
			return nil
		},
	}
}
