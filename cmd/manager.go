package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	reportadapter "github.com/bnema/stockroom/internal/adapters/render/report"
	"github.com/bnema/stockroom/internal/domain"
)

func newManagerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Manage the manager registry",
	}

	cmd.AddCommand(
		newManagerAddCmd(app),
		newManagerListCmd(app),
	)

	return cmd
}

func newManagerAddCmd(app *app) *cobra.Command {
	var (
		name string
		role string
	)

	cmd := &cobra.Command{
		Use:   "add <chat-id>",
		Short: "Register a manager or change its role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}

			manager, err := app.access.Register(cmd.Context(), domain.ManagerID(id), name, role)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered %d as %s\n", manager.ID, manager.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleManager), "Role (manager|admin|owner)")

	return cmd
}

func newManagerListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered managers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			managers, err := app.access.List(cmd.Context())
			if err != nil {
				return err
			}
			for i := range managers {
				managers[i].Name = sanitizeForTerminal(strings.TrimSpace(managers[i].Name))
			}

			rendered, err := reportadapter.Managers(managers)
			if err != nil {
				return fmt.Errorf("render managers: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
