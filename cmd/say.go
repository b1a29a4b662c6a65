package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	reportadapter "github.com/bnema/stockroom/internal/adapters/render/report"
	"github.com/bnema/stockroom/internal/application"
)

func newSayCmd(app *app) *cobra.Command {
	var conversation string

	cmd := &cobra.Command{
		Use:   "say <text...>",
		Short: "Send one chat message to the dialog engine",
		Long:  "say feeds one message to the actor's dialog, as the chat bot would. Start with /issue or /upload; back and cancel work at any step. Pass - to read the message from stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read message: %w", err)
				}
				text = string(data)
			}

			reply, err := app.dialog.Handle(cmd.Context(), application.Inbound{
				Actor: actor,
				Key:   conversation,
				Text:  text,
			})
			if err != nil {
				return err
			}

			for i, chunk := range reportadapter.SplitLines(reply.Text, reportadapter.MessageLimit) {
				if i > 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), chunk)
			}
			if len(reply.Options) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", strings.Join(reply.Options, "] ["))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conversation, "conversation", "", "Conversation key (default: the actor id)")

	return cmd
}
