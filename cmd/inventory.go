package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	reportadapter "github.com/bnema/stockroom/internal/adapters/render/report"
	"github.com/bnema/stockroom/internal/application"
	"github.com/bnema/stockroom/internal/domain"
)

func newIssueCmd(app *app) *cobra.Command {
	var (
		resourceType string
		count        int
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Take free resources of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			kind := domain.NormalizeType(resourceType)
			issued, err := app.allocation.Allocate(cmd.Context(), actor, kind, count)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), application.IssuedText(kind, count, issued))
			return err
		},
	}

	cmd.Flags().StringVar(&resourceType, "type", "", "Resource type")
	cmd.Flags().IntVar(&count, "count", 1, "How many resources to take")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newIngestCmd(app *app) *cobra.Command {
	var (
		resourceType string
		price        string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add supplier credentials read from stdin",
		Long:  "ingest reads one credential per line from stdin. Lines may be login:password[:proxy], labeled (login: x password: y) or separated by spaces, tabs, commas, ; or |.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			unitPrice := app.config.Ingest.Price
			if strings.TrimSpace(price) != "" {
				if unitPrice, err = application.ParsePrice(price); err != nil {
					return err
				}
			}

			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}

			result, err := app.ingestion.Ingest(cmd.Context(), actor, domain.NormalizeType(resourceType), string(text), unitPrice)
			if err != nil {
				return err
			}
			return writeIngestResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&resourceType, "type", "", "Resource type")
	cmd.Flags().StringVar(&price, "price", "", "Unit price (default: ingest.price from config)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newImportCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import an owner batch from stdin",
		Long:  "import reads a header line \"<type> <price>\" followed by login;password;proxy lines from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read batch: %w", err)
			}

			result, err := app.ingestion.Import(cmd.Context(), actor, string(text))
			if err != nil {
				return err
			}
			return writeIngestResult(cmd, result)
		},
	}
}

func writeIngestResult(cmd *cobra.Command, result application.IngestResult) error {
	rendered, err := reportadapter.Ingest(result)
	if err != nil {
		return fmt.Errorf("render ingest result: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func newMineCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List resources currently issued to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			resources, err := app.lifecycle.Issued(cmd.Context(), actor)
			if err != nil {
				return err
			}

			rendered, err := reportadapter.Issued(resources)
			if err != nil {
				return fmt.Errorf("render issued: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newMarkCmd(app *app) *cobra.Command {
	var (
		resource string
		verdict  string
	)

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Record the receipt verdict of an issued resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}
			id, err := parseResourceID(resource)
			if err != nil {
				return err
			}
			parsed, err := domain.ParseVerdict(verdict)
			if err != nil {
				return err
			}

			updated, err := app.lifecycle.MarkStatus(cmd.Context(), actor, id, parsed)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Resource %d marked %s\n", updated.ID, updated.ReceiptState)
			return nil
		},
	}

	cmd.Flags().StringVar(&resource, "resource", "", "Resource id")
	cmd.Flags().StringVar(&verdict, "verdict", "", "Verdict (good|bad|working|blocked|error)")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("verdict")

	return cmd
}

func newLifetimeCmd(app *app) *cobra.Command {
	var (
		resource string
		minutes  int
	)

	presets := make([]string, 0, len(domain.LifetimePresets))
	for _, p := range domain.LifetimePresets {
		presets = append(presets, strconv.Itoa(p))
	}

	cmd := &cobra.Command{
		Use:   "lifetime",
		Short: "Close an issued resource with its lifetime",
		Long:  "lifetime closes a resource. Positive minutes are counted from the issue time; 0 or -1 (until blocked) close it now. Presets: " + strings.Join(presets, ", ") + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}
			id, err := parseResourceID(resource)
			if err != nil {
				return err
			}

			updated, err := app.lifecycle.SetLifetime(cmd.Context(), actor, id, minutes)
			if err != nil {
				return err
			}

			lifetime := 0
			if updated.LifetimeMinutes != nil {
				lifetime = *updated.LifetimeMinutes
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Resource %d closed after %d minutes\n", updated.ID, lifetime)
			return nil
		},
	}

	cmd.Flags().StringVar(&resource, "resource", "", "Resource id")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Lifetime in minutes")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("minutes")

	return cmd
}

func newHistoryCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <resource-id>",
		Short: "Show the audit trail of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}
			id, err := parseResourceID(args[0])
			if err != nil {
				return err
			}

			entries, err := app.lifecycle.History(cmd.Context(), actor, id)
			if err != nil {
				return err
			}

			for _, e := range entries {
				line := fmt.Sprintf("%s\t%s", e.At.Format("2006-01-02 15:04:05"), e.Action)
				if e.ManagerID != nil {
					line += fmt.Sprintf("\tmanager=%d", *e.ManagerID)
				}
				if e.Price.Valid {
					line += "\tprice=" + e.Price.Decimal.StringFixed(2)
				}
				if e.ReceiptState != domain.ReceiptNone {
					line += "\tstate=" + string(e.ReceiptState)
				}
				if e.LifetimeMinutes != nil {
					line += fmt.Sprintf("\tlifetime=%d", *e.LifetimeMinutes)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func newSweepCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close resources held longer than lifecycle.max_hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			expired, err := app.lifecycle.ExpireStale(cmd.Context(), actor)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Expired %d resource(s)\n", len(expired))
			return nil
		},
	}
}
