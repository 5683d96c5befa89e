package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	appbilling "github.com/ledgerdesk/backend/internal/application/billing"
	domaintimeshift "github.com/ledgerdesk/backend/internal/domain/timeshift"
	"github.com/ledgerdesk/backend/internal/infrastructure/csvimport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// offsetView is what `ledgerctl offset` prints
type offsetView struct {
	OffsetDays int       `json:"offset_days"`
	WallNow    time.Time `json:"wall_now"`
	LogicalNow time.Time `json:"logical_now"`
}

func newOffsetCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "offset",
		Short: "Show the cumulative time shift",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			offset, err := l.engine.Offset(ctx)
			if err != nil {
				return err
			}
			wall := l.clock.Now()
			return printJSON(cmd.OutOrStdout(), offsetView{
				OffsetDays: offset,
				WallNow:    wall,
				LogicalNow: domaintimeshift.LogicalNow(wall, offset),
			})
		}),
	}
}

func newShiftCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Move every stored timestamp back by a number of days",
		Long: `Shift subtracts the given number of days from every order, invoice and
audit timestamp, then marks invoices that became due as OVERDUE.
Shifts accumulate until restore is run.`,
		Example: `  # Simulate 45 days passing
  ledgerctl shift --days 45`,
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			days, _ := cmd.Flags().GetInt("days")
			result, err := l.engine.ShiftBack(ctx, l.actor, days)
			if err != nil {
				return err
			}
			l.log.Info("Ledger shifted", zap.Int("days", days), zap.Int("offset_days", result.OffsetDays))
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
	cmd.Flags().Int("days", 0, fmt.Sprintf("Days to shift back (1-%d)", domaintimeshift.MaxShiftDays))
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

func newRestoreCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Undo all shifts and reinstate overdue invoices",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			result, err := l.engine.Restore(ctx, l.actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
}

func newWipeCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every client, order, invoice and audit entry",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("wipe deletes all ledger data; rerun with --yes to confirm")
			}
			result, err := l.engine.WipeAll(ctx, l.actor)
			if err != nil {
				return err
			}
			l.log.Warn("Ledger wiped", zap.Int64("invoices", result.Invoices))
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
	cmd.Flags().Bool("yes", false, "Confirm the wipe")
	return cmd
}

func newReconcileCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Mark invoices past their due date as OVERDUE",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			flipped, err := l.invoices.ReconcileOverdue(ctx, l.clock.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"overdue": flipped})
		}),
	}
}

func newDashboardCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the KPI dashboard",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			dashboard, err := l.dashboard.ComputeDashboard(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dashboard)
		}),
	}
}

func newSeedCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo clients, orders and an invoice into an empty ledger",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			seeded, err := l.seeder.SeedDemoData(ctx, l.actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"seeded": seeded})
		}),
	}
}

func newGenerateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Place random pending orders for testing",
		RunE: withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
			count, _ := cmd.Flags().GetInt("count")
			orders, err := l.orders.GenerateTestOrders(ctx, l.actor, count)
			if err != nil {
				return err
			}
			codes := make([]string, len(orders))
			for i, o := range orders {
				codes[i] = o.Code
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"generated": len(orders), "codes": codes})
		}),
	}
	cmd.Flags().Int("count", 3, "Number of orders to place (1-100)")
	return cmd
}

func newImportClientsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-clients FILE",
		Short: "Create clients from a CSV export",
		Long: `Reads a CSV file with a header row containing name and email, plus an
optional company column. Valid rows are created in one transaction; rows that
fail validation are listed with their line number and skipped.`,
		Example: `  ledgerctl import-clients clients.csv
  ledgerctl import-clients --delimiter ';' clients.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delimiter, _ := cmd.Flags().GetString("delimiter")
			var opts []csvimport.Option
			if delimiter != "" {
				r, size := utf8.DecodeRuneInString(delimiter)
				if size != len(delimiter) {
					return fmt.Errorf("delimiter must be a single character, got %q", delimiter)
				}
				opts = append(opts, csvimport.WithDelimiter(r))
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			records, err := csvimport.ReadClients(file, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			return withLedger(open, func(ctx context.Context, cmd *cobra.Command, l *ledger) error {
				rows := make([]appbilling.ImportClientRow, len(records))
				for i, rec := range records {
					rows[i] = appbilling.ImportClientRow{
						Line: rec.Line,
						CreateClientInput: appbilling.CreateClientInput{
							Name:    rec.Name,
							Email:   rec.Email,
							Company: rec.Company,
						},
					}
				}
				result, err := l.clients.ImportClients(ctx, l.actor, rows)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"imported": len(result.Imported),
					"rejected": result.Rejected,
				})
			})(cmd, args)
		},
	}
	cmd.Flags().String("delimiter", "", "Field delimiter (default comma)")
	return cmd
}
