package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/transfer"
)

// source tags the events ledgerctl publishes.
const source = "ledgerctl"

var errOwnerRequired = errors.New("--owner is required")

// withLedger opens the store, loads owner's ledger and hands it to fn.
// Mutations are announced on pub when it is set.
func withLedger(ctx context.Context, open opener, pub ledger.Publisher, logger *log.Logger, owner string, fn func(*ledger.Manager) error) error {
	if owner == "" {
		return errOwnerRequired
	}
	res, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer closeBackend(res.Cleanup, logger)

	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithSource(source)}
	if pub != nil {
		opts = append(opts, ledger.WithPublisher(pub))
	}
	m := ledger.New(owner, res.Backend, opts...)
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	return fn(m)
}

func closeBackend(cleanup func() error, logger *log.Logger) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Warn("Failed to close backend", log.FieldError, err)
	}
}

// ─── export ─────────────────────────────────────────────────────────────────

func newExportCmd(open opener, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's ledger as json, xlsx or csv",
		Long:  `Export an owner's ledger. Exporting never writes to the store: an owner with no saved profile is exported with the default settings.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if owner == "" {
				return errOwnerRequired
			}

			write, err := exporter(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := open(ctx)
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer closeBackend(res.Cleanup, logger)

			snap, err := ledger.ReadSnapshot(ctx, res.Backend, owner)
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			if output == "" || output == "-" {
				if err := write(cmd.OutOrStdout(), snap); err != nil {
					return fmt.Errorf("export %s: %w", format, err)
				}
				return nil
			}
			if err := writeFile(output, func(w io.Writer) error { return write(w, snap) }); err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s ledger to %s\n", owner, output)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "json", "Export format: json, xlsx or csv")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

// writeFile creates path and hands it to write. A failed close is an error.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return write(f)
}

func exporter(format string) (func(io.Writer, core.Snapshot) error, error) {
	switch strings.ToLower(format) {
	case "json":
		return transfer.ExportJSON, nil
	case "xlsx":
		return transfer.ExportXLSX, nil
	case "csv":
		return transfer.ExportCSV, nil
	}
	return nil, fmt.Errorf("unknown format %q: want json, xlsx or csv", format)
}

// ─── import ─────────────────────────────────────────────────────────────────

func newImportCmd(open opener, pub ledger.Publisher, logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Apply the settings of an exported JSON document",
		Long:  `Apply the profile settings carried by a JSON export. Cards and transactions in the document are not imported.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			patch, err := transfer.ParseImport(f)
			if err != nil {
				return err
			}

			return withLedger(cmd.Context(), open, pub, logger, owner, func(m *ledger.Manager) error {
				profile, err := m.UpdateSettings(cmd.Context(), patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported settings for %s (budget %s)\n", owner, profile.MonthlyBudget)
				return nil
			})
		},
	}
}

// ─── reset ──────────────────────────────────────────────────────────────────

func newResetCmd(open opener, pub ledger.Publisher, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every card and transaction and restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to reset %q without --yes", owner)
			}
			return withLedger(cmd.Context(), open, pub, logger, owner, func(m *ledger.Manager) error {
				if err := m.ResetAllData(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset ledger for %s\n", owner)
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm the reset")
	return cmd
}

// ─── reconcile ──────────────────────────────────────────────────────────────

func newReconcileCmd(open opener, pub ledger.Publisher, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute stored card balances from transactions",
		Long: `Recompute card balances from their opening balance and transaction history.
Without --owner every owner in the store is reconciled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			cardID, _ := cmd.Flags().GetString("card")
			if cardID != "" && owner == "" {
				return fmt.Errorf("--card needs --owner")
			}

			ctx := cmd.Context()
			res, err := open(ctx)
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer closeBackend(res.Cleanup, logger)
			out := cmd.OutOrStdout()

			if cardID != "" {
				card, changed, err := ledger.ReconcileCard(ctx, res.Backend, owner, cardID)
				if err != nil {
					return err
				}
				state := "already consistent"
				if changed {
					state = "repaired"
					announce(ctx, pub, logger, owner, card.ID)
				}
				fmt.Fprintf(out, "%s/%s %s: balance %s\n", owner, card.ID, state, card.Balance)
				return nil
			}

			owners := []string{owner}
			if owner == "" {
				if owners, err = res.Backend.ListOwners(ctx); err != nil {
					return fmt.Errorf("list owners: %w", err)
				}
			}
			repaired := 0
			for _, o := range owners {
				fixed, err := ledger.ReconcileOwner(ctx, res.Backend, o)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", o, err)
				}
				for _, id := range fixed {
					announce(ctx, pub, logger, o, id)
					fmt.Fprintf(out, "%s/%s repaired\n", o, id)
				}
				repaired += len(fixed)
			}
			fmt.Fprintf(out, "Reconciled %d owner(s), %d card(s) repaired\n", len(owners), repaired)
			return nil
		},
	}
	cmd.Flags().String("card", "", "Reconcile a single card")
	return cmd
}

// announce tells running servers a card was rewritten behind their back.
func announce(ctx context.Context, pub ledger.Publisher, logger *log.Logger, owner, cardID string) {
	if pub == nil {
		return
	}
	e := ledger.Event{
		Type:   ledger.EventCardReconciled,
		Owner:  owner,
		CardID: cardID,
		Op:     ledger.OpReconcile,
		Source: source,
		At:     time.Now().UTC(),
	}
	if err := pub.Publish(ctx, e); err != nil {
		logger.Warn("Failed to announce reconciled card", log.FieldError, err, log.FieldOwner, owner, log.FieldCardID, cardID)
	}
}

// ─── effective-month ────────────────────────────────────────────────────────

func newEffectiveMonthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "effective-month DATE",
		Short: "Show the budgeting month a transaction dated DATE counts toward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			date, err := core.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			tx := core.Transaction{Kind: core.TxKind(strings.ToLower(kind)), OccurredAt: date}
			if !tx.Kind.Valid() {
				return fmt.Errorf("invalid kind %q: want income or expense", kind)
			}
			month, year := core.EffectiveMonth(tx)
			fmt.Fprintf(cmd.OutOrStdout(), "%04d-%02d\n", year, int(month))
			return nil
		},
	}
	cmd.Flags().String("kind", string(core.Expense), "Transaction kind: income or expense")
	return cmd
}
