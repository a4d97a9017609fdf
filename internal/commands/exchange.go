package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/app"
	"github.com/cleared-dev/coinledger/internal/exchange"
	"github.com/cleared-dev/coinledger/internal/ledger"
)

func newImportCommand(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Append transactions from a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import: %w", err)
			}
			defer f.Close()

			return g.withLedger(cmd, func(ctx context.Context, a *app.App, l *ledger.Ledger) error {
				payload, err := a.Exchange.Decode(format, f)
				if err != nil {
					return fmt.Errorf("reading %s: %w", args[0], err)
				}
				result, res, err := l.Import(ctx, payload)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d transactions (%d dropped, %d repaired), balance %d\n",
					result.Added, result.Report.Dropped, result.Report.Repaired, l.Balance())
				if result.SettingsReplaced {
					fmt.Fprintln(out, "Settings replaced from import")
				}
				for _, issue := range result.Report.Issues {
					fmt.Fprintln(cmd.ErrOrStderr(), "  "+issue.String())
				}
				printNotice(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, profile or csv (default: detect)")
	return cmd
}

func newExportCommand(g *globals) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(_ context.Context, a *app.App, l *ledger.Ledger) error {
				codec, err := a.Exchange.Lookup(format)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := codec.Encode(&buf, a.ExportDocument(l)); err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", l.Len(), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", exchange.FormatJSON, "json, profile or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
