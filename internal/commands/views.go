package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/app"
	"github.com/cleared-dev/coinledger/internal/goal"
	"github.com/cleared-dev/coinledger/internal/ledger"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/report"
)

func newBalanceCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(_ context.Context, _ *app.App, l *ledger.Ledger) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", l.Profile(), l.Balance())
				return nil
			})
		},
	}
}

func newHistoryCommand(g *globals) *cobra.Command {
	var order, from, to, source, kind, search string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transactions",
		Long: `List transactions, newest first by default.

Filters combine: --from and --to bound an inclusive date range, --source
matches a source exactly, --type keeps earnings or spending and --search
matches part of a source or an amount, ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := ledger.ParseOrder(order)
			if err != nil {
				return err
			}
			f, err := historyFilter(from, to, source, kind, search)
			if err != nil {
				return err
			}
			return g.withLedger(cmd, func(_ context.Context, _ *app.App, l *ledger.Ledger) error {
				matched := f.Apply(slices.Collect(l.History(o)))
				var records []model.TransactionRecord
				for _, tx := range matched.Transactions {
					if limit > 0 && len(records) == limit {
						break
					}
					records = append(records, tx.Record())
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), records)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tSOURCE\tBALANCE")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\t%d\n", r.ID, r.Date, r.Amount, r.Source, r.PreviousBalance+r.Amount)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if f != (report.Filter{}) {
					fmt.Fprintf(cmd.OutOrStdout(), "Earned in period: %d\n", matched.Earned)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&order, "order", "newest", "newest or oldest first")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&source, "source", "", "only this source")
	cmd.Flags().StringVar(&kind, "type", "all", "all, earnings or spending")
	cmd.Flags().StringVar(&search, "search", "", "text to look for in sources and amounts")
	return cmd
}

func historyFilter(from, to, source, kind, search string) (report.Filter, error) {
	f := report.Filter{Source: source, Search: search}
	var err error
	if f.Kind, err = report.ParseKind(kind); err != nil {
		return f, err
	}
	if f.From, err = parseDate(from); err != nil {
		return f, err
	}
	if f.To, err = parseDate(to); err != nil {
		return f, err
	}
	return f, f.Validate()
}

func newBreakdownCommand(g *globals) *cobra.Command {
	var spendingOnly, earningsOnly bool

	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show earnings and spending grouped by source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(_ context.Context, a *app.App, l *ledger.Ledger) error {
				txs := l.Transactions()
				out := cmd.OutOrStdout()
				if !spendingOnly {
					printBreakdown(out, "Earnings", report.EarningsBreakdown(txs))
				}
				if !earningsOnly {
					printBreakdown(out, "Spending", report.SpendingBreakdown(txs, a.Relabel()))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&spendingOnly, "spending", false, "only spending")
	cmd.Flags().BoolVar(&earningsOnly, "earnings", false, "only earnings")
	cmd.MarkFlagsMutuallyExclusive("spending", "earnings")
	return cmd
}

func printBreakdown(w io.Writer, title string, b report.Breakdown) {
	fmt.Fprintf(w, "%s (total %d)\n", title, b.Total)
	if b.Empty() {
		fmt.Fprintln(w, "  none")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, line := range b.Lines {
		fmt.Fprintf(tw, "  %s\t%d\t%s%%\n", line.Label, line.Amount, line.Share.StringFixed(2))
	}
	_ = tw.Flush()
}

func newStatsCommand(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show earnings for today, this week and this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(_ context.Context, a *app.App, l *ledger.Ledger) error {
				s := a.Summarize(l)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), s)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Today:      %d\n", s.Stats.Today)
				fmt.Fprintf(out, "This week:  %d\n", s.Stats.Week)
				fmt.Fprintf(out, "This month: %d\n", s.Stats.Month)
				fmt.Fprintf(out, "Earned:     %d\n", s.Totals.Earned)
				fmt.Fprintf(out, "Spent:      %d\n", s.Totals.Spent)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full summary as JSON")
	return cmd
}

func newProgressCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show progress toward the savings goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(_ context.Context, _ *app.App, l *ledger.Ledger) error {
				p := goal.Compute(l.Balance(), l.Settings().Goal)
				fmt.Fprintln(cmd.OutOrStdout(), p.String())
				return nil
			})
		},
	}
}

func newGoalCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "goal <amount>",
		Short: "Set the savings goal (0 clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || target < 0 {
				return model.Invalid("goal", fmt.Sprintf("%q is not a whole number of coins", args[0]))
			}
			return g.withLedger(cmd, func(ctx context.Context, _ *app.App, l *ledger.Ledger) error {
				res, err := l.SetGoal(ctx, target)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), goal.Compute(l.Balance(), l.Settings().Goal).String())
				printNotice(cmd, res)
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
