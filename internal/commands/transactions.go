package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/app"
	"github.com/cleared-dev/coinledger/internal/ledger"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

func newAddCommand(g *globals) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "add <amount> <source...>",
		Short: "Record a transaction (pass negative amounts after --, or use spend)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return runAdd(cmd, g, amount, strings.Join(args[1:], " "), date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "transaction time (ISO-8601, default now)")
	return cmd
}

func newSpendCommand(g *globals) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "spend <amount> <source...>",
		Short: "Record spending",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			if amount > 0 {
				amount = -amount
			}
			return runAdd(cmd, g, amount, strings.Join(args[1:], " "), date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "transaction time (ISO-8601, default now)")
	return cmd
}

func newQuickCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "quick [action...]",
		Short: "Record a preset quick action, or list them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(ctx context.Context, a *app.App, l *ledger.Ledger) error {
				actions := l.Settings().QuickActions
				if len(args) == 0 {
					for _, qa := range actions {
						fmt.Fprintf(cmd.OutOrStdout(), "%-28s %+d\n", qa.Text, qa.Signed())
					}
					return nil
				}
				text := strings.Join(args, " ")
				for _, qa := range actions {
					if strings.EqualFold(qa.Text, text) {
						return addAndReport(ctx, cmd, l, ledger.AddParams{Amount: qa.Signed(), Source: qa.Text})
					}
				}
				return model.Invalid("action", fmt.Sprintf("no quick action named %q", text))
			})
		},
	}
}

func runAdd(cmd *cobra.Command, g *globals, amount int64, source, date string) error {
	ts, err := parseDate(date)
	if err != nil {
		return err
	}
	return g.withLedger(cmd, func(ctx context.Context, a *app.App, l *ledger.Ledger) error {
		return addAndReport(ctx, cmd, l, ledger.AddParams{Amount: amount, Source: source, Timestamp: ts})
	})
}

func addAndReport(ctx context.Context, cmd *cobra.Command, l *ledger.Ledger, params ledger.AddParams) error {
	if params.Amount == 0 {
		return model.ErrAmountZero
	}
	balance, res, err := l.Add(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%+d %s, balance %d\n", params.Amount, strings.TrimSpace(params.Source), balance)
	printNotice(cmd, res)
	return nil
}

func newUpdateCommand(g *globals) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "update <id> <amount> <source...>",
		Short: "Change a transaction",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ts, err := parseDate(date)
			if err != nil {
				return err
			}
			return g.withLedger(cmd, func(ctx context.Context, a *app.App, l *ledger.Ledger) error {
				res, err := l.Update(ctx, args[0], ledger.UpdateParams{
					Amount:    amount,
					Source:    strings.Join(args[2:], " "),
					Timestamp: ts,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s, balance %d\n", args[0], l.Balance())
				printNotice(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "new transaction time (default: unchanged)")
	return cmd
}

func newDeleteCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withLedger(cmd, func(ctx context.Context, a *app.App, l *ledger.Ledger) error {
				res, err := l.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s, balance %d\n", args[0], l.Balance())
				printNotice(cmd, res)
				return nil
			})
		},
	}
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, model.Invalid("amount", fmt.Sprintf("%q is not a whole number", s))
	}
	if n == 0 {
		return 0, model.ErrAmountZero
	}
	return n, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := model.ParseTimestamp(s, time.Local)
	if err != nil {
		return time.Time{}, model.Invalid("date", err.Error())
	}
	return ts, nil
}

func printNotice(cmd *cobra.Command, res storage.SaveResult) {
	if notice := app.StorageNotice(res); notice != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", notice)
	}
}
