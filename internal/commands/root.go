package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/app"
	"github.com/cleared-dev/coinledger/internal/buildinfo"
	"github.com/cleared-dev/coinledger/internal/config"
	"github.com/cleared-dev/coinledger/internal/ledger"
	"github.com/cleared-dev/coinledger/internal/logging"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	profile    string
	openRemote app.RemoteOpener
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globals{})
}

func newRootCommand(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "coinledger",
		Short:   "Track coin earnings, spending and savings goals",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.FileName, "config file")
	rootCmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "profile to use (default: last active profile)")

	rootCmd.AddCommand(
		newInitCommand(g),
		newAddCommand(g),
		newSpendCommand(g),
		newQuickCommand(g),
		newUpdateCommand(g),
		newDeleteCommand(g),
		newBalanceCommand(g),
		newHistoryCommand(g),
		newBreakdownCommand(g),
		newStatsCommand(g),
		newProgressCommand(g),
		newGoalCommand(g),
		newProfilesCommand(g),
		newImportCommand(g),
		newExportCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}

// app resolves the config and builds the App. Logs go to stderr.
func (g *globals) app(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Resolve(g.configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return app.New(cmd.Context(), cfg, log, g.openRemote)
}

// withLedger opens the selected profile and runs fn.
func (g *globals) withLedger(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, l *ledger.Ledger) error) error {
	a, err := g.app(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	l, err := a.Open(ctx, g.profile)
	if err != nil {
		return err
	}
	return fn(ctx, a, l)
}
