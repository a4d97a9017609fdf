// Package app wires configuration, storage backends and the core packages
// into the operations the CLI and HTTP adapters call.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/config"
	"github.com/cleared-dev/coinledger/internal/exchange"
	"github.com/cleared-dev/coinledger/internal/goal"
	"github.com/cleared-dev/coinledger/internal/ledger"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/profiles"
	"github.com/cleared-dev/coinledger/internal/report"
	"github.com/cleared-dev/coinledger/internal/storage"
	"github.com/cleared-dev/coinledger/internal/storage/localfile"
	"github.com/cleared-dev/coinledger/internal/storage/remote"
	"github.com/cleared-dev/coinledger/internal/storage/session"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Chain    *storage.Chain
	Profiles *profiles.Registry
	Exchange *exchange.Registry
	Now      func() time.Time

	closers []io.Closer
}

// RemoteOpener connects the remote document store.
type RemoteOpener func(ctx context.Context, dsn string) (remote.DocumentClient, io.Closer, error)

// OpenPostgres is the default RemoteOpener.
func OpenPostgres(ctx context.Context, dsn string) (remote.DocumentClient, io.Closer, error) {
	c, err := remote.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

// New builds the backend chain from cfg. A remote store that cannot be
// reached is logged and left out.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, openRemote RemoteOpener) (*App, error) {
	if openRemote == nil {
		openRemote = OpenPostgres
	}
	a := &App{
		Config:   cfg,
		Log:      log,
		Exchange: exchange.DefaultRegistry(),
		Now:      time.Now,
	}

	var backends []storage.Backend
	if cfg.Storage.Remote.DSN != "" {
		client, closer, err := openRemote(ctx, cfg.Storage.Remote.DSN)
		if err == nil {
			a.closers = append(a.closers, closer)
			store, err := remote.New(client, cfg.UserID)
			if err != nil {
				return nil, err
			}
			backends = append(backends, store)
		} else {
			log.WithError(err).Warn("remote store unavailable, using fallback only")
		}
	}

	fallback, err := storage.ParseTier(cfg.Storage.Fallback)
	if err != nil {
		return nil, err
	}
	switch fallback {
	case storage.TierLocal:
		dir, err := cfg.DataDir()
		if err != nil {
			return nil, err
		}
		backends = append(backends, localfile.New(dir))
	case storage.TierSession:
		backends = append(backends, session.New())
	default:
		return nil, fmt.Errorf("storage.fallback must be local or session, got %q", cfg.Storage.Fallback)
	}

	a.Chain = storage.NewChain(log, backends...)
	a.Profiles = profiles.NewRegistry(a.Chain, cfg.DefaultProfile, cfg.Defaults, log)
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Options returns the ledger options derived from the config.
func (a *App) Options() ledger.Options {
	return ledger.Options{
		Defaults: a.Config.Defaults,
		Location: time.Local,
		Now:      a.Now,
		Log:      a.Log,
	}
}

// ResolveProfile returns name, or the active profile when name is empty.
func (a *App) ResolveProfile(ctx context.Context, name string) string {
	if name != "" {
		return name
	}
	return a.Profiles.Active(ctx)
}

// Open loads the ledger of profile (the active profile when empty).
func (a *App) Open(ctx context.Context, profile string) (*ledger.Ledger, error) {
	return ledger.Open(ctx, a.Chain, a.ResolveProfile(ctx, profile), a.Options())
}

// Relabel returns the configured spending relabel table.
func (a *App) Relabel() report.RelabelPolicy {
	return report.RelabelPolicy(a.Config.Report.SpendingRelabel)
}

// Summary is every derived view of a profile.
type Summary struct {
	Profile   string                 `json:"profile"`
	Balance   int64                  `json:"balance"`
	Progress  goal.Progress          `json:"progress"`
	Stats     report.WindowStats     `json:"stats"`
	Totals    report.Totals          `json:"totals"`
	Earnings  report.Breakdown       `json:"earnings"`
	Spending  report.Breakdown       `json:"spending"`
	Timeline  []report.TimelinePoint `json:"timeline"`
	Settings  model.Settings         `json:"settings"`
	StoredOn  string                 `json:"stored_on,omitempty"`
	StoreTier string                 `json:"store_tier,omitempty"`
}

// Summarize computes the Summary of l.
func (a *App) Summarize(l *ledger.Ledger) Summary {
	txs := l.Transactions()
	settings := l.Settings()
	loaded := l.Loaded()
	var tier string
	if loaded.Backend != "" {
		tier = loaded.Tier.String()
	}
	return Summary{
		Profile:   l.Profile(),
		Balance:   l.Balance(),
		Progress:  goal.Compute(l.Balance(), settings.Goal),
		Stats:     report.Stats(txs, a.Now()),
		Totals:    report.Sum(txs),
		Earnings:  report.EarningsBreakdown(txs),
		Spending:  report.SpendingBreakdown(txs, a.Relabel()),
		Timeline:  report.Timeline(txs),
		Settings:  settings,
		StoredOn:  loaded.Backend,
		StoreTier: tier,
	}
}

// ExportDocument builds the export document for l.
func (a *App) ExportDocument(l *ledger.Ledger) exchange.Document {
	return exchange.Document{
		ProfileName:  l.Profile(),
		Transactions: l.Export(),
		Settings:     l.Settings(),
		Now:          a.Now(),
	}
}

// StorageNotice describes a save outcome for people, or "" when the save hit
// the primary backend.
func StorageNotice(res storage.SaveResult) string {
	if !res.FellBack {
		return ""
	}
	if res.Durable() {
		return fmt.Sprintf("primary storage unavailable, saved to %s storage", res.Tier)
	}
	return fmt.Sprintf("primary storage unavailable, saved to %s storage only; data will be lost when the process exits", res.Tier)
}
