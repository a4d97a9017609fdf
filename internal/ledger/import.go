package ledger

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/exchange"
	"github.com/cleared-dev/coinledger/internal/repair"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Added            int
	SettingsReplaced bool
	Report           repair.Report
}

// Import appends the payload's records after repairing them. Ids that collide
// with existing transactions are regenerated. Settings carried by the payload
// replace the current settings. Nothing is saved when nothing changed.
func (l *Ledger) Import(ctx context.Context, p exchange.Payload) (ImportResult, storage.SaveResult, error) {
	taken := make(map[string]bool, len(l.txs))
	for _, tx := range l.txs {
		taken[tx.ID] = true
	}
	opts := repair.Options{
		Defaults: l.opts.Defaults,
		NewID:    l.opts.NewID,
		Location: l.opts.Location,
		Taken:    taken,
	}

	txs, report := repair.Records(p.Records, opts)
	for i := range txs {
		txs[i].Seq = len(l.txs) + i
	}
	l.txs = append(l.txs, txs...)
	result := ImportResult{Added: len(txs)}

	if p.Settings != nil {
		settings, sr := repair.Settings(p.Settings, l.opts.Defaults)
		l.settings = settings
		report.Dropped += sr.Dropped
		report.Repaired += sr.Repaired
		report.Issues = append(report.Issues, sr.Issues...)
		result.SettingsReplaced = true
	}
	result.Report = report

	l.log.WithFields(logrus.Fields{
		"format":   p.Format,
		"added":    result.Added,
		"dropped":  report.Dropped,
		"repaired": report.Repaired,
	}).Info("imported transactions")

	if result.Added == 0 && !result.SettingsReplaced {
		return result, storage.SaveResult{}, nil
	}
	l.recompute()
	res, err := l.persist(ctx)
	return result, res, err
}
