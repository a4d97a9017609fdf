// Package ledger holds one profile's transactions in memory, keeps their
// running balances consistent and persists every mutation.
package ledger

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/id"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/repair"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// Options configures a Ledger.
type Options struct {
	Defaults model.Settings   // settings for a profile that has none stored
	Location *time.Location   // zone for naive imported timestamps
	Now      func() time.Time // clock, defaults to time.Now
	NewID    id.Generator     // defaults to id.New
	Log      logrus.FieldLogger
}

// Ledger is the transaction set of one profile. It is not safe for
// concurrent use.
type Ledger struct {
	store    storage.Store
	profile  string
	opts     Options
	log      logrus.FieldLogger
	txs      []model.Transaction // ascending by (timestamp, seq)
	settings model.Settings
	balance  int64
	loaded   storage.LoadResult
	report   repair.Report
}

// Open loads and repairs profile from store. Backend failures never fail
// Open; the ledger starts empty instead. When repair changed anything the
// cleaned data is written back.
func Open(ctx context.Context, store storage.Store, profile string, opts Options) (*Ledger, error) {
	if err := model.ValidateProfileName(profile); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = id.New
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Defaults.QuickActions == nil {
		opts.Defaults.QuickActions = model.DefaultQuickActions()
	}

	l := &Ledger{
		store:   store,
		profile: profile,
		opts:    opts,
		log:     opts.Log.WithField("profile", profile),
	}

	l.loaded = store.Load(ctx, profile)
	res := repair.Repair(l.loaded.Data, repair.Options{
		Defaults: opts.Defaults,
		NewID:    opts.NewID,
		Location: opts.Location,
	})
	l.txs = res.Transactions
	l.settings = res.Settings
	l.report = res.Report
	stored := model.Records(l.txs)
	l.recompute()
	rebalanced := !slices.Equal(stored, model.Records(l.txs))

	if res.Report.Changed() {
		l.log.WithFields(logrus.Fields{
			"dropped":  res.Report.Dropped,
			"repaired": res.Report.Repaired,
		}).Warn("repaired loaded data")
		for _, issue := range res.Report.Issues {
			l.log.Debug(issue.String())
		}
	}
	if res.Report.Changed() || rebalanced {
		if l.loaded.Found {
			if _, err := l.persist(ctx); err != nil {
				l.log.WithError(err).Error("saving repaired data failed")
			}
		}
	}
	return l, nil
}

// Profile returns the profile name.
func (l *Ledger) Profile() string { return l.profile }

// Loaded describes where the ledger's data came from.
func (l *Ledger) Loaded() storage.LoadResult { return l.loaded }

// RepairReport returns what the load-time repair changed.
func (l *Ledger) RepairReport() repair.Report { return l.report }

// AddParams holds parameters for a new transaction.
type AddParams struct {
	Amount    int64
	Source    string
	Timestamp time.Time // zero means now
}

// Add appends a transaction and returns the new balance.
func (l *Ledger) Add(ctx context.Context, params AddParams) (int64, storage.SaveResult, error) {
	source, err := checkMutation(params.Amount, params.Source)
	if err != nil {
		return l.balance, storage.SaveResult{}, err
	}
	ts := params.Timestamp
	if ts.IsZero() {
		ts = l.opts.Now()
	}

	l.txs = append(l.txs, model.Transaction{
		ID:        l.newID(),
		Timestamp: ts,
		Amount:    params.Amount,
		Source:    source,
		Seq:       len(l.txs),
	})
	l.recompute()

	res, err := l.persist(ctx)
	return l.balance, res, err
}

// UpdateParams holds the replacement fields for a transaction.
type UpdateParams struct {
	Amount    int64
	Source    string
	Timestamp time.Time // zero keeps the existing timestamp
}

// Update replaces a transaction's amount, source and timestamp.
func (l *Ledger) Update(ctx context.Context, txID string, params UpdateParams) (storage.SaveResult, error) {
	i := l.index(txID)
	if i < 0 {
		return storage.SaveResult{}, fmt.Errorf("updating %q: %w", txID, model.ErrNotFound)
	}
	source, err := checkMutation(params.Amount, params.Source)
	if err != nil {
		return storage.SaveResult{}, err
	}

	tx := &l.txs[i]
	tx.Amount = params.Amount
	tx.Source = source
	if !params.Timestamp.IsZero() {
		tx.Timestamp = params.Timestamp
	}
	l.recompute()
	return l.persist(ctx)
}

// Delete removes a transaction.
func (l *Ledger) Delete(ctx context.Context, txID string) (storage.SaveResult, error) {
	i := l.index(txID)
	if i < 0 {
		return storage.SaveResult{}, fmt.Errorf("deleting %q: %w", txID, model.ErrNotFound)
	}
	l.txs = slices.Delete(l.txs, i, i+1)
	l.recompute()
	return l.persist(ctx)
}

// Get returns the transaction with txID.
func (l *Ledger) Get(txID string) (model.Transaction, bool) {
	i := l.index(txID)
	if i < 0 {
		return model.Transaction{}, false
	}
	return l.txs[i], true
}

// Balance returns the sum of all amounts.
func (l *Ledger) Balance() int64 { return l.balance }

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.txs) }

// History yields a snapshot of the transactions taken at call time.
func (l *Ledger) History(order Order) iter.Seq[model.Transaction] {
	snapshot := slices.Clone(l.txs)
	return func(yield func(model.Transaction) bool) {
		if order == OldestFirst {
			for _, tx := range snapshot {
				if !yield(tx) {
					return
				}
			}
			return
		}
		for i := len(snapshot) - 1; i >= 0; i-- {
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

// Transactions returns the transactions in ascending order.
func (l *Ledger) Transactions() []model.Transaction {
	return slices.Clone(l.txs)
}

// Export returns the transactions in ascending order for an exporter.
func (l *Ledger) Export() []model.Transaction {
	return l.Transactions()
}

func (l *Ledger) index(txID string) int {
	return slices.IndexFunc(l.txs, func(tx model.Transaction) bool { return tx.ID == txID })
}

func (l *Ledger) newID() string {
	for {
		candidate := l.opts.NewID()
		if l.index(candidate) < 0 {
			return candidate
		}
	}
}

// recompute sorts by (timestamp, seq), renumbers seq to match the new
// positions and rebuilds every previous balance.
func (l *Ledger) recompute() {
	slices.SortStableFunc(l.txs, compare)
	var running int64
	for i := range l.txs {
		l.txs[i].Seq = i
		l.txs[i].PreviousBalance = running
		running += l.txs[i].Amount
	}
	l.balance = running
}

func compare(a, b model.Transaction) int {
	switch {
	case model.Less(a, b):
		return -1
	case model.Less(b, a):
		return 1
	default:
		return 0
	}
}

func (l *Ledger) persist(ctx context.Context) (storage.SaveResult, error) {
	data := model.NewProfileData(l.profile, l.txs, l.settings, l.opts.Now())
	res, err := l.store.Save(ctx, l.profile, data)
	if err != nil {
		l.log.WithError(err).Error("change kept in memory only")
		return res, err
	}
	if res.FellBack {
		l.log.WithFields(logrus.Fields{
			"backend": res.Backend,
			"tier":    res.Tier.String(),
		}).Warn("saved to fallback storage")
	}
	return res, nil
}

func checkMutation(amount int64, source string) (string, error) {
	if amount == 0 {
		return "", model.ErrAmountZero
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return "", model.Invalid("source", "must not be blank")
	}
	return source, nil
}
