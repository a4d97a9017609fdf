package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/coinledger/internal/exchange"
	"github.com/cleared-dev/coinledger/internal/id"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
	"github.com/cleared-dev/coinledger/internal/storage/session"
)

// countingStore wraps a session backend, counts saves and can be switched
// to fail them.
type countingStore struct {
	backend *session.Store
	saves   int
	fail    bool
	raw     *model.RawProfile // served instead of the backend until the first save
}

func (s *countingStore) Load(ctx context.Context, profile string) storage.LoadResult {
	if s.raw != nil && s.saves == 0 {
		return storage.LoadResult{Data: *s.raw, Found: true, Backend: "session", Tier: storage.TierSession}
	}
	raw, found, _ := s.backend.Load(ctx, profile)
	return storage.LoadResult{Data: raw, Found: found, Backend: "session", Tier: storage.TierSession}
}

func (s *countingStore) Save(ctx context.Context, profile string, data model.ProfileData) (storage.SaveResult, error) {
	if s.fail {
		return storage.SaveResult{}, fmt.Errorf("saving profile %q: %w", profile, model.ErrPersistence)
	}
	s.saves++
	return storage.SaveResult{Backend: "session", Tier: storage.TierSession}, s.backend.Save(ctx, profile, data)
}

var t0 = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newStore() *countingStore {
	return &countingStore{backend: session.New()}
}

func testOptions() (Options, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return Options{
		Now:      func() time.Time { return t0 },
		NewID:    id.Sequential("tx"),
		Location: time.UTC,
		Log:      log,
	}, hook
}

func openLedger(t *testing.T, store storage.Store) *Ledger {
	t.Helper()
	opts, _ := testOptions()
	l, err := Open(context.Background(), store, "Default", opts)
	require.NoError(t, err)
	return l
}

func collect(l *Ledger, order Order) []model.Transaction {
	return slices.Collect(l.History(order))
}

func assertInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	var running int64
	txs := l.Transactions()
	for i, tx := range txs {
		assert.Equal(t, running, tx.PreviousBalance, "previous balance of %d", i)
		running += tx.Amount
		if i > 0 {
			assert.False(t, model.Less(tx, txs[i-1]), "order at %d", i)
		}
	}
	assert.Equal(t, running, l.Balance())
}

func TestAddThenSpend(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())

	bal, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login", Timestamp: t0})
	require.NoError(t, err)
	assert.Equal(t, int64(50), bal)

	bal, _, err = l.Add(ctx, AddParams{Amount: -20, Source: "Shop", Timestamp: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal)

	history := collect(l, NewestFirst)
	require.Len(t, history, 2)
	assert.Equal(t, int64(-20), history[0].Amount)
	assert.Equal(t, int64(50), history[0].PreviousBalance)
	assert.Equal(t, int64(50), history[1].Amount)
	assert.Equal(t, int64(0), history[1].PreviousBalance)
}

func TestAdd_DefaultsTimestampAndTrimsSource(t *testing.T) {
	l := openLedger(t, newStore())
	_, _, err := l.Add(context.Background(), AddParams{Amount: 5, Source: "  Ads "})
	require.NoError(t, err)

	tx := l.Transactions()[0]
	assert.Equal(t, t0, tx.Timestamp)
	assert.Equal(t, "Ads", tx.Source)
	assert.Equal(t, "tx-1", tx.ID)
}

func TestAdd_Rejected(t *testing.T) {
	store := newStore()
	l := openLedger(t, store)

	_, _, err := l.Add(context.Background(), AddParams{Amount: 0, Source: "Login"})
	assert.ErrorIs(t, err, model.ErrAmountZero)

	_, _, err = l.Add(context.Background(), AddParams{Amount: 5, Source: "   "})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, store.saves, "rejected mutations are not saved")
}

func TestAdd_OutOfOrderTimestamps(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())

	for _, p := range []AddParams{
		{Amount: 10, Source: "c", Timestamp: t0.Add(2 * time.Hour)},
		{Amount: 20, Source: "a", Timestamp: t0},
		{Amount: -5, Source: "b", Timestamp: t0.Add(time.Hour)},
		{Amount: 7, Source: "a2", Timestamp: t0},
	} {
		_, _, err := l.Add(ctx, p)
		require.NoError(t, err)
	}

	var sources []string
	for tx := range l.History(OldestFirst) {
		sources = append(sources, tx.Source)
	}
	assert.Equal(t, []string{"a", "a2", "b", "c"}, sources, "ties keep insertion order")
	assertInvariant(t, l)
	assert.Equal(t, int64(32), l.Balance())
}

func TestPrefixSumProperty(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())
	amounts := []int64{50, -20, 100, -900, 10, 10, -1, 3}
	for i, a := range amounts {
		// Timestamps deliberately shuffled.
		ts := t0.Add(time.Duration((i*5)%len(amounts)) * time.Hour)
		_, _, err := l.Add(ctx, AddParams{Amount: a, Source: "s", Timestamp: ts})
		require.NoError(t, err)
		assertInvariant(t, l)
	}

	txs := l.Transactions()
	_, err := l.Delete(ctx, txs[3].ID)
	require.NoError(t, err)
	assertInvariant(t, l)

	_, err = l.Update(ctx, txs[0].ID, UpdateParams{Amount: -7, Source: "moved", Timestamp: t0.Add(100 * time.Hour)})
	require.NoError(t, err)
	assertInvariant(t, l)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := openLedger(t, store)
	_, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login", Timestamp: t0})
	require.NoError(t, err)
	_, _, err = l.Add(ctx, AddParams{Amount: 10, Source: "Ads", Timestamp: t0.Add(time.Hour)})
	require.NoError(t, err)

	first := l.Transactions()[0].ID
	_, err = l.Update(ctx, first, UpdateParams{Amount: 5, Source: "Login bonus"})
	require.NoError(t, err)

	tx, ok := l.Get(first)
	require.True(t, ok)
	assert.Equal(t, int64(5), tx.Amount)
	assert.Equal(t, t0, tx.Timestamp, "zero timestamp keeps the old one")
	assert.Equal(t, int64(15), l.Balance())
	assert.Equal(t, 3, store.saves)
}

func TestUpdateDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := openLedger(t, store)

	_, err := l.Update(ctx, "missing", UpdateParams{Amount: 1, Source: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = l.Delete(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 0, store.saves)
}

func TestUpdate_ZeroAmount(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())
	_, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login"})
	require.NoError(t, err)

	_, err = l.Update(ctx, l.Transactions()[0].ID, UpdateParams{Amount: 0, Source: "Login"})
	assert.ErrorIs(t, err, model.ErrAmountZero)
	assert.Equal(t, int64(50), l.Balance())
}

func TestPersistenceFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := openLedger(t, store)
	store.fail = true

	bal, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login"})
	require.ErrorIs(t, err, model.ErrPersistence)
	assert.Equal(t, int64(50), bal)
	assert.Equal(t, int64(50), l.Balance())
	assert.Equal(t, 1, l.Len())
}

func TestReopenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := openLedger(t, store)
	_, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login", Timestamp: t0})
	require.NoError(t, err)
	_, _, err = l.Add(ctx, AddParams{Amount: -20, Source: "Shop", Timestamp: t0})
	require.NoError(t, err)
	_, err = l.SetGoal(ctx, 200)
	require.NoError(t, err)

	saves := store.saves
	again := openLedger(t, store)
	assert.Equal(t, l.Transactions(), again.Transactions())
	assert.Equal(t, int64(200), again.Settings().Goal)
	assert.False(t, again.RepairReport().Changed())
	assert.Equal(t, saves, store.saves, "clean data is not re-saved")
}

func TestOpen_RepairsAndResaves(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	data := `{"profile_name":"Default","transactions":[
		{"id":"a","date":"2025-01-15T10:00:00Z","amount":50,"source":"Login","previous_balance":999},
		{"id":"a","date":"2025-01-15","amount":"7","source":"Ads"},
		{"date":"not a date","amount":5,"source":"x"},
		{"date":"2025-01-15T09:00:00Z","amount":0,"source":"zero"}
	]}`
	raw, err := model.DecodeRawProfile([]byte(data))
	require.NoError(t, err)
	store.raw = &raw

	opts, hook := testOptions()
	l, err := Open(ctx, store, "Default", opts)
	require.NoError(t, err)

	report := l.RepairReport()
	assert.Equal(t, 2, report.Dropped)
	assert.Positive(t, report.Repaired)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, int64(57), l.Balance())
	assertInvariant(t, l)
	assert.Equal(t, 1, store.saves, "repaired data written back")

	again := openLedger(t, store)
	assert.False(t, again.RepairReport().Changed())
	assert.Equal(t, l.Transactions(), again.Transactions())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["dropped"] == 2 {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestOpen_InvalidName(t *testing.T) {
	opts, _ := testOptions()
	_, err := Open(context.Background(), newStore(), "../etc", opts)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOpen_AllBackendsDown(t *testing.T) {
	log, _ := test.NewNullLogger()
	chain := storage.NewChain(log)
	opts, _ := testOptions()
	l, err := Open(context.Background(), chain, "Default", opts)
	require.NoError(t, err)
	assert.Equal(t, int64(0), l.Balance())
	assert.Equal(t, model.DefaultQuickActions(), l.Settings().QuickActions)

	_, _, err = l.Add(context.Background(), AddParams{Amount: 1, Source: "x"})
	assert.True(t, errors.Is(err, model.ErrPersistence))
}

func TestHistory_SnapshotAndRestart(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())
	for i := range 3 {
		_, _, err := l.Add(ctx, AddParams{Amount: int64(i + 1), Source: "s", Timestamp: t0.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	seq := l.History(NewestFirst)
	_, _, err := l.Add(ctx, AddParams{Amount: 100, Source: "late", Timestamp: t0.Add(time.Hour * 10)})
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 3, "snapshot taken at call time")
	assert.Equal(t, first, second, "restartable")
	assert.Equal(t, int64(3), first[0].Amount)

	for tx := range l.History(NewestFirst) {
		assert.Equal(t, "late", tx.Source)
		break
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, NewestFirst, o)
	o, err = ParseOrder("Oldest")
	require.NoError(t, err)
	assert.Equal(t, OldestFirst, o)
	assert.Equal(t, "oldest", o.String())
	_, err = ParseOrder("sideways")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, newStore())

	_, err := l.SetGoal(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), l.Settings().Goal)

	_, err = l.SetDarkMode(ctx, true)
	require.NoError(t, err)
	assert.True(t, l.Settings().DarkMode)

	_, err = l.SetQuickActions(ctx, []model.QuickAction{{Text: " Spin ", Value: 100}})
	require.NoError(t, err)
	assert.Equal(t, []model.QuickAction{{Text: "Spin", Value: 100}}, l.Settings().QuickActions)

	_, err = l.SetQuickActions(ctx, []model.QuickAction{{Text: "", Value: 1}})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = l.ReplaceSettings(ctx, model.Settings{Goal: 10, QuickActions: []model.QuickAction{{Text: "x", Value: -1}}})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, int64(0), l.Settings().Goal, "rejected settings leave state alone")

	_, err = l.ReplaceSettings(ctx, model.Settings{Goal: 10, QuickActions: []model.QuickAction{}})
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.Settings().Goal)
	assert.False(t, l.Settings().DarkMode)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := openLedger(t, store)
	_, _, err := l.Add(ctx, AddParams{Amount: 50, Source: "Login", Timestamp: t0})
	require.NoError(t, err)
	existing := l.Transactions()[0].ID

	in := fmt.Sprintf(`{"transactions":[
		{"id":%q,"date":"2025-01-14T08:00:00Z","amount":10,"source":"Ads"},
		{"date":"2025-01-16","amount":-5,"source":"Shop"},
		{"date":"2025-01-16","amount":0,"source":"bad"}
	],"settings":{"goal":500}}`, existing)
	p, err := exchange.DefaultRegistry().Decode("", strings.NewReader(in))
	require.NoError(t, err)

	res, _, err := l.Import(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.True(t, res.SettingsReplaced)
	assert.Equal(t, 1, res.Report.Dropped)
	assert.Equal(t, int64(500), l.Settings().Goal)
	assert.Equal(t, int64(55), l.Balance())
	assertInvariant(t, l)

	ids := map[string]bool{}
	for _, tx := range l.Transactions() {
		assert.False(t, ids[tx.ID], "ids stay unique")
		ids[tx.ID] = true
	}
	assert.Equal(t, "Ads", l.Transactions()[0].Source, "imported record sorted by date")
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openLedger(t, newStore())
	for _, p := range []AddParams{
		{Amount: 50, Source: "Login", Timestamp: t0},
		{Amount: -20, Source: "Shop", Timestamp: t0},
		{Amount: 120, Source: "Event Reward", Timestamp: t0.Add(-time.Hour)},
		{Amount: 7, Source: "Ads", Timestamp: t0},
	} {
		_, _, err := src.Add(ctx, p)
		require.NoError(t, err)
	}
	_, err := src.SetGoal(ctx, 1000)
	require.NoError(t, err)
	want := src.Transactions()

	reg := exchange.DefaultRegistry()
	for _, format := range reg.Formats() {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			doc := exchange.Document{ProfileName: src.Profile(), Transactions: src.Export(), Settings: src.Settings(), Now: t0}
			require.NoError(t, reg.Get(format).Encode(&buf, doc))

			p, err := reg.Decode("", &buf)
			require.NoError(t, err)

			dst := openLedger(t, newStore())
			res, _, err := dst.Import(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, len(want), res.Added)
			assert.Zero(t, res.Report.Dropped)

			got := dst.Transactions()
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID, "id at %d", i)
				assert.Equal(t, want[i].Amount, got[i].Amount, "amount at %d", i)
				assert.Equal(t, want[i].Source, got[i].Source, "source at %d", i)
				assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "date at %d", i)
				assert.Equal(t, want[i].PreviousBalance, got[i].PreviousBalance, "previous balance at %d", i)
			}
			assert.Equal(t, src.Balance(), dst.Balance())
			assert.Equal(t, format == exchange.FormatProfile, res.SettingsReplaced)
		})
	}
}

func TestImport_NothingToDo(t *testing.T) {
	store := newStore()
	l := openLedger(t, store)
	res, _, err := l.Import(context.Background(), exchange.Payload{Records: []any{"junk"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Report.Dropped)
	assert.Equal(t, 0, store.saves)
}
