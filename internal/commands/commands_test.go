package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/coinledger/internal/model"
)

type env struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func setup(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{t: t, dir: dir, cfgPath: filepath.Join(dir, "coinledger.yaml")}
	out, err := e.run("init", "--data-dir", filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	return e
}

func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "coinledger %s", strings.Join(args, " "))
	return out
}

func TestInit_WritesConfig(t *testing.T) {
	e := setup(t)

	data, err := os.ReadFile(e.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fallback: local")
	assert.DirExists(t, filepath.Join(e.dir, "data"))

	_, err = e.run("init")
	assert.ErrorContains(t, err, "already exists")
	e.mustRun("init", "--force", "--fallback", "session")

	_, err = e.run("init", "--force", "--fallback", "floppy")
	assert.Error(t, err)
}

func TestAddSpendBalanceHistory(t *testing.T) {
	e := setup(t)

	out := e.mustRun("add", "50", "Login", "--date", "2025-01-15T10:00:00")
	assert.Equal(t, "+50 Login, balance 50\n", out)
	out = e.mustRun("spend", "20", "Shop", "--date", "2025-01-15T11:00:00")
	assert.Equal(t, "-20 Shop, balance 30\n", out)

	assert.Equal(t, "Default: 30\n", e.mustRun("balance"))

	var records []model.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("history", "--json")), &records))
	require.Len(t, records, 2)
	assert.Equal(t, int64(-20), records[0].Amount)
	assert.Equal(t, int64(50), records[0].PreviousBalance)
	assert.Equal(t, int64(0), records[1].PreviousBalance)

	out = e.mustRun("history", "--order", "oldest", "-n", "1")
	assert.Contains(t, out, "Login")
	assert.NotContains(t, out, "Shop")

	assert.FileExists(t, filepath.Join(e.dir, "data", "Default.json"))
}

func TestHistoryFilters(t *testing.T) {
	e := setup(t)
	e.mustRun("add", "50", "Login", "--date", "2025-01-10T10:00:00")
	e.mustRun("add", "120", "Event Reward", "--date", "2025-01-12T10:00:00")
	e.mustRun("spend", "20", "Shop", "--date", "2025-01-12T11:00:00")
	e.mustRun("add", "30", "Login", "--date", "2025-01-15T10:00:00")

	var records []model.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("history", "--json", "--from", "2025-01-12", "--to", "2025-01-12")), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Shop", records[0].Source)
	assert.Equal(t, "Event Reward", records[1].Source)

	out := e.mustRun("history", "--source", "Login")
	assert.NotContains(t, out, "Event Reward")
	assert.Contains(t, out, "Earned in period: 80\n")

	out = e.mustRun("history", "--type", "spending")
	assert.Contains(t, out, "Shop")
	assert.NotContains(t, out, "Login")
	assert.Contains(t, out, "Earned in period: 0\n")

	out = e.mustRun("history", "--search", "EVENT", "--from", "2025-01-11")
	assert.Contains(t, out, "Event Reward")
	assert.Contains(t, out, "Earned in period: 120\n")

	assert.NotContains(t, e.mustRun("history"), "Earned in period")

	_, err := e.run("history", "--type", "refunds")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.run("history", "--from", "2025-01-12", "--to", "2025-01-10")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAdd_Errors(t *testing.T) {
	e := setup(t)

	_, err := e.run("add", "0", "Login")
	assert.ErrorIs(t, err, model.ErrAmountZero)
	_, err = e.run("add", "ten", "Login")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.run("add", "5", "Login", "--date", "someday")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.run("history", "--order", "sideways")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUpdateDelete(t *testing.T) {
	e := setup(t)
	e.mustRun("add", "50", "Login")

	var records []model.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("history", "--json")), &records))
	id := records[0].ID

	assert.Contains(t, e.mustRun("update", id, "70", "Login", "bonus"), "balance 70")
	assert.Contains(t, e.mustRun("delete", id), "balance 0")

	_, err := e.run("delete", id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestQuickActions(t *testing.T) {
	e := setup(t)
	assert.Contains(t, e.mustRun("quick"), "Box Draw (10 Spins)")

	assert.Equal(t, "+50 Login, balance 50\n", e.mustRun("quick", "login"))
	assert.Equal(t, "-100 Box Draw (Single Spin), balance -50\n", e.mustRun("quick", "Box", "Draw", "(Single", "Spin)"))

	_, err := e.run("quick", "Lottery")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGoalAndProgress(t *testing.T) {
	e := setup(t)
	assert.Equal(t, "No goal set\n", e.mustRun("progress"))

	e.mustRun("add", "40", "Login")
	assert.Equal(t, "40% of 100\n", e.mustRun("goal", "100"))
	assert.Equal(t, "40% of 100\n", e.mustRun("progress"))
	assert.Equal(t, "No goal set\n", e.mustRun("goal", "0"))

	_, err := e.run("goal", "lots")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestBreakdownAndStats(t *testing.T) {
	e := setup(t)
	e.mustRun("add", "30", "Login")
	e.mustRun("add", "10", "Ads")
	e.mustRun("spend", "15", "Shop")

	out := e.mustRun("breakdown")
	assert.Contains(t, out, "Earnings (total 40)")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "Spending (total 15)")

	out = e.mustRun("breakdown", "--spending")
	assert.NotContains(t, out, "Earnings")

	out = e.mustRun("stats")
	assert.Contains(t, out, "Today:      40")

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("stats", "--json")), &summary))
	assert.EqualValues(t, 25, summary["balance"])
}

func TestProfiles(t *testing.T) {
	e := setup(t)
	assert.Equal(t, "* Default\n", e.mustRun("profiles", "list"))

	e.mustRun("profiles", "create", "Savings")
	_, err := e.run("profiles", "create", "Savings")
	assert.ErrorIs(t, err, model.ErrConflict)

	e.mustRun("profiles", "use", "Savings")
	assert.Equal(t, "  Default\n* Savings\n", e.mustRun("profiles", "list"))

	e.mustRun("add", "5", "Ads")
	assert.Equal(t, "Savings: 5\n", e.mustRun("balance"))
	assert.Equal(t, "Default: 0\n", e.mustRun("balance", "--profile", "Default"))
}

func TestImportExport(t *testing.T) {
	e := setup(t)
	in := filepath.Join(e.dir, "in.csv")
	csv := "date,amount,source\n2025-01-15,50,Login\n2025-01-16,-20,Shop\nbad,1,x\n"
	require.NoError(t, os.WriteFile(in, []byte(csv), 0o644))

	out := e.mustRun("import", in)
	assert.Contains(t, out, "Imported 2 transactions (1 dropped")
	assert.Contains(t, out, "balance 30")

	var records []model.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("export")), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Login", records[0].Source)

	path := filepath.Join(e.dir, "out.csv")
	assert.Contains(t, e.mustRun("export", "--format", "csv", "-o", path), "Exported 2 transactions")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,date,amount,source,previous_balance\n"))

	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("export", "--format", "profile")), &profile))
	assert.Equal(t, "Default", profile["profile_name"])
	assert.Contains(t, profile, "settings")

	_, err = e.run("export", "--format", "xml")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.run("import", filepath.Join(e.dir, "missing.json"))
	assert.Error(t, err)
}

func TestSessionFallbackConfig(t *testing.T) {
	dir := t.TempDir()
	e := &env{t: t, dir: dir, cfgPath: filepath.Join(dir, "coinledger.yaml")}
	e.mustRun("init", "--fallback", "session", "--data-dir", filepath.Join(dir, "data"))

	e.mustRun("add", "5", "Ads")
	assert.Equal(t, "Default: 0\n", e.mustRun("balance"), "session data does not outlive a run")
}
