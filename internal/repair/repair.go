// Package repair turns loosely-typed loaded data into well-formed transactions
// and settings. It never fails: records it cannot fix are dropped and counted.
package repair

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/coinledger/internal/id"
	"github.com/cleared-dev/coinledger/internal/model"
)

// Issue describes one dropped or repaired record.
type Issue struct {
	Index       int // position in the loaded list, -1 for settings
	Field       string
	Description string
	Dropped     bool
}

func (i Issue) String() string {
	action := "repaired"
	if i.Dropped {
		action = "dropped"
	}
	if i.Index < 0 {
		return fmt.Sprintf("settings %s %s: %s", i.Field, action, i.Description)
	}
	return fmt.Sprintf("record %d %s (%s): %s", i.Index, action, i.Field, i.Description)
}

// Report counts what a repair pass changed.
type Report struct {
	Dropped  int
	Repaired int
	Issues   []Issue
}

// Changed reports whether the repaired data differs from what was loaded.
func (r Report) Changed() bool {
	return r.Dropped > 0 || r.Repaired > 0
}

func (r *Report) merge(o Report) {
	r.Dropped += o.Dropped
	r.Repaired += o.Repaired
	r.Issues = append(r.Issues, o.Issues...)
}

// Options configures a repair pass.
type Options struct {
	Defaults model.Settings  // settings overlaid by whatever was loaded
	NewID    id.Generator    // defaults to id.New
	Location *time.Location  // zone for naive timestamps, defaults to time.Local
	Taken    map[string]bool // ids already in use, never reused
}

func (o Options) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return id.New()
}

// Result is the outcome of Repair.
type Result struct {
	Transactions []model.Transaction // input order, Seq = position
	Settings     model.Settings
	Report       Report
}

// Repair validates a loaded profile.
func Repair(raw model.RawProfile, opts Options) Result {
	txs, report := Records(raw.Transactions, opts)
	settings, sr := Settings(raw.Settings, opts.Defaults)
	report.merge(sr)
	return Result{Transactions: txs, Settings: settings, Report: report}
}

// Records validates raw transaction records. Accepted records keep their
// relative order and are numbered by Seq from zero.
func Records(raw []any, opts Options) ([]model.Transaction, Report) {
	var report Report
	seen := make(map[string]bool, len(raw)+len(opts.Taken))
	for k := range opts.Taken {
		seen[k] = true
	}

	txs := make([]model.Transaction, 0, len(raw))
	for i, v := range raw {
		tx, issues, ok := record(i, v, opts.Location)
		if !ok {
			report.Dropped++
			report.Issues = append(report.Issues, issues...)
			continue
		}

		if !id.Valid(tx.ID) {
			tx.ID = opts.newID()
			issues = append(issues, Issue{Index: i, Field: "id", Description: "missing id assigned"})
		} else if seen[tx.ID] {
			tx.ID = opts.newID()
			issues = append(issues, Issue{Index: i, Field: "id", Description: "duplicate id replaced"})
		}
		seen[tx.ID] = true

		if len(issues) > 0 {
			report.Repaired++
			report.Issues = append(report.Issues, issues...)
		}
		tx.Seq = len(txs)
		txs = append(txs, tx)
	}
	return txs, report
}

func record(i int, v any, loc *time.Location) (model.Transaction, []Issue, bool) {
	drop := func(field, desc string) (model.Transaction, []Issue, bool) {
		return model.Transaction{}, []Issue{{Index: i, Field: field, Description: desc, Dropped: true}}, false
	}

	m, ok := v.(map[string]any)
	if !ok {
		return drop("record", fmt.Sprintf("record is %T, want object", v))
	}
	for _, field := range []string{"date", "amount", "source"} {
		if val, ok := m[field]; !ok || val == nil {
			return drop(field, "missing required field")
		}
	}

	var issues []Issue

	amount, exact, ok := Int(m["amount"])
	if !ok {
		return drop("amount", fmt.Sprintf("%v is not an integer", m["amount"]))
	}
	if amount == 0 {
		return drop("amount", "zero amount")
	}
	if !exact {
		issues = append(issues, Issue{Index: i, Field: "amount", Description: "coerced to integer"})
	}

	dateStr, ok := m["date"].(string)
	if !ok {
		return drop("date", fmt.Sprintf("date is %T, want string", m["date"]))
	}
	ts, err := model.ParseTimestamp(dateStr, loc)
	if err != nil {
		return drop("date", err.Error())
	}
	if model.FormatTimestamp(ts) != dateStr {
		issues = append(issues, Issue{Index: i, Field: "date", Description: "normalized"})
	}

	source, isString := m["source"].(string)
	if !isString {
		source = fmt.Sprint(m["source"])
		issues = append(issues, Issue{Index: i, Field: "source", Description: "coerced to string"})
	}
	if trimmed := strings.TrimSpace(source); trimmed != source {
		source = trimmed
		issues = append(issues, Issue{Index: i, Field: "source", Description: "trimmed"})
	}
	if source == "" {
		return drop("source", "blank source")
	}

	txID, _ := m["id"].(string)

	var prev int64
	if p, exact, ok := Int(m["previous_balance"]); ok && exact {
		prev = p
	}

	return model.Transaction{
		ID:              txID,
		Timestamp:       ts,
		Amount:          amount,
		Source:          source,
		PreviousBalance: prev,
	}, issues, true
}

// Int coerces a decoded JSON value to an integer. exact is false when the
// value had to be converted (a fractional number truncated toward zero, or a
// numeric string). Booleans are rejected.
func Int(v any) (n int64, exact bool, ok bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false, false
		}
		return fromFloat(f)
	case float64:
		if x == math.Trunc(x) {
			n, _, ok := fromFloat(x)
			return n, true, ok
		}
		return fromFloat(x)
	case int:
		return int64(x), true, true
	case int64:
		return x, true, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false, false
		}
		return i, false, true
	}
	return 0, false, false
}

func fromFloat(f float64) (int64, bool, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false, false
	}
	return int64(f), false, true
}
