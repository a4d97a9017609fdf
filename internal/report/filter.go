package report

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Kind selects transactions by sign.
type Kind int

const (
	KindAll Kind = iota
	KindEarnings
	KindSpending
)

// ParseKind accepts "", "all", "earnings" and "spending".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return KindAll, nil
	case "earnings", "earning", "income":
		return KindEarnings, nil
	case "spending", "spend", "expense":
		return KindSpending, nil
	}
	return KindAll, model.Invalid("type", "want all, earnings or spending, got "+strconv.Quote(s))
}

// Filter narrows a transaction list. Zero fields match everything.
type Filter struct {
	From     time.Time // inclusive calendar date
	To       time.Time // inclusive calendar date
	Source   string    // exact match
	Kind     Kind
	Search   string         // case-insensitive, matches the source or the amount digits
	Location *time.Location // zone for calendar dates, defaults to time.Local
}

// Filtered is the outcome of applying a Filter.
type Filtered struct {
	Transactions []model.Transaction
	Earned       int64 // earnings among the matches
}

// Validate rejects a range that ends before it starts.
func (f Filter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.date(f.To).Before(f.date(f.From)) {
		return model.Invalid("to", "date range ends before it starts")
	}
	return nil
}

// Match reports whether tx passes every criterion.
func (f Filter) Match(tx model.Transaction) bool {
	d := f.date(tx.Timestamp)
	if !f.From.IsZero() && d.Before(f.date(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(f.date(f.To)) {
		return false
	}
	if f.Source != "" && tx.Source != f.Source {
		return false
	}
	switch f.Kind {
	case KindEarnings:
		if tx.Amount <= 0 {
			return false
		}
	case KindSpending:
		if tx.Amount >= 0 {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(tx.Source), q) ||
			strings.Contains(strconv.FormatInt(tx.Amount, 10), q)
	}
	return true
}

// Apply keeps the matching transactions in their input order.
func (f Filter) Apply(txs []model.Transaction) Filtered {
	var out Filtered
	for _, tx := range txs {
		if !f.Match(tx) {
			continue
		}
		out.Transactions = append(out.Transactions, tx)
		if tx.Amount > 0 {
			out.Earned += tx.Amount
		}
	}
	return out
}

// Sources lists the distinct sources, sorted, for offering as filter choices.
func Sources(txs []model.Transaction) []string {
	seen := make(map[string]bool, len(txs))
	var out []string
	for _, tx := range txs {
		if !seen[tx.Source] {
			seen[tx.Source] = true
			out = append(out, tx.Source)
		}
	}
	slices.Sort(out)
	return out
}

func (f Filter) date(t time.Time) time.Time {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return day(t, loc)
}
