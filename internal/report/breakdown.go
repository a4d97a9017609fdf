// Package report derives aggregate views from a profile's transactions.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/coinledger/internal/model"
)

// SignPredicate selects the transactions a breakdown covers.
type SignPredicate func(model.Transaction) bool

// Earnings selects transactions that add coins.
func Earnings(tx model.Transaction) bool { return tx.Amount > 0 }

// Spending selects transactions that remove coins.
func Spending(tx model.Transaction) bool { return tx.Amount < 0 }

// RelabelPolicy maps a source to the label it is reported under. Sources
// missing from the table keep their own name.
type RelabelPolicy map[string]string

// Label returns the display label for source.
func (p RelabelPolicy) Label(source string) string {
	if label, ok := p[source]; ok && label != "" {
		return label
	}
	return source
}

// Line is one source's share of a breakdown.
type Line struct {
	Label  string          `json:"label"`
	Amount int64           `json:"amount"` // magnitude
	Share  decimal.Decimal `json:"share"`  // percent of the total, two places
}

// Breakdown groups amounts by label in first-seen order.
type Breakdown struct {
	Lines []Line `json:"lines"`
	Total int64  `json:"total"`
}

// Map returns label to amount.
func (b Breakdown) Map() map[string]int64 {
	m := make(map[string]int64, len(b.Lines))
	for _, l := range b.Lines {
		m[l.Label] = l.Amount
	}
	return m
}

// Empty reports whether nothing matched.
func (b Breakdown) Empty() bool { return len(b.Lines) == 0 }

var hundred = decimal.NewFromInt(100)

// BreakdownBy sums abs(amount) per label over transactions matching pred.
// relabel is applied to every matching source; pass nil for none.
func BreakdownBy(txs []model.Transaction, pred SignPredicate, relabel RelabelPolicy) Breakdown {
	var b Breakdown
	index := make(map[string]int)
	for _, tx := range txs {
		if !pred(tx) {
			continue
		}
		label := relabel.Label(tx.Source)
		amount := abs(tx.Amount)
		b.Total += amount
		if i, ok := index[label]; ok {
			b.Lines[i].Amount += amount
			continue
		}
		index[label] = len(b.Lines)
		b.Lines = append(b.Lines, Line{Label: label, Amount: amount})
	}
	if b.Total > 0 {
		total := decimal.NewFromInt(b.Total)
		for i := range b.Lines {
			b.Lines[i].Share = decimal.NewFromInt(b.Lines[i].Amount).Mul(hundred).Div(total).Round(2)
		}
	}
	return b
}

// EarningsBreakdown groups earnings by source.
func EarningsBreakdown(txs []model.Transaction) Breakdown {
	return BreakdownBy(txs, Earnings, nil)
}

// SpendingBreakdown groups spending by source, relabeled through relabel.
func SpendingBreakdown(txs []model.Transaction, relabel RelabelPolicy) Breakdown {
	return BreakdownBy(txs, Spending, relabel)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
