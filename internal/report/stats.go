package report

import (
	"time"

	"github.com/cleared-dev/coinledger/internal/model"
)

// WindowStats sums earnings over calendar windows ending today.
type WindowStats struct {
	Today int64 `json:"today"`
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
}

// Stats computes earnings for today, the current Monday-based week and the
// current month. Dates are compared as calendar days in now's location;
// transactions dated after today are ignored.
func Stats(txs []model.Transaction, now time.Time) WindowStats {
	loc := now.Location()
	today := day(now, loc)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)

	var s WindowStats
	for _, tx := range txs {
		if tx.Amount <= 0 {
			continue
		}
		d := day(tx.Timestamp, loc)
		if d.After(today) {
			continue
		}
		if d.Equal(today) {
			s.Today += tx.Amount
		}
		if !d.Before(weekStart) {
			s.Week += tx.Amount
		}
		if !d.Before(monthStart) {
			s.Month += tx.Amount
		}
	}
	return s
}

func day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Totals are lifetime sums.
type Totals struct {
	Earned int64 `json:"earned"`
	Spent  int64 `json:"spent"` // magnitude
	Net    int64 `json:"net"`
	Count  int   `json:"count"`
}

// Sum computes lifetime totals.
func Sum(txs []model.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.Amount > 0 {
			t.Earned += tx.Amount
		} else {
			t.Spent -= tx.Amount
		}
	}
	t.Net = t.Earned - t.Spent
	t.Count = len(txs)
	return t
}

// TimelinePoint is the balance right after one transaction.
type TimelinePoint struct {
	Date    time.Time `json:"date"`
	Balance int64     `json:"balance"`
}

// Timeline returns the running balance after each transaction, in the order
// given (ascending for a ledger snapshot).
func Timeline(txs []model.Transaction) []TimelinePoint {
	points := make([]TimelinePoint, len(txs))
	var running int64
	for i, tx := range txs {
		running += tx.Amount
		points[i] = TimelinePoint{Date: tx.Timestamp, Balance: running}
	}
	return points
}
