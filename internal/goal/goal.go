// Package goal computes progress toward a profile's savings goal.
package goal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Progress is the percentage of the goal reached. Set is false when the
// profile has no goal.
type Progress struct {
	Set     bool  `json:"set"`
	Percent int64 `json:"percent"`
	Balance int64 `json:"balance"`
	Goal    int64 `json:"goal"`
}

// NoGoal is the sentinel returned for a goal of zero or less.
var NoGoal = Progress{}

// Compute returns floor(balance/goal*100) clamped to [0, 100].
func Compute(balance, goal int64) Progress {
	if goal <= 0 {
		return NoGoal
	}
	pct := decimal.NewFromInt(balance).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(goal)).
		Floor()
	pct = decimal.Max(decimal.Zero, decimal.Min(pct, decimal.NewFromInt(100)))
	return Progress{Set: true, Percent: pct.IntPart(), Balance: balance, Goal: goal}
}

// Reached reports whether the goal is met.
func (p Progress) Reached() bool { return p.Set && p.Percent >= 100 }

// Remaining returns how many coins are still needed, never negative.
func (p Progress) Remaining() int64 {
	if !p.Set {
		return 0
	}
	return max(p.Goal-p.Balance, 0)
}

func (p Progress) String() string {
	if !p.Set {
		return "No goal set"
	}
	return fmt.Sprintf("%d%% of %d", p.Percent, p.Goal)
}
