package model

import "time"

// Transaction is one balance-changing event in a profile's ledger.
type Transaction struct {
	ID              string
	Timestamp       time.Time
	Amount          int64 // positive = earning, negative = spend
	Source          string
	PreviousBalance int64 // derived, running balance before this transaction
	Seq             int   // insertion index, breaks timestamp ties
}

// BalanceAfter returns the running balance including this transaction.
func (t Transaction) BalanceAfter() int64 {
	return t.PreviousBalance + t.Amount
}

// IsEarning reports whether the transaction adds coins.
func (t Transaction) IsEarning() bool { return t.Amount > 0 }

// IsSpending reports whether the transaction removes coins.
func (t Transaction) IsSpending() bool { return t.Amount < 0 }

// Record converts a Transaction to its persisted form.
func (t Transaction) Record() TransactionRecord {
	return TransactionRecord{
		ID:              t.ID,
		Date:            FormatTimestamp(t.Timestamp),
		Amount:          t.Amount,
		Source:          t.Source,
		PreviousBalance: t.PreviousBalance,
	}
}

// Records converts transactions to their persisted form, keeping order.
func Records(txs []Transaction) []TransactionRecord {
	out := make([]TransactionRecord, len(txs))
	for i, t := range txs {
		out[i] = t.Record()
	}
	return out
}

// Less orders transactions by timestamp, then by insertion index.
func Less(a, b Transaction) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Seq < b.Seq
}
