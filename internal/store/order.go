package store

import (
	"sort"

	"financeflow/internal/core"
)

// SortTransactions orders transactions most recent first, breaking ties on
// creation time so later inserts come first.
func SortTransactions(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.OccurredAt.Equal(b.OccurredAt.Time) {
			return a.OccurredAt.After(b.OccurredAt.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
