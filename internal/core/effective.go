package core

import "time"

// SalaryDayThreshold is the day of month from which income counts toward the
// following month's budget.
const SalaryDayThreshold = 25

// EffectiveMonth attributes a transaction to a budgeting month. Income posted
// on or after SalaryDayThreshold funds the next month.
func EffectiveMonth(t Transaction) (time.Month, int) {
	year, month, day := t.OccurredAt.Date()
	if t.Kind == Income && day >= SalaryDayThreshold {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return month, year
}

// InEffectiveMonth reports whether t counts toward month/year.
func InEffectiveMonth(t Transaction, month time.Month, year int) bool {
	m, y := EffectiveMonth(t)
	return m == month && y == year
}

func FilterByEffectiveMonth(txs []Transaction, month time.Month, year int) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if InEffectiveMonth(t, month, year) {
			out = append(out, t)
		}
	}
	return out
}
