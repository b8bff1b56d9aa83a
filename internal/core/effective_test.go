package core

import (
	"testing"
	"time"
)

func TestEffectiveMonth(t *testing.T) {
	cases := []struct {
		name      string
		kind      TxKind
		date      Date
		wantMonth time.Month
		wantYear  int
	}{
		{"income before threshold", Income, NewDate(2025, 3, 24), time.March, 2025},
		{"income on threshold", Income, NewDate(2025, 3, 25), time.April, 2025},
		{"income end of month", Income, NewDate(2025, 3, 31), time.April, 2025},
		{"december income wraps year", Income, NewDate(2024, 12, 28), time.January, 2025},
		{"expense late in month stays", Expense, NewDate(2025, 3, 30), time.March, 2025},
		{"expense in december stays", Expense, NewDate(2024, 12, 31), time.December, 2024},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, y := EffectiveMonth(Transaction{Kind: tc.kind, OccurredAt: tc.date})
			if m != tc.wantMonth || y != tc.wantYear {
				t.Fatalf("got %v %d, want %v %d", m, y, tc.wantMonth, tc.wantYear)
			}
		})
	}
}

func TestFilterByEffectiveMonth(t *testing.T) {
	txs := []Transaction{
		{ID: "salary", Kind: Income, OccurredAt: NewDate(2025, 2, 26)},
		{ID: "rent", Kind: Expense, OccurredAt: NewDate(2025, 3, 1)},
		{ID: "bonus", Kind: Income, OccurredAt: NewDate(2025, 3, 10)},
		{ID: "late-salary", Kind: Income, OccurredAt: NewDate(2025, 3, 25)},
		{ID: "late-expense", Kind: Expense, OccurredAt: NewDate(2025, 3, 31)},
	}
	got := FilterByEffectiveMonth(txs, time.March, 2025)
	want := []string{"salary", "rent", "bonus", "late-expense"}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, id)
		}
	}

	if out := FilterByEffectiveMonth(nil, time.March, 2025); len(out) != 0 {
		t.Fatal("expected empty result")
	}
}
