package report

import (
	"testing"
	"time"

	"financeflow/internal/core"
)

func tx(id string, kind core.TxKind, amount int64, category string, y, m, d int) core.Transaction {
	return core.Transaction{
		ID:          id,
		Kind:        kind,
		Amount:      core.Money{Cents: amount},
		Description: "desc " + id,
		Category:    category,
		OccurredAt:  core.NewDate(y, m, d),
	}
}

func sampleSnapshot() core.Snapshot {
	s := core.EmptySnapshot("u1")
	s.Cards = []core.Card{
		{ID: "a", Balance: core.Money{Cents: 100000}},
		{ID: "b", Balance: core.Money{Cents: 25000}},
	}
	s.Transactions = []core.Transaction{
		tx("salary-feb", core.Income, 200000, "salario", 2025, 2, 26),
		tx("rent", core.Expense, 60000, "vivienda", 2025, 3, 1),
		tx("food", core.Expense, 35000, "alimentacion", 2025, 3, 5),
		tx("cinema", core.Expense, 2000, "ocio", 2025, 3, 5),
		tx("save", core.Expense, 10000, "ahorro", 2025, 3, 6),
		tx("salary-mar", core.Income, 200000, "salario", 2025, 3, 27),
		tx("late", core.Expense, 5000, "ocio", 2025, 3, 30),
	}
	return s
}

var march = Period{Month: time.March, Year: 2025}

func TestBuildDashboard(t *testing.T) {
	d := BuildDashboard(sampleSnapshot(), march)
	if d.Income.Cents != 200000 {
		t.Fatalf("income %d: late-month salary should roll into April", d.Income.Cents)
	}
	if d.Expenses.Cents != 112000 {
		t.Fatalf("expenses %d", d.Expenses.Cents)
	}
	if d.Savings.Cents != 88000 {
		t.Fatalf("savings %d", d.Savings.Cents)
	}
	if d.AggregateBalance.Cents != 125000 {
		t.Fatalf("balance %d", d.AggregateBalance.Cents)
	}
	if d.GoalProgress != 100 {
		t.Fatalf("goal progress %v, want capped at 100", d.GoalProgress)
	}
	if len(d.Recent) != RecentLimit || d.Recent[0].ID != "late" {
		t.Fatalf("recent = %v", d.Recent)
	}
}

func TestDashboardNegativeSavingsClamp(t *testing.T) {
	s := core.EmptySnapshot("u1")
	s.Transactions = []core.Transaction{tx("x", core.Expense, 100, "ocio", 2025, 3, 2)}
	d := BuildDashboard(s, march)
	if !d.Savings.IsZero() || d.GoalProgress != 0 {
		t.Fatalf("savings %d progress %v", d.Savings.Cents, d.GoalProgress)
	}
}

func TestBuildBudget(t *testing.T) {
	b := BuildBudget(sampleSnapshot(), march)
	lines := map[string]BudgetLine{}
	for _, l := range b.Lines {
		lines[l.Category] = l
	}
	if _, ok := lines["salario"]; ok {
		t.Fatal("income categories should not have budget lines")
	}

	rent := lines["vivienda"]
	if rent.Spent.Cents != 60000 || rent.Budget.Cents != 50000 || !rent.OverBudget || rent.Percentage != 120 {
		t.Fatalf("vivienda = %+v", rent)
	}
	ocio := lines["ocio"]
	if ocio.Spent.Cents != 7000 || ocio.OverBudget {
		t.Fatalf("ocio = %+v", ocio)
	}
	if lines["ahorro"].Percentage != 0 {
		t.Fatal("unbudgeted category should report 0%")
	}
	if b.TotalSpent.Cents != 112000 || b.TotalBudget.Cents != 200000 || b.Remaining.Cents != 88000 {
		t.Fatalf("totals: spent %d budget %d remaining %d", b.TotalSpent.Cents, b.TotalBudget.Cents, b.Remaining.Cents)
	}
}

func TestBuildCategoryDetail(t *testing.T) {
	d := BuildCategoryDetail(sampleSnapshot(), "ocio", march)
	if len(d.Transactions) != 2 || d.Total.Cents != 7000 || d.Group != core.GroupExpense || d.Label != "Ocio y Restaurantes" {
		t.Fatalf("detail = %+v", d)
	}

	salary := BuildCategoryDetail(sampleSnapshot(), "salario", march)
	if len(salary.Transactions) != 1 || salary.Transactions[0].ID != "salary-feb" {
		t.Fatalf("salario = %+v", salary.Transactions)
	}
}

func TestFilterTransactions(t *testing.T) {
	s := sampleSnapshot()
	cases := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"all", TransactionFilter{}, []string{"late", "salary-mar", "save", "food", "cinema", "rent", "salary-feb"}},
		{"calendar month", TransactionFilter{Month: time.February}, []string{"salary-feb"}},
		{"kind", TransactionFilter{Kind: core.Income}, []string{"salary-mar", "salary-feb"}},
		{"search description", TransactionFilter{Search: "DESC REN"}, []string{"rent"}},
		{"search category", TransactionFilter{Search: "alimen"}, []string{"food"}},
		{"no match", TransactionFilter{Search: "zzz"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterTransactions(s, tc.filter)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tc.want))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("position %d: got %s want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestBuildCashFlow(t *testing.T) {
	days := BuildCashFlow(sampleSnapshot(), march)
	if len(days) != 31 {
		t.Fatalf("len = %d", len(days))
	}
	if days[4].Expenses.Cents != 37000 || !days[4].Savings.IsZero() {
		t.Fatalf("day 5 = %+v", days[4])
	}
	if days[26].Income.Cents != 200000 || days[26].Savings.Cents != 200000 {
		t.Fatalf("day 27 = %+v", days[26])
	}

	feb := BuildCashFlow(sampleSnapshot(), Period{Month: time.February, Year: 2024})
	if len(feb) != 29 {
		t.Fatalf("leap february has %d days", len(feb))
	}
}

func TestBuildWallet(t *testing.T) {
	w := BuildWallet(sampleSnapshot(), []string{"b"})
	if w.Total.Cents != 125000 || len(w.Cards) != 2 || w.Drifted[0] != "b" {
		t.Fatalf("wallet = %+v", w)
	}
	if empty := BuildWallet(core.EmptySnapshot(""), nil); empty.Cards == nil || !empty.Total.IsZero() {
		t.Fatalf("empty wallet = %+v", empty)
	}
}

func TestBuildAnnual(t *testing.T) {
	a := BuildAnnual(sampleSnapshot(), 2025)
	if a.Months[2].Income.Cents != 200000 || a.Months[3].Income.Cents != 200000 {
		t.Fatalf("march %d april %d", a.Months[2].Income.Cents, a.Months[3].Income.Cents)
	}
	if a.Months[2].Expenses.Cents != 112000 {
		t.Fatalf("march expenses %d", a.Months[2].Expenses.Cents)
	}
	if a.Distribution["ocio"].Cents != 7000 {
		t.Fatalf("distribution = %v", a.Distribution)
	}
}
