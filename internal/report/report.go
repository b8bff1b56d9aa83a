// Package report derives the read-only views shown by the dashboard from a
// ledger snapshot. Monthly figures use the effective month of each
// transaction; the daily cash-flow series uses calendar dates.
package report

import (
	"sort"
	"strings"
	"time"

	"financeflow/internal/core"
)

// RecentLimit is the number of transactions on the dashboard.
const RecentLimit = 5

type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// PeriodOf returns the calendar period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

type Dashboard struct {
	Period           Period             `json:"period"`
	DisplayName      string             `json:"userName"`
	Income           core.Money         `json:"income"`
	Expenses         core.Money         `json:"expenses"`
	Savings          core.Money         `json:"savings"`
	AggregateBalance core.Money         `json:"balance"`
	MonthlyGoal      core.Money         `json:"monthlyGoal"`
	GoalProgress     float64            `json:"goalProgress"`
	Recent           []core.Transaction `json:"recent"`
}

// BuildDashboard summarizes the effective month p.
func BuildDashboard(s core.Snapshot, p Period) Dashboard {
	income, expenses := totals(core.FilterByEffectiveMonth(s.Transactions, p.Month, p.Year))
	savings := income.Sub(expenses)
	if savings.Cents < 0 {
		savings = core.Money{}
	}

	recent := sortedByDate(s.Transactions)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}

	return Dashboard{
		Period:           p,
		DisplayName:      s.Profile.DisplayName,
		Income:           income,
		Expenses:         expenses,
		Savings:          savings,
		AggregateBalance: s.AggregateBalance(),
		MonthlyGoal:      s.Profile.MonthlyGoal,
		GoalProgress:     percent(savings, s.Profile.MonthlyGoal, true),
		Recent:           recent,
	}
}

type BudgetLine struct {
	Category   string     `json:"category"`
	Label      string     `json:"label"`
	Group      string     `json:"group"`
	Budget     core.Money `json:"budget"`
	Spent      core.Money `json:"spent"`
	Percentage float64    `json:"percentage"`
	OverBudget bool       `json:"overBudget"`
}

type Budget struct {
	Period      Period       `json:"period"`
	Lines       []BudgetLine `json:"lines"`
	TotalBudget core.Money   `json:"totalBudget"`
	TotalSpent  core.Money   `json:"totalSpent"`
	Remaining   core.Money   `json:"remaining"`
}

// BuildBudget compares spending against the per-category ceilings of the
// expense and savings groups. Budgets for categories outside those groups
// still count toward TotalBudget.
func BuildBudget(s core.Snapshot, p Period) Budget {
	spent := map[string]core.Money{}
	for _, t := range core.FilterByEffectiveMonth(s.Transactions, p.Month, p.Year) {
		spent[t.Category] = spent[t.Category].Add(t.Amount)
	}

	b := Budget{Period: p, Lines: []BudgetLine{}}
	for _, g := range core.BudgetedGroups() {
		for _, item := range g.Items {
			ceiling := s.Profile.CategoryBudgets[item.ID]
			used := spent[item.ID]
			b.Lines = append(b.Lines, BudgetLine{
				Category:   item.ID,
				Label:      item.Label,
				Group:      g.ID,
				Budget:     ceiling,
				Spent:      used,
				Percentage: percent(used, ceiling, false),
				OverBudget: used.Cents > ceiling.Cents,
			})
			b.TotalSpent = b.TotalSpent.Add(used)
		}
	}
	for _, v := range s.Profile.CategoryBudgets {
		b.TotalBudget = b.TotalBudget.Add(v)
	}
	b.Remaining = b.TotalBudget.Sub(b.TotalSpent)
	return b
}

type CategoryDetail struct {
	Period       Period             `json:"period"`
	Category     string             `json:"category"`
	Label        string             `json:"label"`
	Group        string             `json:"group"`
	Transactions []core.Transaction `json:"transactions"`
	Total        core.Money         `json:"total"`
}

// BuildCategoryDetail lists the transactions of one category in p.
func BuildCategoryDetail(s core.Snapshot, category string, p Period) CategoryDetail {
	d := CategoryDetail{
		Period:       p,
		Category:     category,
		Label:        core.CategoryLabel(category),
		Group:        core.CategoryGroupOf(category),
		Transactions: []core.Transaction{},
	}
	for _, t := range core.FilterByEffectiveMonth(s.Transactions, p.Month, p.Year) {
		if t.Category == category {
			d.Transactions = append(d.Transactions, t)
			d.Total = d.Total.Add(t.Amount)
		}
	}
	return d
}

// TransactionFilter selects transactions for the transactions view. A zero
// Month matches every month; an empty Kind matches both kinds.
type TransactionFilter struct {
	Month  time.Month
	Kind   core.TxKind
	Search string
}

// FilterTransactions matches on calendar month, kind and a case-insensitive
// search over description and category, newest first.
func FilterTransactions(s core.Snapshot, f TransactionFilter) []core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := []core.Transaction{}
	for _, t := range s.Transactions {
		if f.Month != 0 && t.OccurredAt.Month() != f.Month {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(strings.ToLower(t.Category), needle) {
			continue
		}
		out = append(out, t)
	}
	return sortedByDate(out)
}

type CashFlowDay struct {
	Day      int        `json:"day"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	Savings  core.Money `json:"savings"`
}

// BuildCashFlow returns one entry per calendar day of p.
func BuildCashFlow(s core.Snapshot, p Period) []CashFlowDay {
	days := daysIn(p)
	out := make([]CashFlowDay, days)
	for i := range out {
		out[i].Day = i + 1
	}
	for _, t := range s.Transactions {
		if t.OccurredAt.Month() != p.Month || t.OccurredAt.Year() != p.Year {
			continue
		}
		d := &out[t.OccurredAt.Day()-1]
		if t.Kind == core.Income {
			d.Income = d.Income.Add(t.Amount)
		} else {
			d.Expenses = d.Expenses.Add(t.Amount)
		}
	}
	for i := range out {
		if net := out[i].Income.Sub(out[i].Expenses); net.Cents > 0 {
			out[i].Savings = net
		}
	}
	return out
}

type Wallet struct {
	Cards   []core.Card `json:"cards"`
	Total   core.Money  `json:"total"`
	Drifted []string    `json:"drifted,omitempty"`
}

func BuildWallet(s core.Snapshot, drifted []string) Wallet {
	cards := s.Cards
	if cards == nil {
		cards = []core.Card{}
	}
	return Wallet{Cards: cards, Total: s.AggregateBalance(), Drifted: drifted}
}

type MonthTotals struct {
	Month    time.Month `json:"month"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

type Annual struct {
	Year         int                   `json:"year"`
	Months       []MonthTotals         `json:"months"`
	Distribution map[string]core.Money `json:"distribution"`
}

// BuildAnnual totals each effective month of year and breaks the year's
// expenses down by category.
func BuildAnnual(s core.Snapshot, year int) Annual {
	a := Annual{Year: year, Months: make([]MonthTotals, 12), Distribution: map[string]core.Money{}}
	for i := range a.Months {
		a.Months[i].Month = time.Month(i + 1)
	}
	for _, t := range s.Transactions {
		m, y := core.EffectiveMonth(t)
		if y != year {
			continue
		}
		mt := &a.Months[m-1]
		if t.Kind == core.Income {
			mt.Income = mt.Income.Add(t.Amount)
			continue
		}
		mt.Expenses = mt.Expenses.Add(t.Amount)
		a.Distribution[t.Category] = a.Distribution[t.Category].Add(t.Amount)
	}
	return a
}

func totals(txs []core.Transaction) (income, expenses core.Money) {
	for _, t := range txs {
		if t.Kind == core.Income {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses
}

// percent returns part/whole*100 rounded to two decimals, 0 when whole is 0.
func percent(part, whole core.Money, capAt100 bool) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	v := part.Decimal().Div(whole.Decimal()).Shift(2).Round(2).InexactFloat64()
	if capAt100 && v > 100 {
		return 100
	}
	return v
}

func sortedByDate(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt.Time)
	})
	if out == nil {
		out = []core.Transaction{}
	}
	return out
}

func daysIn(p Period) int {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
