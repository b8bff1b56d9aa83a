package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-25")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(NewDate(2025, 3, 25).Time) {
		t.Fatalf("got %v", d)
	}
	d, err = ParseDate("2025-03-25T10:30:00+02:00")
	if err != nil {
		t.Fatal(err)
	}
	if d.Hour() != 8 || d.Location() != time.UTC {
		t.Fatalf("expected UTC normalisation, got %v", d)
	}
	if _, err := ParseDate("25/03/2025"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDateJSON(t *testing.T) {
	b, _ := json.Marshal(NewDate(2025, 1, 2))
	if string(b) != `"2025-01-02T00:00:00Z"` {
		t.Fatalf("marshal = %s", b)
	}
	b, _ = json.Marshal(Date{})
	if string(b) != "null" {
		t.Fatalf("zero marshal = %s", b)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2025-01-02"`), &d); err != nil || d.Day() != 2 {
		t.Fatalf("unmarshal: %v %v", d, err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("zero is a valid amount, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{
		Kind:        Expense,
		Amount:      Money{Cents: 100},
		Description: "ok",
		Category:    "alimentacion",
		OccurredAt:  NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*TransactionDraft)
		want error
	}{
		{"kind", func(d *TransactionDraft) { d.Kind = "transfer" }, ErrInvalidKind},
		{"negative", func(d *TransactionDraft) { d.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"description", func(d *TransactionDraft) { d.Description = "  " }, ErrEmptyDescription},
		{"category", func(d *TransactionDraft) { d.Category = "" }, ErrEmptyCategory},
		{"date", func(d *TransactionDraft) { d.OccurredAt = Date{} }, nil},
		{"long", func(d *TransactionDraft) { d.Description = strings.Repeat("x", 201) }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.mut(&d)
			err := d.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCardDraftValidate(t *testing.T) {
	good := CardDraft{Name: "Main", Kind: Debit, Balance: Money{Cents: 0}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []CardDraft{
		{Name: "", Kind: Debit},
		{Name: "x", Kind: "gold"},
		{Name: "x", Kind: Credit, Balance: Money{Cents: -5}},
		{Name: strings.Repeat("n", 65), Kind: Cash},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSignedAmount(t *testing.T) {
	in := Transaction{Kind: Income, Amount: Money{Cents: 300}}
	out := Transaction{Kind: Expense, Amount: Money{Cents: 300}}
	if in.Signed().Cents != 300 || out.Signed().Cents != -300 {
		t.Fatalf("signed: %d %d", in.Signed().Cents, out.Signed().Cents)
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile("u1")
	if p.DisplayName != "Usuario" || p.MonthlyGoal.Cents != 50000 || p.MonthlyBudget.Cents != 200000 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if len(p.CategoryBudgets) != 12 || p.CategoryBudgets["vivienda"].Cents != 50000 {
		t.Fatalf("unexpected budgets: %v", p.CategoryBudgets)
	}

	c := p.Clone()
	c.CategoryBudgets["vivienda"] = Money{}
	if p.CategoryBudgets["vivienda"].Cents != 50000 {
		t.Fatal("Clone shares the budget map")
	}
}

func TestAggregateBalance(t *testing.T) {
	cards := []Card{
		{ID: "a", Balance: Money{Cents: 1000}},
		{ID: "b", Balance: Money{Cents: -250}},
		{ID: "c", Balance: Money{Cents: 0}},
	}
	if got := AggregateBalance(cards); got.Cents != 750 {
		t.Fatalf("AggregateBalance = %d", got.Cents)
	}
	if got := AggregateBalance(nil); !got.IsZero() {
		t.Fatalf("empty = %d", got.Cents)
	}
}

func TestExpectedBalance(t *testing.T) {
	card := Card{ID: "c1", OpeningBalance: Money{Cents: 1000}}
	txs := []Transaction{
		{CardID: "c1", Kind: Expense, Amount: Money{Cents: 200}},
		{CardID: "c1", Kind: Income, Amount: Money{Cents: 300}},
		{CardID: "other", Kind: Expense, Amount: Money{Cents: 999}},
		{Kind: Expense, Amount: Money{Cents: 50}},
	}
	if got := ExpectedBalance(card, txs); got.Cents != 1100 {
		t.Fatalf("ExpectedBalance = %d", got.Cents)
	}
}

func TestPolicies(t *testing.T) {
	cards := []Card{{ID: "first"}, {ID: "second"}}
	if id, ok := FirstCard(cards); !ok || id != "first" {
		t.Fatalf("FirstCard = %q %v", id, ok)
	}
	if _, ok := FirstCard(nil); ok {
		t.Fatal("FirstCard on empty list selected a card")
	}
	if _, ok := NoDefaultCard(cards); ok {
		t.Fatal("NoDefaultCard selected a card")
	}
}

func TestCategoryGroupOf(t *testing.T) {
	cases := map[string]string{
		"salario":          GroupIncome,
		"alimentacion":     GroupExpense,
		"fondo_emergencia": GroupSavings,
		"made_up":          "",
	}
	for id, want := range cases {
		if got := CategoryGroupOf(id); got != want {
			t.Errorf("CategoryGroupOf(%q) = %q, want %q", id, got, want)
		}
	}
	if CategoryLabel("made_up") != "made_up" {
		t.Error("unknown ids should label as themselves")
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrInvalidAmount, true},
		{fmt.Errorf("draft: %w", ErrDescriptionLong), true},
		{ErrMissingDate, true},
		{ErrNotFound, false},
		{errors.New("disk full"), false},
	}
	for _, tt := range tests {
		if got := IsValidation(tt.err); got != tt.want {
			t.Errorf("IsValidation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
