package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOptionalJSON(t *testing.T) {
	var p SettingsPatch
	if err := json.Unmarshal([]byte(`{"monthlyGoal": 0, "userName": "Ana"}`), &p); err != nil {
		t.Fatal(err)
	}
	if g, ok := p.MonthlyGoal.Get(); !ok || !g.IsZero() {
		t.Fatalf("explicit zero goal should be present, got %v %v", g, ok)
	}
	if p.MonthlyBudget.IsSet() || p.CategoryBudgets.IsSet() {
		t.Fatal("absent fields reported as present")
	}
	if n := p.DisplayName.OrElse("x"); n != "Ana" {
		t.Fatalf("DisplayName = %q", n)
	}
}

func TestOptionalRejectsNull(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		target any
	}{
		{"card balance", `{"balance": null}`, &CardPatch{}},
		{"category budgets", `{"categoryBudgets": null}`, &SettingsPatch{}},
		{"padded null", `{"userName":  null }`, &SettingsPatch{}},
		{"transaction card", `{"card_id": null}`, &TransactionPatch{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tt.body), tt.target)
			if !errors.Is(err, ErrNullValue) {
				t.Fatalf("err = %v, want ErrNullValue", err)
			}
			if !IsValidation(err) {
				t.Fatal("null should be a validation error")
			}
		})
	}

	var p CardPatch
	if err := json.Unmarshal([]byte(`{"balance": "0", "color": ""}`), &p); err != nil {
		t.Fatalf("explicit zero values: %v", err)
	}
	if b, ok := p.Balance.Get(); !ok || !b.IsZero() {
		t.Fatalf("zero balance should be present, got %v %v", b, ok)
	}
}

func TestSettingsPatchApply(t *testing.T) {
	base := DefaultProfile("u1")

	got := SettingsPatch{MonthlyGoal: Some(Money{})}.Apply(base)
	if !got.MonthlyGoal.IsZero() {
		t.Fatal("zero goal not applied")
	}
	if got.MonthlyBudget != base.MonthlyBudget || got.DisplayName != base.DisplayName {
		t.Fatal("absent fields changed")
	}

	got = SettingsPatch{CategoryBudgets: Some(map[string]Money{"ocio": {Cents: 1}})}.Apply(base)
	if len(got.CategoryBudgets) != 1 || got.CategoryBudgets["ocio"].Cents != 1 {
		t.Fatalf("budgets not replaced: %v", got.CategoryBudgets)
	}
	if len(base.CategoryBudgets) != 12 {
		t.Fatal("Apply mutated the input profile")
	}

	if !(SettingsPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{ID: "t1", CardID: "c1", Kind: Expense, Amount: Money{Cents: 500}, Description: "a", Category: "ocio"}

	out := TransactionPatch{Amount: Some(Money{Cents: 200}), CardID: Some("")}.Apply(tx)
	if out.Amount.Cents != 200 || out.CardID != "" || out.Description != "a" {
		t.Fatalf("unexpected result: %+v", out)
	}

	if err := (TransactionPatch{Description: Some(" ")}).Validate(); err == nil {
		t.Fatal("expected empty description error")
	}
	if err := (TransactionPatch{Amount: Some(Money{Cents: -1})}).Validate(); err == nil {
		t.Fatal("expected negative amount error")
	}
}

func TestCardPatch(t *testing.T) {
	c := Card{ID: "c1", Name: "Main", Kind: Debit, Balance: Money{Cents: 100}}
	out := CardPatch{Color: Some("#fff"), Balance: Some(Money{Cents: -50})}.Apply(c)
	if out.Color != "#fff" || out.Balance.Cents != -50 || out.Name != "Main" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if err := (CardPatch{Kind: Some(CardKind("gold"))}).Validate(); err == nil {
		t.Fatal("expected invalid kind error")
	}
}
