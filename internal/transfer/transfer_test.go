package transfer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"financeflow/internal/core"
)

func sampleSnapshot() core.Snapshot {
	s := core.EmptySnapshot("u1")
	s.Profile.DisplayName = "Ana"
	s.Profile.MonthlyGoal = core.Money{Cents: 0}
	s.Cards = []core.Card{
		{ID: "c1", Owner: "u1", Name: "Principal", Kind: core.Debit, Balance: core.Money{Cents: 110000}, CreatedAt: time.Now()},
		{ID: "c2", Owner: "u1", Name: "Hucha", Kind: core.Savings, Balance: core.Money{Cents: 5000}, CreatedAt: time.Now()},
	}
	s.Transactions = []core.Transaction{
		{ID: "t2", Owner: "u1", CardID: "c1", Kind: core.Expense, Amount: core.Money{Cents: 2050}, Description: "Mercado", Category: "alimentacion", OccurredAt: core.NewDate(2024, 3, 12)},
		{ID: "t1", Owner: "u1", CardID: "c1", Kind: core.Income, Amount: core.Money{Cents: 150000}, Description: "Nómina", Category: "salario", OccurredAt: core.NewDate(2024, 2, 26)},
		{ID: "t0", Owner: "u1", Kind: core.Expense, Amount: core.Money{Cents: 300}, Description: "Café", Category: "made_up", OccurredAt: core.NewDate(2024, 2, 1)},
	}
	return s
}

func TestExportJSONRoundTripsSettings(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"userName": "Ana"`, `"currentAccountBalance": "1150.00"`, `"categoryBudgets"`, `"cards"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("export missing %s", key)
		}
	}

	patch, err := ParseImport(&buf)
	if err != nil {
		t.Fatalf("exported document should import: %v", err)
	}
	applied := patch.Apply(core.DefaultProfile("u1"))
	if applied.DisplayName != "Ana" {
		t.Errorf("display name = %q", applied.DisplayName)
	}
	if applied.MonthlyGoal.Cents != 0 {
		t.Errorf("zero goal must survive the round trip, got %d", applied.MonthlyGoal.Cents)
	}
	if applied.CategoryBudgets["vivienda"].Cents != 50000 {
		t.Errorf("budgets not carried: %+v", applied.CategoryBudgets)
	}
}

func TestExportJSONEmptySnapshotUsesArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, core.EmptySnapshot("u1")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"transactions": []`) || !strings.Contains(buf.String(), `"cards": []`) {
		t.Fatalf("expected empty arrays, got %s", buf.String())
	}
}

func TestParseImportPartial(t *testing.T) {
	patch, err := ParseImport(strings.NewReader(`{"monthlyBudget": 1500}`))
	if err != nil {
		t.Fatal(err)
	}
	if patch.DisplayName.IsSet() || patch.CategoryBudgets.IsSet() {
		t.Fatal("absent keys must stay absent")
	}
	if b, _ := patch.MonthlyBudget.Get(); b.Cents != 150000 {
		t.Fatalf("budget = %d", b.Cents)
	}
}

func TestParseImportRejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"userName": `,
		"not an object":  `[1,2,3]`,
		"unknown key":    `{"userName": "x", "theme": "dark"}`,
		"wrong type":     `{"monthlyGoal": true}`,
		"negative goal":  `{"monthlyGoal": -5}`,
		"bad budget":     `{"categoryBudgets": {"ocio": "abc"}}`,
		"trailing data":  `{"userName": "x"} {"userName": "y"}`,
		"empty category": `{"categoryBudgets": {"": 10}}`,
		"null budgets":   `{"categoryBudgets": null}`,
		"null goal":      `{"monthlyGoal": null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseImport(strings.NewReader(body)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	body := bytes.TrimPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF})
	if len(body) == buf.Len() {
		t.Fatal("missing byte order mark")
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(records))
	}
	want := []string{"2024-03-12", "Gasto", "Alimentación", "Mercado", "-20.50", "Principal"}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("col %d = %q, want %q", i, records[1][i], v)
		}
	}
	if records[3][2] != "made_up" || records[3][5] != "" {
		t.Errorf("unknown category or detached card rendered wrongly: %v", records[3])
	}
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(transactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][0] != "Fecha" {
		t.Fatalf("unexpected transaction rows: %v", rows)
	}
	if rows[2][1] != "Ingreso" || rows[2][4] != "1500" {
		t.Errorf("income row = %v", rows[2])
	}

	cards, err := f.GetRows(cardsSheet)
	if err != nil {
		t.Fatal(err)
	}
	last := cards[len(cards)-1]
	if last[0] != "Total" || last[3] != "1150" {
		t.Errorf("total row = %v", last)
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Error("default sheet should be removed")
	}
}
