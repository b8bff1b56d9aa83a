package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financeflow/internal/core"
	"financeflow/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteProfileRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetProfile(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := core.DefaultProfile("u1")
	p.MonthlyGoal = core.Money{}
	if _, err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.MonthlyGoal.IsZero() || got.MonthlyBudget.Cents != 200000 || got.CategoryBudgets["vivienda"].Cents != 50000 {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestSQLiteCardLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.InsertCard(ctx, core.Card{Owner: "u1", Name: "Main", Kind: core.Debit, Balance: core.Money{Cents: 1000}, OpeningBalance: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatal(err)
	}
	c.Balance = core.Money{Cents: 800}
	if _, err := repo.UpdateCard(ctx, c); err != nil {
		t.Fatal(err)
	}

	cards, err := repo.ListCards(ctx, "u1")
	if err != nil || len(cards) != 1 || cards[0].Balance.Cents != 800 || cards[0].OpeningBalance.Cents != 1000 {
		t.Fatalf("unexpected cards: %+v err=%v", cards, err)
	}

	if err := repo.DeleteCard(ctx, "u2", c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	if err := repo.DeleteCard(ctx, "u1", c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpdateCard(ctx, c); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteRelativeCardWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	server, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	worker, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Close()
	ctx := context.Background()

	c, err := server.InsertCard(ctx, core.Card{Owner: "u1", Name: "Main", Kind: core.Debit, Balance: core.Money{Cents: 1000}, OpeningBalance: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatal(err)
	}

	// A writer holding a stale copy of the card must not undo the other's work.
	stale := c
	repaired := c
	repaired.Balance = core.Money{Cents: 8000}
	if _, err := worker.UpdateCard(ctx, repaired); err != nil {
		t.Fatal(err)
	}
	got, err := server.AdjustCardBalance(ctx, "u1", stale.ID, core.Money{Cents: -100})
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance.Cents != 7900 {
		t.Fatalf("balance after adjust = %d, want 7900", got.Balance.Cents)
	}

	stale.Name = "Renamed"
	stale.Color = "#fff"
	got, err = server.UpdateCardDetails(ctx, stale, core.Money{Cents: 50})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed" || got.Color != "#fff" || got.Balance.Cents != 7950 || got.OpeningBalance.Cents != 1050 {
		t.Fatalf("unexpected card after details update: %+v", got)
	}

	if _, err := server.AdjustCardBalance(ctx, "u2", c.ID, core.Money{Cents: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner adjust: expected ErrNotFound, got %v", err)
	}
	if _, err := server.UpdateCardDetails(ctx, core.Card{ID: "missing", Owner: "u1", Kind: core.Debit}, core.Money{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing card: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	jan, err := repo.InsertTransaction(ctx, core.Transaction{
		Owner: "u1", CardID: "c1", Kind: core.Expense, Amount: core.Money{Cents: 200},
		Description: "rent", Category: "vivienda", OccurredAt: core.NewDate(2025, 1, 3),
	})
	if err != nil {
		t.Fatal(err)
	}
	feb, err := repo.InsertTransaction(ctx, core.Transaction{
		Owner: "u1", Kind: core.Income, Amount: core.Money{Cents: 300},
		Description: "salary", Category: "salario", OccurredAt: core.NewDate(2025, 2, 25),
	})
	if err != nil {
		t.Fatal(err)
	}

	txs, err := repo.ListTransactions(ctx, "u1")
	if err != nil || len(txs) != 2 || txs[0].ID != feb.ID || txs[1].ID != jan.ID {
		t.Fatalf("unexpected order: %+v err=%v", txs, err)
	}
	if txs[1].CardID != "c1" || txs[0].CardID != "" {
		t.Fatalf("card refs not preserved: %+v", txs)
	}

	jan.Amount = core.Money{Cents: 250}
	updated, err := repo.UpdateTransaction(ctx, jan)
	if err != nil || updated.Amount.Cents != 250 || !updated.CreatedAt.Equal(jan.CreatedAt) {
		t.Fatalf("unexpected update: %+v err=%v", updated, err)
	}

	if err := repo.DetachCard(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	txs, _ = repo.ListTransactions(ctx, "u1")
	for _, tx := range txs {
		if tx.CardID != "" {
			t.Fatalf("transaction %s still references c1", tx.ID)
		}
	}

	if err := repo.ResetOwner(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if txs, _ := repo.ListTransactions(ctx, "u1"); len(txs) != 0 {
		t.Fatalf("expected empty ledger after reset, got %d", len(txs))
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	version, dirty, err := SchemaVersion(path)
	if err != nil || version != 3 || dirty {
		t.Fatalf("unexpected version=%d dirty=%v err=%v", version, dirty, err)
	}
}
