package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/store"
)

func TestMemoryProfileLazy(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.SaveProfile(ctx, core.DefaultProfile("u1")); err != nil {
		t.Fatal(err)
	}
	p, err := s.GetProfile(ctx, "u1")
	if err != nil || p.DisplayName != core.DefaultDisplayName {
		t.Fatalf("unexpected profile: %+v err=%v", p, err)
	}
}

func TestMemoryCardsScopedByOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.InsertCard(ctx, core.Card{Owner: "u1", Name: "A"})
	_, _ = s.InsertCard(ctx, core.Card{Owner: "u2", Name: "B"})
	c, _ := s.InsertCard(ctx, core.Card{Owner: "u1", Name: "C"})

	cards, err := s.ListCards(ctx, "u1")
	if err != nil || len(cards) != 2 || cards[0].ID != a.ID || cards[1].ID != c.ID {
		t.Fatalf("unexpected cards: %+v err=%v", cards, err)
	}
	if err := s.DeleteCard(ctx, "u2", a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner delete should be not found, got %v", err)
	}
	if _, err := s.UpdateCard(ctx, core.Card{ID: "missing", Owner: "u1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteAllCards(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if cards, _ := s.ListCards(ctx, "u1"); len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
	if cards, _ := s.ListCards(ctx, "u2"); len(cards) != 1 {
		t.Fatalf("other owner's cards were removed")
	}
}

func TestMemoryRelativeCardWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.InsertCard(ctx, core.Card{Owner: "u1", Name: "Main", Kind: core.Debit, Balance: core.Money{Cents: 1000}, OpeningBalance: core.Money{Cents: 1000}})

	tests := []struct {
		name        string
		apply       func() (core.Card, error)
		wantBalance int64
		wantOpening int64
	}{
		{"adjust adds delta", func() (core.Card, error) {
			return s.AdjustCardBalance(ctx, "u1", c.ID, core.Money{Cents: -250})
		}, 750, 1000},
		{"details shift both balances", func() (core.Card, error) {
			return s.UpdateCardDetails(ctx, core.Card{ID: c.ID, Owner: "u1", Name: "Wallet", Kind: core.Cash, Balance: core.Money{Cents: 1}}, core.Money{Cents: 100})
		}, 850, 1100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.apply()
			if err != nil {
				t.Fatal(err)
			}
			if got.Balance.Cents != tt.wantBalance || got.OpeningBalance.Cents != tt.wantOpening {
				t.Fatalf("balance=%d opening=%d, want %d %d", got.Balance.Cents, got.OpeningBalance.Cents, tt.wantBalance, tt.wantOpening)
			}
		})
	}

	cards, _ := s.ListCards(ctx, "u1")
	if cards[0].Name != "Wallet" || cards[0].Kind != core.Cash || cards[0].Balance.Cents != 850 {
		t.Fatalf("stored card = %+v", cards[0])
	}
	if _, err := s.AdjustCardBalance(ctx, "u2", c.ID, core.Money{Cents: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner adjust: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryTransactionsOrderAndDetach(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	ctx := context.Background()

	old, _ := s.InsertTransaction(ctx, core.Transaction{Owner: "u1", CardID: "c1", OccurredAt: core.NewDate(2025, 1, 5)})
	recent, _ := s.InsertTransaction(ctx, core.Transaction{Owner: "u1", CardID: "c1", OccurredAt: core.NewDate(2025, 2, 5)})
	sameDay, _ := s.InsertTransaction(ctx, core.Transaction{Owner: "u1", OccurredAt: core.NewDate(2025, 2, 5)})

	txs, _ := s.ListTransactions(ctx, "u1")
	want := []string{sameDay.ID, recent.ID, old.ID}
	for i, id := range want {
		if txs[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, txs[i].ID, id)
		}
	}

	if err := s.DetachCard(ctx, "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	txs, _ = s.ListTransactions(ctx, "u1")
	for _, tx := range txs {
		if tx.CardID != "" {
			t.Fatalf("transaction %s still references card", tx.ID)
		}
	}

	if err := s.DeleteTransaction(ctx, "u1", "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
