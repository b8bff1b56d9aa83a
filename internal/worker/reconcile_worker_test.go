package worker

import (
	"context"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/store/memory"
)

func seedDrift(t *testing.T, st *memory.Store, owner string) core.Card {
	t.Helper()
	ctx := context.Background()
	card, err := st.InsertCard(ctx, core.Card{
		Owner:          owner,
		Name:           "Main",
		Kind:           core.Debit,
		Balance:        core.Money{Cents: 1000},
		OpeningBalance: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Transaction stored without the paired balance write.
	_, err = st.InsertTransaction(ctx, core.Transaction{
		Owner:       owner,
		CardID:      card.ID,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 300},
		Description: "Groceries",
		Category:    "alimentacion",
		OccurredAt:  core.NewDate(2024, 3, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	return card
}

func balanceOf(t *testing.T, st *memory.Store, owner, id string) int64 {
	t.Helper()
	cards, _ := st.ListCards(context.Background(), owner)
	for _, c := range cards {
		if c.ID == id {
			return c.Balance.Cents
		}
	}
	t.Fatalf("card %s not found", id)
	return 0
}

func TestHandleReconcileRequest(t *testing.T) {
	st := memory.New()
	card := seedDrift(t, st, "u1")
	w := NewReconcileWorker(st, nil, nil)

	err := w.HandleEvent(context.Background(), ledger.Event{
		Type:   ledger.EventReconcileRequested,
		Owner:  "u1",
		CardID: card.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, st, "u1", card.ID); got != 700 {
		t.Fatalf("balance = %d, want 700", got)
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	st := memory.New()
	card := seedDrift(t, st, "u1")
	w := NewReconcileWorker(st, nil, nil)

	if err := w.HandleEvent(context.Background(), ledger.Event{Type: ledger.EventCardCreated, Owner: "u1", CardID: card.ID}); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, st, "u1", card.ID); got != 1000 {
		t.Fatalf("balance changed to %d", got)
	}
}

func TestHandleMissingCard(t *testing.T) {
	w := NewReconcileWorker(memory.New(), nil, nil)
	err := w.HandleEvent(context.Background(), ledger.Event{Type: ledger.EventReconcileRequested, Owner: "u1", CardID: "gone"})
	if err != nil {
		t.Fatalf("missing card should be acknowledged, got %v", err)
	}
}

type countingRecorder struct{ inconsistencies int }

func (c *countingRecorder) ObserveOperation(string, time.Duration, error) {}
func (c *countingRecorder) Inconsistency(string)                          { c.inconsistencies++ }

func TestStartupCheck(t *testing.T) {
	st := memory.New()
	a := seedDrift(t, st, "u1")
	b := seedDrift(t, st, "u2")
	rec := &countingRecorder{}
	w := NewReconcileWorker(st, rec, nil)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
	if balanceOf(t, st, "u1", a.ID) != 700 || balanceOf(t, st, "u2", b.ID) != 700 {
		t.Fatal("startup check should repair every owner")
	}
	if rec.inconsistencies != 2 {
		t.Fatalf("recorded %d repairs, want 2", rec.inconsistencies)
	}
}

type eventSink struct{ events []ledger.Event }

func (s *eventSink) Publish(_ context.Context, e ledger.Event) error {
	s.events = append(s.events, e)
	return nil
}

func TestRepairsAreAnnounced(t *testing.T) {
	tests := []struct {
		name string
		run  func(w *ReconcileWorker, card core.Card) error
	}{
		{"reconcile request", func(w *ReconcileWorker, card core.Card) error {
			return w.HandleEvent(context.Background(), ledger.Event{Type: ledger.EventReconcileRequested, Owner: "u1", CardID: card.ID})
		}},
		{"startup pass", func(w *ReconcileWorker, _ core.Card) error {
			return w.StartupCheck(context.Background())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			card := seedDrift(t, st, "u1")
			sink := &eventSink{}
			w := NewReconcileWorker(st, nil, nil).WithPublisher(sink)

			if err := tt.run(w, card); err != nil {
				t.Fatal(err)
			}
			if len(sink.events) != 1 {
				t.Fatalf("published %d events, want 1", len(sink.events))
			}
			e := sink.events[0]
			if e.Type != ledger.EventCardReconciled || e.Owner != "u1" || e.CardID != card.ID || e.Source != Source {
				t.Fatalf("event = %+v", e)
			}

			// A consistent card is not announced again.
			if err := tt.run(w, card); err != nil {
				t.Fatal(err)
			}
			if len(sink.events) != 1 {
				t.Fatalf("published %d events after a no-op pass", len(sink.events))
			}
		})
	}
}
