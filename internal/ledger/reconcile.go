package ledger

import (
	"context"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/store"
)

// ReconcileCard recomputes a card's balance from its opening balance and the
// store's full transaction list, persisting it when it differs. The bool
// reports whether a write happened.
func ReconcileCard(ctx context.Context, st store.Store, owner, cardID string) (core.Card, bool, error) {
	cards, err := st.ListCards(ctx, owner)
	if err != nil {
		return core.Card{}, false, fmt.Errorf("list cards: %w", err)
	}
	var card core.Card
	found := false
	for _, c := range cards {
		if c.ID == cardID {
			card, found = c, true
			break
		}
	}
	if !found {
		return core.Card{}, false, fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
	}

	txs, err := st.ListTransactions(ctx, owner)
	if err != nil {
		return core.Card{}, false, fmt.Errorf("list transactions: %w", err)
	}

	want := core.ExpectedBalance(card, txs)
	if want == card.Balance {
		return card, false, nil
	}
	card.Balance = want
	stored, err := st.UpdateCard(ctx, card)
	if err != nil {
		return core.Card{}, false, fmt.Errorf("update card: %w", err)
	}
	return stored, true, nil
}

// Reconcile repairs one card from the store and mirrors the result.
func (m *Manager) Reconcile(ctx context.Context, cardID string) (card core.Card, err error) {
	defer m.observe(OpReconcile, time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, changed, err := ReconcileCard(ctx, m.store, m.owner, cardID)
	if err != nil {
		return core.Card{}, err
	}

	next := m.current().Clone()
	for i := range next.Cards {
		if next.Cards[i].ID == cardID {
			next.Cards[i] = stored
			break
		}
	}
	m.commit(next)
	m.clearDrift(cardID)

	m.logger.InfoContext(ctx, "Card reconciled", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpReconcile).
		WithCard(stored.ID, stored.Balance.Cents).
		ToSlice()...)
	if changed {
		m.publish(ctx, Event{Type: EventCardReconciled, CardID: cardID, Op: OpReconcile})
	}
	return stored, nil
}

// ReconcileDrifted reconciles every flagged card and returns the first error.
func (m *Manager) ReconcileDrifted(ctx context.Context) error {
	var first error
	for _, id := range m.Drifted() {
		if _, err := m.Reconcile(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReconcileOwner reconciles every card of owner and returns the ids of the
// cards whose stored balance was rewritten.
func ReconcileOwner(ctx context.Context, st store.Store, owner string) ([]string, error) {
	cards, err := st.ListCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	var fixed []string
	for _, c := range cards {
		_, changed, err := ReconcileCard(ctx, st, owner, c.ID)
		if err != nil {
			return fixed, err
		}
		if changed {
			fixed = append(fixed, c.ID)
		}
	}
	return fixed, nil
}
