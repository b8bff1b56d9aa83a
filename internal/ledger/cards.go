package ledger

import (
	"context"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

// AddCard stores a new card. Its opening balance is the draft balance.
func (m *Manager) AddCard(ctx context.Context, draft core.CardDraft) (card core.Card, err error) {
	defer m.observe(OpAddCard, time.Now(), &err)

	if err := draft.Validate(); err != nil {
		return core.Card{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	stored, err := m.store.InsertCard(ctx, core.Card{
		Owner:          m.owner,
		Name:           draft.Name,
		Kind:           draft.Kind,
		Balance:        draft.Balance,
		OpeningBalance: draft.Balance,
		LastFour:       draft.LastFour,
		Color:          draft.Color,
	})
	if err != nil {
		return core.Card{}, fmt.Errorf("insert card: %w", err)
	}

	next := snap.Clone()
	next.Cards = append(next.Cards, stored)
	m.commit(next)

	m.logger.InfoContext(ctx, "Card added", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpCreate).
		WithCard(stored.ID, stored.Balance.Cents).
		ToSlice()...)
	m.publish(ctx, Event{Type: EventCardCreated, CardID: stored.ID, Op: OpAddCard})
	return stored, nil
}

// UpdateCard applies patch to the card. Setting the balance directly shifts
// the opening balance by the same amount, so the card stays reconcilable.
// The shift is relative to the snapshot's balance and is applied by the
// store on top of whatever it currently holds.
func (m *Manager) UpdateCard(ctx context.Context, id string, patch core.CardPatch) (card core.Card, err error) {
	defer m.observe(OpUpdateCard, time.Now(), &err)

	if err := patch.Validate(); err != nil {
		return core.Card{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	orig, ok := snap.Card(id)
	if !ok {
		return core.Card{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	updated := patch.Apply(orig)
	shift := updated.Balance.Sub(orig.Balance)

	stored, err := m.store.UpdateCardDetails(ctx, updated, shift)
	if err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", err)
	}

	next := snap.Clone()
	for i := range next.Cards {
		if next.Cards[i].ID == id {
			next.Cards[i] = stored
			break
		}
	}
	m.commit(next)

	m.logger.InfoContext(ctx, "Card updated", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpUpdate).
		WithCard(stored.ID, stored.Balance.Cents).
		ToSlice()...)
	m.publish(ctx, Event{Type: EventCardUpdated, CardID: id, Op: OpUpdateCard})
	return stored, nil
}

// DeleteCard removes the card and clears the card reference of every
// transaction that pointed at it. The transactions themselves are kept.
func (m *Manager) DeleteCard(ctx context.Context, id string) (err error) {
	defer m.observe(OpDeleteCard, time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	if _, ok := snap.Card(id); !ok {
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}

	if err := m.store.DeleteCard(ctx, m.owner, id); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	next := snap.Clone()
	kept := next.Cards[:0]
	for _, c := range next.Cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	next.Cards = kept
	m.clearDrift(id)

	detachErr := m.store.DetachCard(ctx, m.owner, id)
	if detachErr == nil {
		for i := range next.Transactions {
			if next.Transactions[i].CardID == id {
				next.Transactions[i].CardID = ""
			}
		}
	} else {
		m.logger.ErrorContext(ctx, "Failed to detach transactions from deleted card",
			log.FieldOwner, m.owner, log.FieldCardID, id, log.FieldError, detachErr)
		detachErr = &InconsistencyError{CardID: id, Op: OpDeleteCard, Err: detachErr}
		m.recorder.Inconsistency(OpDeleteCard)
	}
	m.commit(next)

	m.logger.InfoContext(ctx, "Card deleted", log.FieldOwner, m.owner, log.FieldCardID, id)
	m.publish(ctx, Event{Type: EventCardDeleted, CardID: id, Op: OpDeleteCard})
	return detachErr
}
