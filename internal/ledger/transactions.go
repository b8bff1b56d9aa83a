package ledger

import (
	"context"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

// cardDelta is a pending balance adjustment on one card.
type cardDelta struct {
	cardID string
	delta  core.Money
}

// AddTransaction stores a new transaction and applies its signed amount to
// the target card. cardID nil defers to the default-card policy; a pointer to
// "" explicitly attaches no card.
func (m *Manager) AddTransaction(ctx context.Context, draft core.TransactionDraft, cardID *string) (tx core.Transaction, err error) {
	defer m.observe(OpAddTransaction, time.Now(), &err)

	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	target, err := m.resolveCard(snap, cardID)
	if err != nil {
		return core.Transaction{}, err
	}

	stored, err := m.store.InsertTransaction(ctx, core.Transaction{
		Owner:       m.owner,
		CardID:      target,
		Kind:        draft.Kind,
		Amount:      draft.Amount,
		Description: draft.Description,
		Category:    draft.Category,
		OccurredAt:  draft.OccurredAt,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	next := snap.Clone()
	next.Transactions = append([]core.Transaction{stored}, next.Transactions...)

	var deltas []cardDelta
	if target != "" {
		deltas = append(deltas, cardDelta{cardID: target, delta: stored.Signed()})
	}
	cardErr := m.applyCardDeltas(ctx, &next, deltas, OpAddTransaction)
	m.commit(next)

	m.logger.InfoContext(ctx, "Transaction added", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpCreate).
		WithTransaction(stored.ID, string(stored.Kind), stored.Amount.Cents, stored.Category).
		ToSlice()...)
	m.publish(ctx, Event{Type: EventTransactionCreated, TransactionID: stored.ID, CardID: target, Op: OpAddTransaction})

	return stored, cardErr
}

// EditTransaction merges patch into the transaction and moves the balance
// effect accordingly. When the card reference changes, the old card loses the
// original signed amount and the new card gains the new one.
func (m *Manager) EditTransaction(ctx context.Context, id string, patch core.TransactionPatch) (tx core.Transaction, err error) {
	defer m.observe(OpEditTransaction, time.Now(), &err)

	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	orig, ok := snap.Transaction(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	updated := patch.Apply(orig)
	if updated.CardID != orig.CardID && updated.CardID != "" {
		if _, ok := snap.Card(updated.CardID); !ok {
			return core.Transaction{}, fmt.Errorf("card %s: %w", updated.CardID, core.ErrNotFound)
		}
	}

	stored, err := m.store.UpdateTransaction(ctx, updated)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	next := snap.Clone()
	for i := range next.Transactions {
		if next.Transactions[i].ID == id {
			next.Transactions[i] = stored
			break
		}
	}

	cardErr := m.applyCardDeltas(ctx, &next, editDeltas(orig, stored), OpEditTransaction)
	m.commit(next)

	m.logger.InfoContext(ctx, "Transaction updated", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpUpdate).
		WithTransaction(stored.ID, string(stored.Kind), stored.Amount.Cents, stored.Category).
		ToSlice()...)
	m.publish(ctx, Event{Type: EventTransactionUpdated, TransactionID: id, CardID: stored.CardID, Op: OpEditTransaction})

	return stored, cardErr
}

// editDeltas computes the card adjustments an edit from orig to updated needs.
func editDeltas(orig, updated core.Transaction) []cardDelta {
	origSigned := orig.Signed()
	newSigned := updated.Signed()

	if orig.CardID == updated.CardID {
		delta := newSigned.Sub(origSigned)
		if orig.CardID == "" || delta.IsZero() {
			return nil
		}
		return []cardDelta{{cardID: orig.CardID, delta: delta}}
	}

	var out []cardDelta
	if orig.CardID != "" && !origSigned.IsZero() {
		out = append(out, cardDelta{cardID: orig.CardID, delta: origSigned.Neg()})
	}
	if updated.CardID != "" && !newSigned.IsZero() {
		out = append(out, cardDelta{cardID: updated.CardID, delta: newSigned})
	}
	return out
}

// DeleteTransaction removes the transaction and reverses its effect on the
// referenced card.
func (m *Manager) DeleteTransaction(ctx context.Context, id string) (err error) {
	defer m.observe(OpDeleteTransaction, time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	orig, ok := snap.Transaction(id)
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}

	if err := m.store.DeleteTransaction(ctx, m.owner, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	next := snap.Clone()
	kept := next.Transactions[:0]
	for _, t := range next.Transactions {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	next.Transactions = kept

	var deltas []cardDelta
	if orig.CardID != "" && !orig.Amount.IsZero() {
		deltas = append(deltas, cardDelta{cardID: orig.CardID, delta: orig.Signed().Neg()})
	}
	cardErr := m.applyCardDeltas(ctx, &next, deltas, OpDeleteTransaction)
	m.commit(next)

	m.logger.InfoContext(ctx, "Transaction deleted", log.NewFields().
		WithOwner(m.owner).
		WithOperation(log.OpDelete).
		WithTransaction(orig.ID, string(orig.Kind), orig.Amount.Cents, orig.Category).
		ToSlice()...)
	m.publish(ctx, Event{Type: EventTransactionDeleted, TransactionID: id, CardID: orig.CardID, Op: OpDeleteTransaction})

	return cardErr
}

// resolveCard picks the card a new transaction lands on.
func (m *Manager) resolveCard(snap *core.Snapshot, cardID *string) (string, error) {
	if cardID != nil {
		if *cardID == "" {
			return "", nil
		}
		if _, ok := snap.Card(*cardID); !ok {
			return "", fmt.Errorf("card %s: %w", *cardID, core.ErrNotFound)
		}
		return *cardID, nil
	}
	id, ok := m.policy(snap.Cards)
	if !ok {
		return "", nil
	}
	return id, nil
}

// applyCardDeltas persists each adjustment as an in-place increment and
// mirrors the stored card into next. The increment is applied by the store,
// so a repair made by another process is never overwritten by a stale
// snapshot. It stops at the first failed card write: that card and every
// later one are flagged as drifted, a reconcile request is published, and an
// InconsistencyError is returned. Writes already committed stay mirrored.
func (m *Manager) applyCardDeltas(ctx context.Context, next *core.Snapshot, deltas []cardDelta, op string) error {
	for i, d := range deltas {
		idx := -1
		for j := range next.Cards {
			if next.Cards[j].ID == d.cardID {
				idx = j
				break
			}
		}
		if idx < 0 {
			// The card vanished from the snapshot; nothing to adjust locally.
			continue
		}

		stored, err := m.store.AdjustCardBalance(ctx, m.owner, d.cardID, d.delta)
		if err != nil {
			for _, rest := range deltas[i:] {
				m.markDrift(rest.cardID)
				m.publish(ctx, Event{Type: EventReconcileRequested, CardID: rest.cardID, Op: op, Reason: err.Error()})
			}
			m.recorder.Inconsistency(op)
			m.logger.ErrorContext(ctx, "Card balance write failed after transaction write", log.NewFields().
				WithOwner(m.owner).
				WithOperation(op).
				WithCard(d.cardID, next.Cards[idx].Balance.Add(d.delta).Cents).
				WithError(err).
				ToSlice()...)
			return &InconsistencyError{CardID: d.cardID, Op: op, Err: err}
		}
		next.Cards[idx] = stored
		if core.ExpectedBalance(stored, next.Transactions) == stored.Balance {
			m.clearDrift(stored.ID)
		}
	}
	return nil
}
