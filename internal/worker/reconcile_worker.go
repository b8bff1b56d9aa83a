// Package worker repairs card balances out of band from the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/store"
)

// Backend is what the worker needs from persistence.
type Backend interface {
	store.Store
	store.OwnerLister
}

// Source is the event source name of the reconcile worker.
const Source = "reconcile-worker"

// ReconcileWorker consumes reconcile requests and rewrites drifted card
// balances from the stored transaction history. Every repair is announced
// as a card.reconciled event so processes holding the owner's snapshot can
// drop it.
type ReconcileWorker struct {
	store     Backend
	recorder  ledger.Recorder
	publisher ledger.Publisher
	logger    *log.Logger
}

func NewReconcileWorker(st Backend, recorder ledger.Recorder, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReconcileWorker{
		store:    st,
		recorder: recorder,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// WithPublisher announces repairs through p.
func (w *ReconcileWorker) WithPublisher(p ledger.Publisher) *ReconcileWorker {
	w.publisher = p
	return w
}

func (w *ReconcileWorker) announce(ctx context.Context, owner, cardID string) {
	if w.publisher == nil {
		return
	}
	e := ledger.Event{
		Type:   ledger.EventCardReconciled,
		Owner:  owner,
		CardID: cardID,
		Op:     ledger.OpReconcile,
		Source: Source,
		At:     time.Now().UTC(),
	}
	if err := w.publisher.Publish(ctx, e); err != nil {
		w.logger.WarnContext(ctx, "Failed to announce repair",
			log.FieldOwner, owner, log.FieldCardID, cardID, log.FieldError, err)
	}
}

// HandleEvent processes one ledger event. Only reconcile requests do work;
// every other event type is acknowledged untouched. A card that no longer
// exists needs no repair and is not an error.
func (w *ReconcileWorker) HandleEvent(ctx context.Context, e ledger.Event) error {
	if e.Type != ledger.EventReconcileRequested {
		return nil
	}
	if e.CardID == "" {
		return w.reconcileOwner(ctx, e.Owner)
	}

	w.logger.InfoContext(ctx, "Processing reconcile request",
		log.FieldOwner, e.Owner,
		log.FieldCardID, e.CardID,
		log.FieldOperation, e.Op,
		"reason", e.Reason)

	card, changed, err := ledger.ReconcileCard(ctx, w.store, e.Owner, e.CardID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.InfoContext(ctx, "Card gone, nothing to reconcile", log.FieldCardID, e.CardID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile card %s: %w", e.CardID, err)
	}

	if changed {
		w.logger.InfoContext(ctx, "Card balance repaired",
			log.FieldOwner, e.Owner,
			log.FieldCardID, card.ID,
			log.FieldBalanceCents, card.Balance.Cents)
		w.announce(ctx, e.Owner, card.ID)
	}
	return nil
}

// StartupCheck reconciles every card of every owner. It covers requests
// lost while the worker was down.
func (w *ReconcileWorker) StartupCheck(ctx context.Context) error {
	owners, err := w.store.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	failed := 0
	for _, owner := range owners {
		if err := w.reconcileOwner(ctx, owner); err != nil {
			w.logger.ErrorContext(ctx, "Startup reconcile failed", log.FieldOwner, owner, log.FieldError, err)
			failed++
		}
	}

	w.logger.InfoContext(ctx, "Startup reconcile completed",
		"owners", len(owners),
		"errors", failed)
	return nil
}

func (w *ReconcileWorker) reconcileOwner(ctx context.Context, owner string) error {
	fixed, err := ledger.ReconcileOwner(ctx, w.store, owner)
	for _, id := range fixed {
		if w.recorder != nil {
			w.recorder.Inconsistency(ledger.OpReconcile)
		}
		w.announce(ctx, owner, id)
	}
	if len(fixed) > 0 {
		w.logger.InfoContext(ctx, "Owner cards repaired", log.FieldOwner, owner, "cards", len(fixed))
	}
	return err
}
