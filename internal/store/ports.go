// Package store defines the persistence ports the ledger writes through.
package store

import (
	"context"

	"financeflow/internal/core"
)

// ErrNotFound is returned by every port when the addressed record does not
// exist for the owner. It is the only store error callers interpret.
var ErrNotFound = core.ErrNotFound

// Ports for outbound adapters. Every method is scoped to a single owner.
type (
	ProfileStore interface {
		// GetProfile returns ErrNotFound when the owner has no profile yet.
		GetProfile(ctx context.Context, owner string) (core.Profile, error)
		// SaveProfile inserts or replaces the owner's profile.
		SaveProfile(ctx context.Context, p core.Profile) (core.Profile, error)
	}

	CardStore interface {
		// InsertCard assigns ID and CreatedAt and returns the stored record.
		InsertCard(ctx context.Context, c core.Card) (core.Card, error)
		// UpdateCard replaces the whole record, balances included. Only
		// reconciliation writes absolute balances.
		UpdateCard(ctx context.Context, c core.Card) (core.Card, error)
		// UpdateCardDetails writes name, kind, last four and color, and adds
		// shift to both the balance and the opening balance.
		UpdateCardDetails(ctx context.Context, c core.Card, shift core.Money) (core.Card, error)
		// AdjustCardBalance adds delta to the stored balance in place and
		// returns the stored record.
		AdjustCardBalance(ctx context.Context, owner, id string, delta core.Money) (core.Card, error)
		DeleteCard(ctx context.Context, owner, id string) error
		// ListCards returns cards in creation order.
		ListCards(ctx context.Context, owner string) ([]core.Card, error)
		DeleteAllCards(ctx context.Context, owner string) error
	}

	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, owner, id string) error
		// ListTransactions returns transactions most recent first.
		ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
		// DetachCard clears the card reference of every transaction pointing at cardID.
		DetachCard(ctx context.Context, owner, cardID string) error
		DeleteAllTransactions(ctx context.Context, owner string) error
	}

	// OwnerLister enumerates owners with at least one card. Background
	// reconciliation uses it to sweep every ledger.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		ProfileStore
		CardStore
		TransactionStore
	}
)
