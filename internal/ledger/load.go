package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/store"
)

// Load fetches profile, cards and transactions concurrently and replaces the
// snapshot. A missing profile is created with defaults. Cards whose balance
// disagrees with their transactions are flagged as drifted.
func (m *Manager) Load(ctx context.Context) (err error) {
	defer m.observe(OpLoad, time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		profile core.Profile
		cards   []core.Card
		txs     []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := loadProfile(gctx, m.store, m.owner)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		c, err := m.store.ListCards(gctx, m.owner)
		if err != nil {
			return fmt.Errorf("list cards: %w", err)
		}
		cards = c
		return nil
	})
	g.Go(func() error {
		t, err := m.store.ListTransactions(gctx, m.owner)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		txs = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if cards == nil {
		cards = []core.Card{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}

	for _, c := range cards {
		if want := core.ExpectedBalance(c, txs); want != c.Balance {
			m.logger.WarnContext(ctx, "Card balance drift detected",
				log.FieldOwner, m.owner,
				log.FieldCardID, c.ID,
				log.FieldBalanceCents, c.Balance.Cents,
				"expected_cents", want.Cents)
			m.markDrift(c.ID)
		} else {
			m.clearDrift(c.ID)
		}
	}

	m.commit(core.Snapshot{Profile: profile, Cards: cards, Transactions: txs})
	m.logger.DebugContext(ctx, "Ledger loaded",
		log.FieldOwner, m.owner,
		"cards", len(cards),
		"transactions", len(txs))
	return nil
}

// ReadSnapshot fetches owner's data without writing anything. An owner
// without a stored profile gets the defaults, which are not saved.
func ReadSnapshot(ctx context.Context, st store.Store, owner string) (core.Snapshot, error) {
	profile, err := st.GetProfile(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		profile = core.DefaultProfile(owner)
	} else if err != nil {
		return core.Snapshot{}, fmt.Errorf("get profile: %w", err)
	}
	if profile.CategoryBudgets == nil {
		profile.CategoryBudgets = map[string]core.Money{}
	}
	cards, err := st.ListCards(ctx, owner)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list cards: %w", err)
	}
	txs, err := st.ListTransactions(ctx, owner)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	snap := core.Snapshot{Profile: profile, Cards: cards, Transactions: txs}
	if snap.Cards == nil {
		snap.Cards = []core.Card{}
	}
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	return snap, nil
}

// loadProfile returns the owner's profile, creating the default one when the
// store has none.
func loadProfile(ctx context.Context, st store.ProfileStore, owner string) (core.Profile, error) {
	p, err := st.GetProfile(ctx, owner)
	if err == nil {
		if p.CategoryBudgets == nil {
			p.CategoryBudgets = map[string]core.Money{}
		}
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p, err = st.SaveProfile(ctx, core.DefaultProfile(owner))
	if err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}
