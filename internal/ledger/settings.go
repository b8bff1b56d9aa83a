package ledger

import (
	"context"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

// UpdateSettings merges the present fields of patch into the profile. An
// empty patch is a no-op.
func (m *Manager) UpdateSettings(ctx context.Context, patch core.SettingsPatch) (profile core.Profile, err error) {
	defer m.observe(OpUpdateSettings, time.Now(), &err)

	if err := patch.Validate(); err != nil {
		return core.Profile{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.current()

	if patch.IsEmpty() {
		return snap.Profile.Clone(), nil
	}

	merged := patch.Apply(snap.Profile)
	merged.Owner = m.owner
	stored, err := m.store.SaveProfile(ctx, merged)
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	next := snap.Clone()
	next.Profile = stored
	m.commit(next)

	m.logger.InfoContext(ctx, "Settings updated", log.FieldOwner, m.owner, log.FieldOperation, log.OpUpdate)
	m.publish(ctx, Event{Type: EventSettingsUpdated, Op: OpUpdateSettings})
	return stored.Clone(), nil
}

// Resetter is implemented by stores that can wipe an owner's cards and
// transactions atomically.
type Resetter interface {
	ResetOwner(ctx context.Context, owner string) error
}

// ResetAllData deletes every card and transaction of the owner, restores the
// default profile and replaces the snapshot with the default one.
func (m *Manager) ResetAllData(ctx context.Context) (err error) {
	defer m.observe(OpReset, time.Now(), &err)

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.store.(Resetter); ok {
		if err := r.ResetOwner(ctx, m.owner); err != nil {
			return fmt.Errorf("reset owner: %w", err)
		}
	} else {
		if err := m.store.DeleteAllTransactions(ctx, m.owner); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if err := m.store.DeleteAllCards(ctx, m.owner); err != nil {
			return fmt.Errorf("delete cards: %w", err)
		}
	}
	profile, err := m.store.SaveProfile(ctx, core.DefaultProfile(m.owner))
	if err != nil {
		return fmt.Errorf("reset profile: %w", err)
	}

	next := core.EmptySnapshot(m.owner)
	next.Profile = profile
	m.commit(next)

	m.driftMu.Lock()
	m.drifted = make(map[string]struct{})
	m.driftMu.Unlock()

	m.logger.InfoContext(ctx, "Ledger reset", log.FieldOwner, m.owner, log.FieldOperation, log.OpReset)
	m.publish(ctx, Event{Type: EventDataReset, Op: OpReset})
	return nil
}
