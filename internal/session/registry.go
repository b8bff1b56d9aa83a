// Package session keeps one loaded ledger.Manager per signed-in owner.
package session

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"financeflow/internal/auth"
	"financeflow/internal/cache"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
)

// Factory builds an unloaded Manager for owner.
type Factory func(owner string) *ledger.Manager

// Registry caches one Manager per owner. A Manager evicted while a request
// still holds it may finish that request after a fresh Manager has loaded;
// card balances stay correct in the store because the store applies every
// balance change as an increment, and the fresh snapshot catches up on its
// next load.
type Registry struct {
	managers *cache.LRUCache[*ledger.Manager]
	factory  Factory
	group    singleflight.Group
	logger   *log.Logger
}

func NewRegistry(factory Factory, size int, ttl time.Duration, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Registry{factory: factory, logger: logger.WithComponent(log.ComponentSession)}
	r.managers = cache.NewLRUCache[*ledger.Manager](size, ttl).
		WithSlidingTTL().
		OnEvict(func(owner string, m *ledger.Manager, reason cache.EvictReason) {
			r.logger.Debug("Ledger session released",
				log.FieldOwner, owner,
				"reason", reason,
				"drifted_cards", len(m.Drifted()))
		})
	return r
}

// Get returns the owner's Manager, loading it from the store on first use.
// Concurrent first requests for one owner share a single load.
func (r *Registry) Get(ctx context.Context, owner string) (*ledger.Manager, error) {
	if m, ok := r.managers.Get(owner); ok {
		return m, nil
	}

	v, err, _ := r.group.Do(owner, func() (interface{}, error) {
		if m, ok := r.managers.Get(owner); ok {
			return m, nil
		}
		m := r.factory(owner)
		if err := m.Load(ctx); err != nil {
			return nil, fmt.Errorf("load ledger for %s: %w", owner, err)
		}
		r.managers.Set(owner, m)
		r.logger.InfoContext(ctx, "Ledger session opened", log.FieldOwner, owner)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ledger.Manager), nil
}

// Lookup returns the cached Manager without loading.
func (r *Registry) Lookup(owner string) (*ledger.Manager, bool) {
	return r.managers.Get(owner)
}

func (r *Registry) Evict(owner string) {
	r.managers.Delete(owner)
}

func (r *Registry) Size() int { return r.managers.Size() }

// Cleaner exposes the underlying cache for periodic sweeping.
func (r *Registry) Cleaner() cache.Cleaner { return r.managers }

// HandleLedgerEvent returns a consumer that drops the cached Manager of any
// owner whose data another process changed. Events stamped with self are
// this process's own and are skipped, as are reconcile requests, which
// announce no change.
func (r *Registry) HandleLedgerEvent(self string) func(context.Context, ledger.Event) error {
	return func(ctx context.Context, e ledger.Event) error {
		if e.Source == self || e.Type == ledger.EventReconcileRequested {
			return nil
		}
		if _, ok := r.managers.Get(e.Owner); !ok {
			return nil
		}
		r.Evict(e.Owner)
		r.logger.InfoContext(ctx, "Ledger session invalidated",
			log.FieldOwner, e.Owner,
			"event", e.Type,
			"source", e.Source)
		return nil
	}
}

// HandleAuthEvent drops the cached Manager when its owner signs out.
func (r *Registry) HandleAuthEvent(e auth.Event) {
	if e.Kind == auth.SignedOut {
		r.Evict(e.UserID)
	}
}
