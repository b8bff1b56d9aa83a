package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore persists signed-out session ids. When the UserStore handed
// to NewService also implements it, sign-outs survive a restart.
type RevocationStore interface {
	RevokeSession(ctx context.Context, id string, expiresAt time.Time) error
	// ActiveRevocations deletes revocations that expired before now and
	// returns the remaining ones keyed by session id.
	ActiveRevocations(ctx context.Context, now time.Time) (map[string]time.Time, error)
}

// revocations holds signed-out session ids until their token expires. It
// has no capacity limit: an entry only leaves through CleanExpired.
type revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
	now func() time.Time
}

func newRevocations(now func() time.Time) *revocations {
	return &revocations{ids: make(map[string]time.Time), now: now}
}

func (r *revocations) add(id string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.ids[id]; ok && cur.After(expiresAt) {
		return
	}
	r.ids[id] = expiresAt
}

func (r *revocations) contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

func (r *revocations) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// CleanExpired drops revocations whose token can no longer authenticate.
func (r *revocations) CleanExpired() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, exp := range r.ids {
		if !exp.After(now) {
			delete(r.ids, id)
			removed++
		}
	}
	return removed
}
