// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"financeflow/internal/core"
	"financeflow/internal/store"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	profiles map[string]core.Profile
	cards    []core.Card
	txs      []core.Transaction
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		profiles: make(map[string]core.Profile),
	}
}

// WithClock overrides the timestamp source, mostly for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetProfile(_ context.Context, owner string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[owner]
	if !ok {
		return core.Profile{}, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Owner] = p.Clone()
	return p.Clone(), nil
}

func (s *Store) InsertCard(_ context.Context, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()
	s.cards = append(s.cards, c)
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cards {
		if existing.ID == c.ID && existing.Owner == c.Owner {
			c.CreatedAt = existing.CreatedAt
			s.cards[i] = c
			return c, nil
		}
	}
	return core.Card{}, store.ErrNotFound
}

func (s *Store) UpdateCardDetails(_ context.Context, c core.Card, shift core.Money) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cards {
		if existing.ID == c.ID && existing.Owner == c.Owner {
			existing.Name = c.Name
			existing.Kind = c.Kind
			existing.LastFour = c.LastFour
			existing.Color = c.Color
			existing.Balance = existing.Balance.Add(shift)
			existing.OpeningBalance = existing.OpeningBalance.Add(shift)
			s.cards[i] = existing
			return existing, nil
		}
	}
	return core.Card{}, store.ErrNotFound
}

func (s *Store) AdjustCardBalance(_ context.Context, owner, id string, delta core.Money) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cards {
		if existing.ID == id && existing.Owner == owner {
			existing.Balance = existing.Balance.Add(delta)
			s.cards[i] = existing
			return existing, nil
		}
	}
	return core.Card{}, store.ErrNotFound
}

func (s *Store) DeleteCard(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cards {
		if c.ID == id && c.Owner == owner {
			s.cards = append(s.cards[:i:i], s.cards[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListCards(_ context.Context, owner string) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Card{}
	for _, c := range s.cards {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteAllCards(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cards[:0]
	for _, c := range s.cards {
		if c.Owner != owner {
			kept = append(kept, c)
		}
	}
	s.cards = kept
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.txs {
		if existing.ID == t.ID && existing.Owner == t.Owner {
			t.CreatedAt = existing.CreatedAt
			s.txs[i] = t
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id && t.Owner == owner {
			s.txs = append(s.txs[:i:i], s.txs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := []core.Transaction{}
	for _, t := range s.txs {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	store.SortTransactions(out)
	return out, nil
}

func (s *Store) DetachCard(_ context.Context, owner, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.Owner == owner && t.CardID == cardID {
			s.txs[i].CardID = ""
		}
	}
	return nil
}

func (s *Store) DeleteAllTransactions(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txs[:0]
	for _, t := range s.txs {
		if t.Owner != owner {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	return nil
}

var _ store.OwnerLister = (*Store)(nil)

func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var owners []string
	for _, c := range s.cards {
		if !seen[c.Owner] {
			seen[c.Owner] = true
			owners = append(owners, c.Owner)
		}
	}
	return owners, nil
}
