// Package ledger keeps a per-owner snapshot of cards, transactions and
// settings consistent with the store.
//
// Every mutation writes to the store first and only then publishes a new
// snapshot. The snapshot is swapped as a whole, so readers never observe a
// half-applied operation. Mutations on one Manager are serialized.
package ledger

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/store"
	"financeflow/internal/store/memory"
)

type Manager struct {
	owner     string
	store     store.Store
	policy    core.DefaultCardPolicy
	publisher Publisher
	recorder  Recorder
	logger    *log.Logger
	source    string
	ephemeral bool

	mu      sync.Mutex // serializes mutations
	snap    atomic.Pointer[core.Snapshot]
	driftMu sync.Mutex
	drifted map[string]struct{}
}

type Option func(*Manager)

// WithPolicy replaces the default-card policy. FirstCard is the default.
func WithPolicy(p core.DefaultCardPolicy) Option {
	return func(m *Manager) {
		if p != nil {
			m.policy = p
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithSource stamps every published event with the given process name.
func WithSource(source string) Option {
	return func(m *Manager) { m.source = source }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// New returns a Manager for owner holding the empty default snapshot. Call
// Load to hydrate it from st.
func New(owner string, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		owner:     owner,
		store:     st,
		policy:    core.FirstCard,
		publisher: nopPublisher{},
		recorder:  nopRecorder{},
		logger:    log.Discard(),
		drifted:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	empty := core.EmptySnapshot(owner)
	m.snap.Store(&empty)
	return m
}

// NewEphemeral returns a Manager for a session without identity. It starts
// from the default empty dataset and keeps everything in process memory.
func NewEphemeral(opts ...Option) *Manager {
	m := New("", memory.New(), opts...)
	m.ephemeral = true
	return m
}

func (m *Manager) Owner() string { return m.owner }

// Ephemeral reports whether the Manager persists nothing.
func (m *Manager) Ephemeral() bool { return m.ephemeral }

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() core.Snapshot {
	return m.snap.Load().Clone()
}

// Drifted lists cards whose stored balance may disagree with their
// transactions, sorted by id.
func (m *Manager) Drifted() []string {
	m.driftMu.Lock()
	defer m.driftMu.Unlock()
	out := make([]string, 0, len(m.drifted))
	for id := range m.drifted {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) markDrift(cardID string) {
	m.driftMu.Lock()
	m.drifted[cardID] = struct{}{}
	m.driftMu.Unlock()
}

func (m *Manager) clearDrift(cardID string) {
	m.driftMu.Lock()
	delete(m.drifted, cardID)
	m.driftMu.Unlock()
}

// current returns the live snapshot. Callers must not mutate it.
func (m *Manager) current() *core.Snapshot {
	return m.snap.Load()
}

func (m *Manager) commit(next core.Snapshot) {
	m.snap.Store(&next)
}

func (m *Manager) publish(ctx context.Context, e Event) {
	e.Owner = m.owner
	e.Source = m.source
	e.At = time.Now().UTC()
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.WarnContext(ctx, "Failed to publish ledger event",
			"event", e.Type, log.FieldError, err)
	}
}

// observe records duration and outcome of op; use with defer.
func (m *Manager) observe(op string, start time.Time, errp *error) {
	m.recorder.ObserveOperation(op, time.Since(start), *errp)
}
