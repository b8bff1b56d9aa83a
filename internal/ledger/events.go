package ledger

import (
	"context"
	"time"
)

type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventCardCreated        EventType = "card.created"
	EventCardUpdated        EventType = "card.updated"
	EventCardDeleted        EventType = "card.deleted"
	EventCardReconciled     EventType = "card.reconciled"
	EventSettingsUpdated    EventType = "settings.updated"
	EventDataReset          EventType = "data.reset"
	EventReconcileRequested EventType = "reconcile.requested"
)

// MutationEvents lists every event that reports a change to stored ledger
// data. Processes caching snapshots subscribe to these.
func MutationEvents() []EventType {
	return []EventType{
		EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted,
		EventCardCreated, EventCardUpdated, EventCardDeleted, EventCardReconciled,
		EventSettingsUpdated, EventDataReset,
	}
}

// Event describes a committed ledger mutation. Reconcile requests carry the
// card that needs its balance recomputed. Source names the process that
// made the change.
type Event struct {
	Type          EventType `json:"type"`
	Owner         string    `json:"owner"`
	Source        string    `json:"source,omitempty"`
	CardID        string    `json:"card_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Op            string    `json:"op,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher forwards ledger events to other processes. Delivery is best
// effort; a failed publish never fails the mutation that produced it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	ObserveOperation(op string, elapsed time.Duration, err error)
	Inconsistency(op string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, time.Duration, error) {}
func (nopRecorder) Inconsistency(string)                          {}
