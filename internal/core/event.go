package core

import "time"

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// EventKind names the mutation a TransactionEvent reports.
type EventKind string

// TransactionEvent is emitted after a transaction mutation is persisted.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, tx Transaction) TransactionEvent {
	return TransactionEvent{
		Kind:      kind,
		ID:        tx.ID,
		OwnerID:   tx.OwnerID,
		Timestamp: time.Now().UTC(),
	}
}
