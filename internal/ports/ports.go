package ports

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters. Every transaction call carries the owner id
// explicitly; implementations must never return or touch another owner's rows.
type (
	TransactionStore interface {
		// ListTransactions returns the owner's transactions, newest date first.
		ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error)
		// CreateTransaction assigns the id and timestamps and returns the stored row.
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// UpdateTransaction returns core.ErrNotFound when tx.ID is not owned by tx.OwnerID.
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id, ownerID string) error
	}

	UserStore interface {
		// CreateUser returns core.ErrEmailTaken when the email is already registered.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
	}

	// Store is what a data backend provides.
	Store interface {
		TransactionStore
		UserStore
	}

	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, ev core.TransactionEvent) error
	}

	// TransactionMirror keeps an external copy of transactions keyed by id.
	TransactionMirror interface {
		UpsertTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}
)
