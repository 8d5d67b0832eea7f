package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// TransactionService orchestrates owner-scoped transaction operations
// across the store, the snapshot cache and the event publisher.
type TransactionService struct {
	store     ports.TransactionStore
	publisher ports.EventPublisher
	snapshots *cache.LRUCache[[]core.Transaction]
	now       func() time.Time

	loads singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewTransactionService wires the service. publisher and snapshots may be
// nil to disable events and caching.
func NewTransactionService(store ports.TransactionStore, publisher ports.EventPublisher, snapshots *cache.LRUCache[[]core.Transaction]) *TransactionService {
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		snapshots:   snapshots,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

// List returns the owner's transactions, newest first. The returned slice
// is the caller's to modify.
func (s *TransactionService) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	snap, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), snap...), nil
}

// snapshot returns the cached list, loading it once per owner when several
// requests miss at the same time.
func (s *TransactionService) snapshot(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if s.snapshots != nil {
		if snap, ok := s.snapshots.Get(ownerID); ok {
			return snap, nil
		}
	}

	// Loads are shared per generation so a caller arriving after a mutation
	// never joins a load that started before it.
	gen := s.generation(ownerID)
	key := fmt.Sprintf("%s/%d", ownerID, gen)
	v, err, _ := s.loads.Do(key, func() (any, error) {
		txs, err := s.store.ListTransactions(context.WithoutCancel(ctx), ownerID)
		if err != nil {
			return nil, err
		}
		// A mutation during the load makes this result stale.
		if s.snapshots != nil && s.generation(ownerID) == gen {
			s.snapshots.Set(ownerID, txs)
		}
		return txs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return v.([]core.Transaction), nil
}

func (s *TransactionService) generation(ownerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[ownerID]
}

func (s *TransactionService) invalidate(ownerID string) {
	s.mu.Lock()
	s.generations[ownerID]++
	s.mu.Unlock()
	if s.snapshots != nil {
		s.snapshots.Delete(ownerID)
	}
}

func (s *TransactionService) Get(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, ownerID)
}

// Create stores a new transaction for ownerID. The amount sign follows the
// type and a missing date defaults to now.
func (s *TransactionService) Create(ctx context.Context, ownerID string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{OwnerID: ownerID, Date: s.now().UTC()}
	tx.Apply(f)

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.invalidate(ownerID)
	s.publish(ctx, core.EventCreated, created)

	return created, nil
}

// Update replaces the editable fields of the owner's transaction id. The
// stored date is kept when f carries none.
func (s *TransactionService) Update(ctx context.Context, id, ownerID string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}

	current, err := s.store.GetTransaction(ctx, id, ownerID)
	if err != nil {
		return core.Transaction{}, err
	}
	current.Apply(f)

	updated, err := s.store.UpdateTransaction(ctx, current)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ownerID)
	s.publish(ctx, core.EventUpdated, updated)

	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.store.DeleteTransaction(ctx, id, ownerID); err != nil {
		return err
	}
	s.invalidate(ownerID)
	s.publish(ctx, core.EventDeleted, core.Transaction{ID: id, OwnerID: ownerID})
	return nil
}

// publish never fails the caller: the transaction is already persisted.
func (s *TransactionService) publish(ctx context.Context, kind core.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "kind", kind, "transaction_id", tx.ID)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, core.NewTransactionEvent(kind, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind,
			"transaction_id", tx.ID,
			"owner_id", tx.OwnerID,
			"error", err)
	}
}
