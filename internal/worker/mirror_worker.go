package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Consumer delivers transaction events until ctx is cancelled.
type Consumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler amqp.EventHandler) error
}

// MirrorWorker applies transaction events to a TransactionMirror.
type MirrorWorker struct {
	store  ports.TransactionStore
	mirror ports.TransactionMirror

	upserts atomic.Int64
	deletes atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func NewMirrorWorker(store ports.TransactionStore, mirror ports.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleEvent mirrors one event. Created and updated events re-read the
// transaction so the mirror always gets the stored state; a transaction
// deleted in the meantime is skipped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev core.TransactionEvent) error {
	err := w.handle(ctx, ev)
	if err != nil {
		w.failed.Add(1)
		slog.ErrorContext(ctx, "Failed to mirror transaction event",
			"event_kind", ev.Kind,
			"transaction_id", ev.ID,
			"owner_id", ev.OwnerID,
			"error", err)
	}
	return err
}

func (w *MirrorWorker) handle(ctx context.Context, ev core.TransactionEvent) error {
	switch ev.Kind {
	case core.EventCreated, core.EventUpdated:
		tx, err := w.store.GetTransaction(ctx, ev.ID, ev.OwnerID)
		if errors.Is(err, core.ErrNotFound) {
			w.skipped.Add(1)
			slog.InfoContext(ctx, "Transaction gone before mirroring, skipping",
				"event_kind", ev.Kind, "transaction_id", ev.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("upsert mirror row: %w", err)
		}
		w.upserts.Add(1)

	case core.EventDeleted:
		if err := w.mirror.DeleteTransaction(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete mirror row: %w", err)
		}
		w.deletes.Add(1)

	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	slog.InfoContext(ctx, "Mirrored transaction event", "event_kind", ev.Kind, "transaction_id", ev.ID)
	return nil
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Upserts, Deletes, Skipped, Failed int64
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{
		Upserts: w.upserts.Load(),
		Deletes: w.deletes.Load(),
		Skipped: w.skipped.Load(),
		Failed:  w.failed.Load(),
	}
}

// Run consumes events and logs the counters every healthInterval until ctx
// is cancelled. Cancellation is a clean stop and returns nil.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, healthInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeTransactionEvents(ctx, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				s := w.Stats()
				slog.InfoContext(ctx, "Mirror worker health",
					"upserts", s.Upserts,
					"deletes", s.Deletes,
					"skipped", s.Skipped,
					"failed", s.Failed)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
