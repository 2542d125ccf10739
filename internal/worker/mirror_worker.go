package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// MirrorWorker keeps a spreadsheet mirror in step with the ledger.
type MirrorWorker struct {
	source store.Reader
	mirror sheets.Mirror
}

func NewMirrorWorker(source store.Reader, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
	}
}

// Handle applies one ledger event to the mirror. An error makes the consumer
// requeue the message.
func (w *MirrorWorker) Handle(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Type {
	case amqp.EventTransactionAppended:
		t, err := ev.ToTransaction()
		if err != nil {
			return fmt.Errorf("decode appended event: %w", err)
		}
		if err := w.mirror.AppendRow(ctx, t); err != nil {
			return fmt.Errorf("mirror append: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored transaction", mirrorFields(applog.OpMirror).
			WithTransaction(t.Date, t.Amount.String(), t.Category).ToSlice()...)

	case amqp.EventTransactionsCleared:
		if err := w.mirror.Clear(ctx); err != nil {
			return fmt.Errorf("mirror clear: %w", err)
		}
		slog.InfoContext(ctx, "Mirror cleared", mirrorFields(applog.OpMirror).ToSlice()...)

	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event",
			append(mirrorFields(applog.OpMirror).ToSlice(), "type", ev.Type)...)
	}
	return nil
}

// Resync rewrites the mirror from the store. This is the backup path for
// events lost while the worker or the broker was down.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	items, err := w.source.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, items); err != nil {
		return fmt.Errorf("rewrite mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resync completed", mirrorFields(applog.OpResync).WithCount(len(items)).ToSlice()...)
	return nil
}

func mirrorFields(op string) applog.LogFields {
	return applog.NewFields().WithComponent(applog.ComponentWorker).WithOperation(op)
}

// RunPeriodicResync calls Resync immediately and then every interval until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (w *MirrorWorker) RunPeriodicResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Resync(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Mirror resync failed", mirrorFields(applog.OpResync).WithError(err).ToSlice()...)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
