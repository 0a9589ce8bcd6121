package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msilvprog7/receipt/internal/events"
)

// Appender is the part of Ledger the worker needs; narrowed for tests.
type Appender interface {
	AppendEvent(ctx context.Context, ev *events.ReceiptEvent) (string, error)
}

// Worker turns consumed receipt events into ledger rows.
type Worker struct {
	ledger Appender
}

func NewWorker(ledger Appender) *Worker {
	return &Worker{ledger: ledger}
}

// HandleEvent processes a single receipt event from the queue. An error
// requeues the delivery, so it must only be returned for retryable
// failures; unknown actions are dropped with a warning instead.
func (w *Worker) HandleEvent(ctx context.Context, ev *events.ReceiptEvent) error {
	switch ev.Action {
	case events.ActionCreated, events.ActionUpdated, events.ActionDeleted:
	default:
		slog.WarnContext(ctx, "Dropping event with unknown action", "action", ev.Action)
		return nil
	}

	ref, err := w.ledger.AppendEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	slog.InfoContext(ctx, "Exported receipt event",
		"action", ev.Action,
		"owner_id", ev.OwnerID,
		"receipt_id", ev.Receipt.ID,
		"ledger_ref", ref)
	return nil
}
