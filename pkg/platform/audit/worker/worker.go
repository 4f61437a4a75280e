package worker

import (
	"context"
	"log/slog"

	audit "signup/pkg/platform/audit"
)

// Worker consumes audit events from a channel and appends them to a store.
// A failing append is logged and the worker moves on; audit delivery never
// blocks a registration.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run processes events until the inbox is closed or ctx is done. Events still
// buffered when the inbox closes are drained first.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"error", err,
					"action", event.Action,
					"request_id", event.RequestID,
				)
			}
		}
	}
}
