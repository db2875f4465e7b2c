package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// RebuildFunc rebuilds the document table after a settled batch of events.
type RebuildFunc func(ctx context.Context, batch []FileEvent) error

// Loop calls rebuild once per batch until events is closed or ctx is
// cancelled. A failed rebuild is logged and the loop keeps going: the
// previous table stays in place until the next batch.
func Loop(ctx context.Context, events <-chan []FileEvent, rebuild RebuildFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			if len(batch) == 0 {
				continue
			}

			slog.Info("rebuild_triggered",
				slog.Int("events", len(batch)),
				slog.String("first", batch[0].Path))

			err := rebuild(ctx, batch)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("rebuild_cancelled", slog.String("error", err.Error()))
			case amerrors.HasCode(err, amerrors.ErrCodeIndexLocked):
				slog.Warn("rebuild_skipped_locked", slog.String("error", err.Error()))
			default:
				slog.Error("rebuild_failed", amerrors.LogAttrs(err)...)
			}
		}
	}
}

// startError carries a failed Start through context cancellation.
type startError struct{ err error }

func (e *startError) Error() string { return e.err.Error() }

// Watch starts w on path and runs Loop over its events. If Start fails
// while ctx is still live, the loop is stopped and the failure returned.
func Watch(ctx context.Context, w Watcher, path string, rebuild RebuildFunc) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	started := make(chan error, 1)
	go func() {
		err := w.Start(ctx, path)
		if err != nil && ctx.Err() == nil {
			cancel(&startError{err: err})
		}
		started <- err
	}()

	err := Loop(ctx, w.Events(), rebuild)

	var se *startError
	if errors.As(context.Cause(ctx), &se) {
		return fmt.Errorf("watcher stopped: %w", se.err)
	}
	// Loop also ends when the watcher closes its channel; surface why.
	if err == nil {
		select {
		case err = <-started:
		default:
		}
	}
	return err
}
