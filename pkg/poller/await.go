package poller

import (
	"context"
	"errors"
	"time"
)

// ErrPollingTimeout is returned by PollUntil when the wall-clock deadline
// passes before the terminal predicate is satisfied.
var ErrPollingTimeout = errors.New("polling deadline exceeded")

// PollUntil fetches at a fixed interval until terminal(data) is true, the
// context is cancelled, or deadline elapses. Unlike Poller it is a plain
// blocking retry loop, used by synchronous API flows that hold the request
// open while a long-running generation completes.
//
// Fetch errors are retried on the next attempt; only the deadline or context
// cancellation escalates them.
func PollUntil[T any](ctx context.Context, fetch FetchFunc[T], interval, deadline time.Duration, terminal func(T) bool) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		data, err := fetch(ctx)
		if err != nil {
			lastErr = err
		} else {
			lastErr = nil
			if terminal(data) {
				return data, nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if lastErr != nil {
					return zero, errors.Join(ErrPollingTimeout, lastErr)
				}
				return zero, ErrPollingTimeout
			}
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
