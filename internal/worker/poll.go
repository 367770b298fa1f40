package worker

import (
	"context"
	"time"
)

const DefaultPollInterval = 100 * time.Millisecond

// Poll drains q every interval and passes each message to handle in posting order.
// It returns nil right after handling a terminal message, leaving later messages queued,
// or ctx.Err() when ctx ends first.
func Poll(ctx context.Context, q *Queue, interval time.Duration, handle func(Message)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msgs := q.Drain()
			for i, m := range msgs {
				handle(m)
				if m.Terminal() {
					q.pushFront(msgs[i+1:])
					return nil
				}
			}
		}
	}
}
