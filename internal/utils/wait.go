// Package utils holds small helpers shared by the agent backends.
package utils

import (
	"context"
	"time"
)

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
