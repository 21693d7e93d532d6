package usecases

import (
	"context"
	"time"
)

// systemClock is the default Clock backed by real time.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock returns the real-time clock.
func SystemClock() Clock {
	return systemClock{}
}
