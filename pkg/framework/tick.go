package framework

import (
	"context"
	"time"
)

// Ticker is the per-period work of a TickLoop.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// TickFunc is the func form of Ticker.
type TickFunc func(ctx context.Context, now time.Time) error

// Tick implements Ticker.
func (f TickFunc) Tick(ctx context.Context, now time.Time) error {
	return f(ctx, now)
}

// TickLoop runs a Ticker at a fixed period. Each deadline is derived
// from the start of the previous tick, so a slow tick shortens the
// following sleep instead of shifting the whole schedule.
type TickLoop struct {
	Interval time.Duration
	Ticker   Ticker
}

// NewTickLoop creates a TickLoop.
func NewTickLoop(interval time.Duration, ticker Ticker) *TickLoop {
	return &TickLoop{Interval: interval, Ticker: ticker}
}

// Run implements Runnable. It returns the first tick error, or
// ctx.Err() on cancellation.
func (l *TickLoop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	next := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			if err := l.Ticker.Tick(ctx, now); err != nil {
				return err
			}
			next = next.Add(interval)
			d := time.Until(next)
			if d < 0 {
				// Fell behind more than one period, restart the schedule.
				next = time.Now()
				d = 0
			}
			timer.Reset(d)
		}
	}
}
