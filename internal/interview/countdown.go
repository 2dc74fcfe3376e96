package interview

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrCountdownConsumed is returned by Run on a countdown that already ran.
var ErrCountdownConsumed = errors.New("countdown already run")

// Countdown is a single-use sequence start, start-1, ..., 0 with one tick
// between values. Completion is reported only by Run returning nil, so a
// cancelled countdown can never signal into a later one.
type Countdown struct {
	start int
	tick  time.Duration
	used  atomic.Bool
}

// NewCountdown returns a countdown from start to 0. A non-positive tick
// means one second.
func NewCountdown(start int, tick time.Duration) *Countdown {
	if start < 0 {
		start = 0
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{start: start, tick: tick}
}

// Run blocks until the countdown reaches 0 or ctx is done. onTick, when
// non-nil, is called with each value on the caller's goroutine before the
// wait that follows it.
func (c *Countdown) Run(ctx context.Context, onTick func(remaining int)) error {
	if !c.used.CompareAndSwap(false, true) {
		return ErrCountdownConsumed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for n := c.start; ; n-- {
		if onTick != nil {
			onTick(n)
		}
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Values returns the countdown as a lazily produced channel. The channel is
// closed when the countdown completes or ctx is done; Err on the returned
// func reports which.
func (c *Countdown) Values(ctx context.Context) (<-chan int, func() error) {
	out := make(chan int)
	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer close(out)
		runErr = c.Run(ctx, func(n int) {
			select {
			case out <- n:
			case <-ctx.Done():
			}
		})
	}()
	return out, func() error {
		<-done
		return runErr
	}
}
