package checkin

import (
	"context"
	"log"
	"time"
)

const DefaultSearchFloor = 250 * time.Millisecond

// ConstantTimeGate pads an operation out to a fixed floor so that callers
// cannot tell hits, misses and denials apart by latency. The padding depends
// only on the configured floor, never on what the operation returned.
type ConstantTimeGate struct {
	floor time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewConstantTimeGate(floor time.Duration) *ConstantTimeGate {
	if floor <= 0 {
		floor = DefaultSearchFloor
	}
	return &ConstantTimeGate{floor: floor, sleep: sleepContext}
}

func (g *ConstantTimeGate) Floor() time.Duration {
	return g.floor
}

// Run executes fn and returns once at least the floor has elapsed since Run
// was called.
func (g *ConstantTimeGate) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(g.floor)
	err := fn(ctx)

	remaining := time.Until(deadline)
	if remaining <= 0 {
		log.Printf("%s: took %v, over the constant-time floor of %v", name, g.floor-remaining, g.floor)
		return err
	}
	if sleepErr := g.sleep(ctx, remaining); sleepErr != nil {
		return sleepErr
	}
	return err
}

// Gated is Run for operations that produce a value.
func Gated[T any](ctx context.Context, g *ConstantTimeGate, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Run(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
