package chain

import (
	"context"
	"sync"
	"time"
)

// SystemClock is the local wall clock, held so it never reports a value
// lower than one it already returned.
type SystemClock struct {
	mu   sync.Mutex
	last uint64
}

func (c *SystemClock) Now(ctx context.Context) (uint64, error) {
	now := uint64(time.Now().Unix())
	c.mu.Lock()
	defer c.mu.Unlock()
	if now < c.last {
		return c.last, nil
	}
	c.last = now
	return now, nil
}

// FixedClock always reports Seconds. Tests move it by assigning Seconds.
type FixedClock struct {
	Seconds uint64
}

func (c *FixedClock) Now(ctx context.Context) (uint64, error) {
	return c.Seconds, nil
}
