package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// backoff tracks the delay between polls. Idle polls wait the base interval;
// consecutive failures double it up to maxBackoff.
type backoff struct {
	base    time.Duration
	current time.Duration
}

func newBackoff(base time.Duration) *backoff {
	return &backoff{base: base, current: base}
}

func (b *backoff) idle() time.Duration {
	b.current = b.base
	return jittered(b.base)
}

func (b *backoff) fail() time.Duration {
	delay := b.current
	b.current = min(b.current*2, maxBackoff)
	return jittered(delay)
}

func (b *backoff) reset() {
	b.current = b.base
}

// jittered spreads replicas so they do not poll in lockstep.
func jittered(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
