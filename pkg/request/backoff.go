package request

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// backoffJitter spreads retry timing so parallel sessions hitting the same
// host do not retry in lockstep.
const backoffJitter = 0.10

// hostBackoff spaces requests per upstream host: each consecutive failure
// doubles the pause up to the configured cap, each success walks it back one
// step. Hosts the client has never failed against pass through untouched.
type hostBackoff struct {
	mu    sync.Mutex
	hosts map[string]*hostState
	base  time.Duration
	max   time.Duration
}

type hostState struct {
	failures    int
	nextAllowed time.Time
}

func newHostBackoff(base, max time.Duration) *hostBackoff {
	return &hostBackoff{
		hosts: make(map[string]*hostState),
		base:  base,
		max:   max,
	}
}

// Wait blocks until the host is allowed a request or ctx ends.
func (b *hostBackoff) Wait(ctx context.Context, host string) error {
	b.mu.Lock()
	var pause time.Duration
	if st, ok := b.hosts[host]; ok {
		pause = time.Until(st.nextAllowed)
	}
	b.mu.Unlock()

	if pause <= 0 {
		return nil
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordFailure pushes the host's next allowed request further out.
func (b *hostBackoff) RecordFailure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.hosts[host]
	if !ok {
		st = &hostState{}
		b.hosts[host] = st
	}
	st.failures++
	st.nextAllowed = time.Now().Add(b.delay(st.failures))
}

// RecordSuccess steps the host back toward unrestricted access.
func (b *hostBackoff) RecordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.hosts[host]
	if !ok {
		return
	}
	if st.failures > 0 {
		st.failures--
	}
	if st.failures == 0 {
		st.nextAllowed = time.Time{}
	}
}

func (b *hostBackoff) delay(failures int) time.Duration {
	d := time.Duration(float64(b.base) * math.Pow(2, float64(failures-1)))
	if d > b.max {
		d = b.max
	}
	return d + time.Duration(rand.Float64()*backoffJitter*float64(d))
}
