package workers

import (
	"context"
	"time"

	"video-compressor/internal/metrics"
)

// Pool is a fixed-size set of encode slots.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with size slots. A size below 1 is treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	metrics.EncodeSlotsTotal.Set(float64(size))
	return &Pool{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	start := time.Now()
	select {
	case p.slots <- struct{}{}:
		metrics.EncodeSlotWaitDuration.Observe(time.Since(start).Seconds())
		metrics.EncodeSlotsInUse.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without waiting.
func (p *Pool) TryAcquire() bool {
	select {
	case p.slots <- struct{}{}:
		metrics.EncodeSlotsInUse.Inc()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (p *Pool) Release() {
	select {
	case <-p.slots:
		metrics.EncodeSlotsInUse.Dec()
	default:
		panic("workers: Release without Acquire")
	}
}

// InUse reports how many slots are held.
func (p *Pool) InUse() int {
	return len(p.slots)
}

// Size reports the total number of slots.
func (p *Pool) Size() int {
	return cap(p.slots)
}
