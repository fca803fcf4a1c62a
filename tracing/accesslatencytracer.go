package tracing

import (
	"sync"

	"github.com/sarchlab/msisim/mem/coherence"
	"github.com/sarchlab/msisim/sim"
)

// AccessLatencyTracer collects the average latency of the accesses that
// complete in the private caches it is attached to.
type AccessLatencyTracer struct {
	lock         sync.Mutex
	count        uint64
	hits         uint64
	totalLatency uint64
	maxLatency   sim.VTimeInCycle
}

// NewAccessLatencyTracer creates a new AccessLatencyTracer.
func NewAccessLatencyTracer() *AccessLatencyTracer {
	return &AccessLatencyTracer{}
}

// Func records a completed access.
func (t *AccessLatencyTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != coherence.HookPosAccessDone {
		return
	}

	a := ctx.Item.(*coherence.Access)

	t.lock.Lock()
	defer t.lock.Unlock()

	for _, done := range append([]*coherence.Access{a}, a.Aliases...) {
		latency := done.CompleteTime - done.IssueTime

		t.count++
		t.totalLatency += uint64(latency)

		if done.Hit {
			t.hits++
		}

		if latency > t.maxLatency {
			t.maxLatency = latency
		}
	}
}

// TotalCount returns the number of completed accesses.
func (t *AccessLatencyTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// HitRate returns the share of accesses that did not leave the private
// cache.
func (t *AccessLatencyTracer) HitRate() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return float64(t.hits) / float64(t.count)
}

// AverageLatency returns the average number of cycles an access takes.
func (t *AccessLatencyTracer) AverageLatency() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return float64(t.totalLatency) / float64(t.count)
}

// MaxLatency returns the latency of the slowest access.
func (t *AccessLatencyTracer) MaxLatency() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxLatency
}
