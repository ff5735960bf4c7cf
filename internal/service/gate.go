package service

import (
	"context"

	"github.com/sufal6785/agentbox/internal/metrics"
)

// gate bounds how many executions run concurrently. The execution core
// itself deliberately has no ceiling — each call is independent — so the
// serving layer holds the ceiling here, sized to the host's container
// capacity.
//
// Policy: a request that arrives while all slots are busy waits until a
// slot frees or its own context is cancelled. Waiting (rather than an
// immediate reject) keeps short bursts above capacity invisible to clients;
// the HTTP server's timeouts and the request context bound the wait.
type gate struct {
	slots chan struct{}
}

// newGate creates a gate with n slots. n <= 0 means unbounded.
func newGate(n int) *gate {
	if n <= 0 {
		return &gate{}
	}
	return &gate{slots: make(chan struct{}, n)}
}

// acquire blocks until a slot is free or ctx is done.
func (g *gate) acquire(ctx context.Context) error {
	if g.slots == nil {
		return nil
	}

	select {
	case g.slots <- struct{}{}:
		return nil
	default:
	}

	// All slots busy — wait.
	metrics.SlotWaiters.Inc()
	defer metrics.SlotWaiters.Dec()

	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees a slot acquired earlier.
func (g *gate) release() {
	if g.slots == nil {
		return
	}
	<-g.slots
}
