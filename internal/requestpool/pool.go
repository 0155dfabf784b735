// Package requestpool holds pending requests with their deadlines until a
// scheduling decision is made. Ordering is irrelevant to correctness — the
// block partitioner re-sorts by deadline — so this is a plain
// mutex-guarded slice rather than the priority-channel layout
// pkg/scheduler/task_queue.go uses for its (ordering-sensitive) task queue.
package requestpool

import (
	"fmt"
	"sync"

	"github.com/federicogiustii/carbonshift/internal/apierrors"
	"github.com/federicogiustii/carbonshift/internal/domain"
)

// Pool holds admitted requests awaiting a scheduling decision. Safe for
// concurrent admission from multiple producers (HTTP ingress, retries) with
// a single logical consumer (the scheduling cycle that calls Drain).
type Pool struct {
	horizon int

	mu       sync.Mutex
	pending  []domain.Request
	admitted int64
	drained  int64
}

// New creates an empty pool sized for a horizon of horizon slots
// (requests with Deadline outside [0, horizon) are rejected at Admit).
func New(horizon int) *Pool {
	return &Pool{horizon: horizon}
}

// Admit appends req to the pool. Fails with ErrInvalidDeadline if
// req.Deadline is outside [0, horizon); the caller's previous requests are
// unaffected.
func (p *Pool) Admit(req domain.Request) error {
	if req.Deadline < 0 || req.Deadline >= p.horizon {
		return fmt.Errorf("%w: request %q has deadline %d, horizon is [0, %d)", apierrors.ErrInvalidDeadline, req.ID, req.Deadline, p.horizon)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	req.Status = domain.StatusPending
	p.pending = append(p.pending, req)
	p.admitted++
	return nil
}

// Drain atomically removes and returns every pending request. The pool is
// empty afterward.
func (p *Pool) Drain() []domain.Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.pending
	p.pending = nil
	p.drained += int64(len(out))
	return out
}

// Restore re-admits requests that were previously removed by Drain but
// could not be carried through to a committed scheduling decision, so the
// pool ends up exactly as if Drain had never been called. Used on the
// solve-failed path: NoFeasibleAssignment must leave the pool untouched so
// operators can retry with a relaxed error budget or a coarser block size.
func (p *Pool) Restore(requests []domain.Request) {
	if len(requests) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(requests, p.pending...)
	p.drained -= int64(len(requests))
}

// Size returns the number of requests currently pending (observability only).
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stats returns lifetime admitted/drained counters for metrics export.
func (p *Pool) Stats() (admitted, drained int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admitted, p.drained
}
