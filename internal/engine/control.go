package engine

import (
	"fmt"
	"sync"
	"time"
)

// Stop reasons recorded as the job's error text.
const (
	reasonCancelled = "simulation cancelled by user"
)

// jobControl tracks the one-shot stop signal and deadline for one job.
// startedAt stays zero while the job is queued; the deadline only arms once
// the runner transitions to running.
type jobControl struct {
	timeout   time.Duration
	startedAt time.Time
	stopped   bool
	timedOut  bool
	reason    string
}

// controller is the single stop authority runners poll. Explicit cancellation
// and deadline expiry merge into the same signal: the first time a
// deadline-based stop is observed, the signal is set and the timeout reason is
// recorded, so downstream handling is identical to an explicit cancel apart
// from the stored error text.
type controller struct {
	mu   sync.Mutex
	jobs map[string]*jobControl
	now  func() time.Time
}

func newController() *controller {
	return &controller{
		jobs: make(map[string]*jobControl),
		now:  time.Now,
	}
}

// register creates the control entry for a job at submission time. The job is
// cancellable immediately, but its deadline does not arm until markStarted.
func (c *controller) register(id string, timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[id] = &jobControl{timeout: timeout}
}

// markStarted arms the deadline: startedAt + timeout.
func (c *controller) markStarted(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j, ok := c.jobs[id]; ok {
		j.startedAt = c.now()
	}
}

// requestCancel sets the stop signal if not already set and reports whether
// this call caused the transition. Subsequent calls return false.
func (c *controller) requestCancel(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok || j.stopped {
		return false
	}
	j.stopped = true
	j.reason = reasonCancelled
	return true
}

// shouldStop reports whether the job's stop signal is set or its deadline has
// passed. The first deadline-based observation sets the signal and records the
// timeout reason.
func (c *controller) shouldStop(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return false
	}
	if j.stopped {
		return true
	}
	if !j.startedAt.IsZero() && c.now().Sub(j.startedAt) > j.timeout {
		j.stopped = true
		j.timedOut = true
		j.reason = fmt.Sprintf("simulation timed out after %s", j.timeout)
		return true
	}
	return false
}

// stopReason returns the recorded reason and whether the stop came from the
// deadline rather than an explicit cancel.
func (c *controller) stopReason(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return "", false
	}
	return j.reason, j.timedOut
}

// release drops the control entry once the job is terminal. Forgiving on
// unknown ids.
func (c *controller) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, id)
}
