package qmeasure

/*
Stepper is the contract between the host animation loop and every active
component in a scene. The host calls Step once per frame with the elapsed
simulation time in seconds; all state mutation happens synchronously inside
that call. There are no real threads and no locking anywhere in this
package.
*/
type Stepper interface {
	Step(dt float64)
}

// TimerHandle identifies a scheduled callback so it can be cancelled before
// it fires. The zero handle is never issued.
type TimerHandle uint64

type scheduledCallback struct {
	handle TimerHandle
	due    float64
	fn     func()
}

/*
SimClock tracks simulation time and runs cooperative timers against it.
Timers are explicit entries with a cancellation handle rather than captured
closures on a wall-clock scheduler, so a system that is re-prepared or reset
can reliably cancel its pending callback before the callback mutates state
that has since moved on.
*/
type SimClock struct {
	now        float64
	nextHandle TimerHandle
	pending    []scheduledCallback
}

func NewSimClock() *SimClock {
	return &SimClock{}
}

// Now returns the current simulation time in seconds.
func (c *SimClock) Now() float64 {
	return c.now
}

// Schedule registers fn to run once delay seconds of simulation time have
// elapsed. A non-positive delay fires on the next Step.
func (c *SimClock) Schedule(delay float64, fn func()) TimerHandle {
	c.nextHandle++
	c.pending = append(c.pending, scheduledCallback{
		handle: c.nextHandle,
		due:    c.now + delay,
		fn:     fn,
	})
	return c.nextHandle
}

// Cancel removes a pending callback. It reports whether the handle was
// still pending; cancelling an already-fired or unknown handle is a no-op.
func (c *SimClock) Cancel(handle TimerHandle) bool {
	for i, cb := range c.pending {
		if cb.handle == handle {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Step advances simulation time and fires every callback that has come due,
// in due-time order (schedule order for equal due times). Callbacks may
// schedule or cancel further timers; a callback chain that keeps coming due
// within the same step is drained before Step returns.
func (c *SimClock) Step(dt float64) {
	c.now += dt

	for {
		idx := -1
		for i, cb := range c.pending {
			if cb.due > c.now {
				continue
			}
			if idx == -1 || less(cb, c.pending[idx]) {
				idx = i
			}
		}
		if idx == -1 {
			return
		}
		cb := c.pending[idx]
		c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
		cb.fn()
	}
}

// PendingCount reports how many callbacks have not yet fired.
func (c *SimClock) PendingCount() int {
	return len(c.pending)
}

func less(a, b scheduledCallback) bool {
	if a.due != b.due {
		return a.due < b.due
	}
	return a.handle < b.handle
}
