// trial.go
package qmeasure

import (
	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

/*
Trial is one particle or photon passing through the measurement pipeline.
Its path and per-stage outcomes are assigned exactly once, at creation,
when the source routes it through the apparatus graph; after that the
trial only ages until it reaches its detector or exceeds its maximum
lifetime and is returned to the pool.
*/
type Trial struct {
	ID string

	Lifetime    float64
	MaxLifetime float64

	Path          []Waypoint
	StageOutcomes []bool
	StageMeasured []bool
	Blocked       bool
	Detector      string

	active bool
}

// Active reports whether the trial is currently in flight.
func (t *Trial) Active() bool { return t.active }

func (t *Trial) assign(res RouteResult, maxLifetime float64) {
	t.ID = uuid.NewString()
	t.Lifetime = 0
	t.MaxLifetime = maxLifetime
	t.Path = res.Path
	t.StageOutcomes = res.Branches
	t.StageMeasured = res.Measured
	t.Blocked = res.Blocked
	t.Detector = res.Detector
	t.active = true
}

// deactivate only clears the in-flight flag; the outcome fields stay
// readable until the trial is recycled, when assign overwrites them.
func (t *Trial) deactivate() {
	t.active = false
}

/*
TrialPool recycles Trial instances so continuous emission does not
allocate per trial. The pool starts at a configured capacity and doubles
when exhausted: the maximum number of in-flight trials is a simulation
parameter, not an external constraint, so growth is preferred over
rejecting an emission.
*/
type TrialPool struct {
	active []*Trial
	free   []*Trial

	// Expired counts trials force-removed after exceeding their maximum
	// lifetime without having reached a terminal state — neither a
	// detector nor the blocker. A lost trial, not an error. Detected and
	// blocked trials that age out are recycled silently.
	Expired int64
}

func NewTrialPool(capacity int) *TrialPool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &TrialPool{free: make([]*Trial, 0, capacity)}
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, &Trial{})
	}
	return p
}

// Acquire takes a trial from the pool, growing it if necessary.
func (p *TrialPool) Acquire() *Trial {
	if len(p.free) == 0 {
		p.grow()
	}
	t := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.active = append(p.active, t)
	return t
}

func (p *TrialPool) grow() {
	added := len(p.active)
	if added == 0 {
		added = 1
	}
	for i := 0; i < added; i++ {
		p.free = append(p.free, &Trial{})
	}
	errnie.Info("TrialPool grown - capacity %v", len(p.active)+len(p.free))
}

// Release returns a trial to the pool. Releasing an inactive trial is a
// no-op.
func (p *TrialPool) Release(t *Trial) {
	for i, a := range p.active {
		if a == t {
			p.active = append(p.active[:i], p.active[i+1:]...)
			t.deactivate()
			p.free = append(p.free, t)
			return
		}
	}
}

// ActiveTrials returns the in-flight trials in acquisition order.
func (p *TrialPool) ActiveTrials() []*Trial {
	return p.active
}

// Capacity returns the total number of pooled trials, in flight or free.
func (p *TrialPool) Capacity() int {
	return len(p.active) + len(p.free)
}

// Step ages every in-flight trial and force-expires those past their
// maximum lifetime.
func (p *TrialPool) Step(dt float64) {
	for i := 0; i < len(p.active); {
		t := p.active[i]
		t.Lifetime += dt
		if t.MaxLifetime > 0 && t.Lifetime > t.MaxLifetime {
			if t.Detector == "" && !t.Blocked {
				p.Expired++
			}
			p.Release(t)
			continue // Release shifted the slice; same index is the next trial.
		}
		i++
	}
}
