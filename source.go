package qmeasure

import (
	"fmt"
	"math"
)

/*
TrialSource emits trials into an ExperimentGraph, either one at a time on
user action or continuously at a configured rate per simulated second.

Continuous mode accumulates rate*dt across ticks and emits the integer
part each Step, carrying the remainder forward, so a rate well below one
trial per frame still produces trials at the correct long-run average no
matter how the host chunks its frames.
*/
type TrialSource struct {
	cfg   SourceConfig
	graph *ExperimentGraph
	pool  *TrialPool
	rng   RandomSource

	rate        float64
	accumulator float64

	// Emitted counts every trial produced, including blocked ones.
	Emitted int64

	detectors map[string]*RateCounter

	// Detected fires after each emitted trial has been routed and
	// counted, so displays read settled counters.
	Detected *Notifier
}

func NewTrialSource(cfg SourceConfig, graph *ExperimentGraph, rng RandomSource) (*TrialSource, error) {
	if graph == nil {
		return nil, fmt.Errorf("nil experiment graph")
	}
	if cfg.Rate < 0 {
		return nil, fmt.Errorf("rate %v must be non-negative", cfg.Rate)
	}
	if rng == nil {
		rng = NewSource()
	}
	return &TrialSource{
		cfg:       cfg,
		graph:     graph,
		pool:      NewTrialPool(cfg.MaxTrials),
		rng:       rng,
		rate:      cfg.Rate,
		detectors: make(map[string]*RateCounter),
		Detected:  NewNotifier(),
	}, nil
}

// Pool exposes the backing trial pool for lifetime stepping and display.
func (ts *TrialSource) Pool() *TrialPool { return ts.pool }

// Rate returns the continuous emission rate in trials per second.
func (ts *TrialSource) Rate() float64 { return ts.rate }

// SetRate changes the continuous emission rate.
func (ts *TrialSource) SetRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("rate %v must be non-negative", rate)
	}
	ts.rate = rate
	return nil
}

// FireOne emits and routes a single trial regardless of mode.
func (ts *TrialSource) FireOne() *Trial {
	return ts.emit()
}

// Step ages in-flight trials, then performs continuous emission for this
// tick. Single-shot sources only age their trials.
func (ts *TrialSource) Step(dt float64) {
	ts.pool.Step(dt)
	for _, rc := range ts.detectors {
		rc.Step(dt)
	}

	if ts.cfg.Mode != EmitContinuous || ts.rate == 0 {
		return
	}

	ts.accumulator += ts.rate * dt
	n := int(math.Floor(ts.accumulator))
	ts.accumulator -= float64(n)
	for i := 0; i < n; i++ {
		ts.emit()
	}
}

func (ts *TrialSource) emit() *Trial {
	t := ts.pool.Acquire()
	res := ts.graph.Route(ts.rng)
	t.assign(res, ts.cfg.MaxLifetime)
	ts.Emitted++

	if res.Blocked {
		// Absorbed at the blocker: no detector fires, but the trial
		// stays in flight until it ages out, so the caller's pointer is
		// not recycled underneath it by the next emission.
	} else if res.Detector != "" {
		ts.detectorCounter(res.Detector).CountEvent(1)
	}

	ts.Detected.Notify()
	return t
}

// DetectorRate returns the smoothed events-per-second reading for a
// terminal detector, 0 if the detector has seen nothing yet.
func (ts *TrialSource) DetectorRate(detector string) float64 {
	rc, ok := ts.detectors[detector]
	if !ok {
		return 0
	}
	return rc.Rate()
}

// DetectorCounter exposes a detector's rate counter, creating it on first
// use so displays can subscribe before the first trial arrives.
func (ts *TrialSource) DetectorCounter(detector string) *RateCounter {
	return ts.detectorCounter(detector)
}

func (ts *TrialSource) detectorCounter(detector string) *RateCounter {
	rc, ok := ts.detectors[detector]
	if !ok {
		rc = NewRateCounter()
		ts.detectors[detector] = rc
	}
	return rc
}

// Reset clears emission accounting, counters, and in-flight trials.
func (ts *TrialSource) Reset() {
	for _, t := range append([]*Trial(nil), ts.pool.ActiveTrials()...) {
		ts.pool.Release(t)
	}
	ts.accumulator = 0
	ts.Emitted = 0
	ts.pool.Expired = 0
	ts.graph.ResetCounts()
	ts.detectors = make(map[string]*RateCounter)
	ts.Detected.Notify()
}
