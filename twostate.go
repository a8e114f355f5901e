// twostate.go
package qmeasure

import (
	"errors"
	"fmt"

	"github.com/theapemachine/errnie"
)

/*
MeasurementState tracks where a TwoStateSystemSet is in its measurement
lifecycle. Classical sets skip StateReady entirely: their outcomes exist as
soon as preparation finishes, they are merely hidden. Quantum sets rest in
StateReady with outcomes undetermined until something observes them.
*/
type MeasurementState int

const (
	// StatePreparing means a timed prepare is in flight; outcomes are
	// meaningless and may not be measured.
	StatePreparing MeasurementState = iota
	// StateReady means a quantum set is prepared but unobserved; sampling
	// is deferred until Reveal or Measure.
	StateReady
	// StateMeasuredHidden means outcomes are determined but not shown.
	StateMeasuredHidden
	// StateRevealed means outcomes are determined and shown.
	StateRevealed
)

func (s MeasurementState) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StateMeasuredHidden:
		return "measuredHidden"
	case StateRevealed:
		return "revealed"
	default:
		return fmt.Sprintf("measurementState(%d)", int(s))
	}
}

// Transition guards reject calls made from the wrong state. These are
// integration bugs in the caller, not recoverable runtime conditions, so
// they surface as explicit errors rather than being silently ignored.
var (
	ErrInvalidTransition = errors.New("invalid measurement state transition")
	ErrBusyPreparing     = errors.New("system set is still preparing")
)

// Seed sentinels: outcome seeds of exactly 0 or 1 force every entry to the
// first or second valid value. Freshly drawn seeds are kept strictly
// inside (0,1) so the sentinels stay reserved.
const (
	SeedAllFirst  = 0.0
	SeedAllSecond = 1.0
)

/*
TwoStateSystemSet manages up to MaxCount independent two-outcome systems
(coins or spins) that move through the measurement lifecycle together and
resolve to biased-random outcomes derived from a single reproducible seed.

The outcome array is a pure function of (seed, bias, count): persisted or
replayed state only needs to carry the seed, and RegenerateFromSeed
rebuilds the identical batch. Listeners subscribed via Changed are called
synchronously after every mutation, inside the mutating call.
*/
type TwoStateSystemSet struct {
	cfg   SystemSetConfig
	clock *SimClock
	rng   RandomSource

	state MeasurementState
	bias  float64
	count int
	seed  float64
	// sampledBias is the bias the current outcome batch was drawn with.
	// Internal regeneration (count changes) must use it, not the live
	// bias, so determined outcomes are never silently re-biased.
	sampledBias float64
	measured    []string

	prepareTimer  TimerHandle
	timerPending  bool
	pendingReveal bool

	// Changed fires after every state or outcome mutation.
	Changed *Notifier
}

// NewTwoStateSystemSet validates cfg and returns a set resting in its
// kind's initial state with freshly sampled outcomes.
func NewTwoStateSystemSet(cfg SystemSetConfig, clock *SimClock, rng RandomSource) (*TwoStateSystemSet, error) {
	if cfg.MaxCount <= 0 {
		return nil, fmt.Errorf("max count must be positive, got %d", cfg.MaxCount)
	}
	if cfg.InitialCount < 0 || cfg.InitialCount > cfg.MaxCount {
		return nil, fmt.Errorf("initial count %d outside [0,%d]", cfg.InitialCount, cfg.MaxCount)
	}
	if cfg.InitialBias < 0 || cfg.InitialBias > 1 {
		return nil, fmt.Errorf("initial bias %v outside [0,1]", cfg.InitialBias)
	}
	if cfg.ValidValues[0] == "" || cfg.ValidValues[1] == "" || cfg.ValidValues[0] == cfg.ValidValues[1] {
		return nil, fmt.Errorf("valid values must be two distinct labels, got %q and %q",
			cfg.ValidValues[0], cfg.ValidValues[1])
	}
	if clock == nil {
		return nil, errors.New("nil clock")
	}
	if rng == nil {
		rng = NewSource()
	}

	errnie.Info(
		"NewTwoStateSystemSet - kind %v, values %v, maxCount %v",
		cfg.Kind,
		cfg.ValidValues,
		cfg.MaxCount,
	)

	s := &TwoStateSystemSet{
		cfg:      cfg,
		clock:    clock,
		rng:      rng,
		bias:     cfg.InitialBias,
		count:    cfg.InitialCount,
		measured: make([]string, cfg.MaxCount),
		Changed:  NewNotifier(),
	}
	s.prepareNow(false)
	return s, nil
}

// State returns the current lifecycle state.
func (s *TwoStateSystemSet) State() MeasurementState { return s.state }

// Bias returns the probability of the first valid value.
func (s *TwoStateSystemSet) Bias() float64 { return s.bias }

// Count returns the number of active systems.
func (s *TwoStateSystemSet) Count() int { return s.count }

// Seed returns the reproducibility token for the current outcome batch.
func (s *TwoStateSystemSet) Seed() float64 { return s.seed }

// SampledBias returns the bias the current outcome batch was drawn with.
// Saved state persists this alongside the seed: the pair replays the
// batch exactly even if the live bias has moved since sampling.
func (s *TwoStateSystemSet) SampledBias() float64 { return s.sampledBias }

// Outcomes returns a copy of the meaningful outcome entries. The result is
// only valid in StateMeasuredHidden and StateRevealed (and StateReady for
// classical sets never arises).
func (s *TwoStateSystemSet) Outcomes() []string {
	out := make([]string, s.count)
	copy(out, s.measured[:s.count])
	return out
}

// SetBias updates the first-outcome probability for subsequent sampling.
// Already-determined outcomes are not resampled.
func (s *TwoStateSystemSet) SetBias(bias float64) error {
	if bias < 0 || bias > 1 {
		return fmt.Errorf("bias %v outside [0,1]", bias)
	}
	s.bias = bias
	s.Changed.Notify()
	return nil
}

// SetCount changes how many systems are active, up to the configured
// capacity. Entries beyond the previous count are backfilled from the
// stored seed so the whole visible array stays consistent with it.
func (s *TwoStateSystemSet) SetCount(count int) error {
	if count < 0 || count > s.cfg.MaxCount {
		return fmt.Errorf("count %d outside [0,%d]", count, s.cfg.MaxCount)
	}
	s.Changed.BeginCoalesce()
	defer s.Changed.EndCoalesce()

	s.count = count
	if s.state == StateMeasuredHidden || s.state == StateRevealed {
		s.regenerateFromSeed()
	}
	s.Changed.Notify()
	return nil
}

/*
Prepare starts a timed re-preparation: the set enters StatePreparing for
the configured duration (the coin is "in the air"), then transitions as
PrepareImmediate does. With revealWhenDone, or the AutoReveal config, the
outcomes are revealed as soon as preparation completes.

Any previously pending prepare timer is cancelled first, so a stale
callback can never fire into a set that has since been re-prepared.
*/
func (s *TwoStateSystemSet) Prepare(revealWhenDone bool) {
	s.cancelPrepareTimer()

	s.state = StatePreparing
	s.pendingReveal = revealWhenDone || s.cfg.AutoReveal
	s.prepareTimer = s.clock.Schedule(s.cfg.PrepareDuration, s.onPrepareTimer)
	s.timerPending = true
	s.Changed.Notify()
}

func (s *TwoStateSystemSet) onPrepareTimer() {
	s.timerPending = false
	s.Changed.BeginCoalesce()
	defer s.Changed.EndCoalesce()

	s.prepareNow(s.pendingReveal)
	s.Changed.Notify()
}

// PrepareImmediate skips the flipping delay: classical sets sample a new
// outcome batch and hide it, quantum sets enter StateReady with sampling
// deferred to the eventual observation.
func (s *TwoStateSystemSet) PrepareImmediate() {
	s.cancelPrepareTimer()
	s.prepareNow(false)
	s.Changed.Notify()
}

func (s *TwoStateSystemSet) prepareNow(reveal bool) {
	if s.cfg.Kind == KindQuantum {
		s.state = StateReady
		if reveal {
			s.generateOutcomes()
			s.state = StateRevealed
		}
		return
	}

	s.generateOutcomes()
	s.state = StateMeasuredHidden
	if reveal {
		s.state = StateRevealed
	}
}

/*
Reveal shows the outcomes. From StateMeasuredHidden the already-determined
batch is shown unchanged; from StateReady this is the collapse point and a
fresh batch is sampled. Any other source state is a caller bug.
*/
func (s *TwoStateSystemSet) Reveal() error {
	switch s.state {
	case StateMeasuredHidden:
	case StateReady:
		s.generateOutcomes()
	default:
		return fmt.Errorf("reveal from %v: %w", s.state, ErrInvalidTransition)
	}
	s.state = StateRevealed
	s.Changed.Notify()
	return nil
}

// Hide conceals revealed outcomes without changing them. Only legal from
// StateRevealed.
func (s *TwoStateSystemSet) Hide() error {
	if s.state != StateRevealed {
		return fmt.Errorf("hide from %v: %w", s.state, ErrInvalidTransition)
	}
	s.state = StateMeasuredHidden
	s.Changed.Notify()
	return nil
}

/*
Measure returns the determined outcomes, collapsing first if the set is
still unobserved. Calling Measure on an already-measured set is idempotent:
it returns the existing batch without resampling. Measuring while a
prepare is in flight is a precondition violation.
*/
func (s *TwoStateSystemSet) Measure() ([]string, error) {
	switch s.state {
	case StatePreparing:
		return nil, fmt.Errorf("measure while preparing: %w", ErrBusyPreparing)
	case StateReady:
		s.generateOutcomes()
		s.state = StateRevealed
		s.Changed.Notify()
	}
	return s.Outcomes(), nil
}

// SetOutcomesImmediate cancels any pending prepare and forces every entry
// to the given label, recording the matching sentinel seed so replayed
// state reproduces the forced batch. The set comes to rest with the
// outcomes determined but hidden.
func (s *TwoStateSystemSet) SetOutcomesImmediate(value string) error {
	var seed float64
	switch value {
	case s.cfg.ValidValues[0]:
		seed = SeedAllFirst
	case s.cfg.ValidValues[1]:
		seed = SeedAllSecond
	default:
		return fmt.Errorf("value %q is not one of %v", value, s.cfg.ValidValues)
	}

	s.cancelPrepareTimer()
	s.seed = seed
	s.sampledBias = s.bias
	s.regenerateFromSeed()
	s.state = StateMeasuredHidden
	s.Changed.Notify()
	return nil
}

// Reset restores the configured initial bias and count, cancels any
// pending prepare, and re-prepares immediately.
func (s *TwoStateSystemSet) Reset() {
	s.Changed.BeginCoalesce()
	defer s.Changed.EndCoalesce()

	s.cancelPrepareTimer()
	s.bias = s.cfg.InitialBias
	s.count = s.cfg.InitialCount
	s.prepareNow(false)
	s.Changed.Notify()
}

/*
RegenerateFromSeed rebuilds the outcome array from an externally supplied
seed, the replay half of the persisted-state contract: saved state carries
only the seed, and this call reconstructs the identical batch for the
current bias and count. Legal only once outcomes are determined.
*/
func (s *TwoStateSystemSet) RegenerateFromSeed(seed float64) error {
	if seed < 0 || seed > 1 {
		return fmt.Errorf("seed %v outside [0,1]", seed)
	}
	if s.state != StateMeasuredHidden && s.state != StateRevealed {
		return fmt.Errorf("regenerate from %v: %w", s.state, ErrInvalidTransition)
	}
	s.seed = seed
	s.sampledBias = s.bias
	s.regenerateFromSeed()
	s.Changed.Notify()
	return nil
}

// generateOutcomes draws a fresh seed strictly inside (0,1) and derives
// the outcome batch from it under the live bias.
func (s *TwoStateSystemSet) generateOutcomes() {
	seed := s.rng.Float64()
	for seed == 0 {
		// 0 is the all-first sentinel; rand.Float64 never returns 1.
		seed = s.rng.Float64()
	}
	s.seed = seed
	s.sampledBias = s.bias
	s.regenerateFromSeed()
}

func (s *TwoStateSystemSet) regenerateFromSeed() {
	switch s.seed {
	case SeedAllFirst:
		for i := range s.measured {
			s.measured[i] = s.cfg.ValidValues[0]
		}
	case SeedAllSecond:
		for i := range s.measured {
			s.measured[i] = s.cfg.ValidValues[1]
		}
	default:
		sub := sourceFromSeed(s.seed)
		for i := 0; i < s.count; i++ {
			if sub.Float64() < s.sampledBias {
				s.measured[i] = s.cfg.ValidValues[0]
			} else {
				s.measured[i] = s.cfg.ValidValues[1]
			}
		}
	}
}

func (s *TwoStateSystemSet) cancelPrepareTimer() {
	if s.timerPending {
		s.clock.Cancel(s.prepareTimer)
		s.timerPending = false
	}
}
