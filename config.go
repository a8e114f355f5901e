package qmeasure

// SystemKind selects the measurement lifecycle for a TwoStateSystemSet.
// Classical systems (coins) determine their outcomes as soon as preparation
// finishes; quantum systems defer sampling until they are observed.
type SystemKind int

const (
	KindClassical SystemKind = iota
	KindQuantum
)

// SystemSetConfig configures one TwoStateSystemSet. A scene constructs one
// of these explicitly and passes it down; there is no shared global
// preferences object.
type SystemSetConfig struct {
	Kind SystemKind

	// ValidValues are the two outcome labels, e.g. heads/tails or up/down.
	// The bias is the probability of the first one.
	ValidValues [2]string

	// MaxCount fixes the capacity of the outcome array; Count may vary
	// below it at runtime.
	MaxCount     int
	InitialCount int
	InitialBias  float64

	// PrepareDuration is the simulated flipping/evolving delay, in
	// seconds, between Prepare and the prepared state.
	PrepareDuration float64

	// AutoReveal reveals outcomes as soon as a timed Prepare completes.
	AutoReveal bool
}

// ExperimentConfig describes the fixed apparatus graph for a Spin or
// Photons experiment.
type ExperimentConfig struct {
	// Stages is 1 for a single apparatus, 2 for a cascade where each root
	// exit feeds a child apparatus.
	Stages int

	// RootBasis and ChildBases are measurement-axis angles in radians.
	// ChildBases[0] is the apparatus behind the up exit, ChildBases[1]
	// behind the down exit; both are ignored for single-stage setups.
	RootBasis  float64
	ChildBases [2]float64

	// Input is the state vector entering the root apparatus.
	Input StateVector

	// Blocker optionally discards trials at one of the root's exits.
	Blocker Blocker

	// Geometry maps branch keys to waypoint segments; see PathGeometry.
	// Nil is allowed when no view needs trial paths.
	Geometry PathGeometry
}

// EmissionMode selects how a TrialSource produces trials.
type EmissionMode int

const (
	// EmitSingleShot produces one trial per FireOne call.
	EmitSingleShot EmissionMode = iota
	// EmitContinuous produces trials at a configured rate per simulated
	// second, with fractional accumulation across ticks.
	EmitContinuous
)

// SourceConfig configures a TrialSource and its backing pool.
type SourceConfig struct {
	Mode EmissionMode

	// Rate is the initial trials-per-second for continuous mode.
	Rate float64

	// MaxTrials sizes the initial trial pool. The pool grows if the
	// simulation ever needs more concurrent trials.
	MaxTrials int

	// MaxLifetime force-expires a trial that has not reached a detector
	// after this many simulated seconds.
	MaxLifetime float64
}
