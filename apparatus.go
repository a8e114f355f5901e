package qmeasure

import (
	"errors"
	"fmt"
	"math"

	"github.com/theapemachine/errnie"
)

// Waypoint is a point on a trial's flight path, in scene coordinates.
type Waypoint struct {
	X float64
	Y float64
}

/*
PathGeometry maps branch keys to waypoint segments. Keys are "source" for
the segment from the emitter to the root apparatus, "root:up"/"root:down"
for the root's exits, and "up:up", "up:down", "down:up", "down:down" for
second-stage exits. A trial's full path is the concatenation of the
segments along its branch choices. Missing keys simply contribute no
waypoints, for setups where no view draws the trajectory.
*/
type PathGeometry map[string][]Waypoint

/*
Apparatus is one Stern-Gerlach magnet or beam splitter: it routes an
incoming state into an up/transmitted or down/reflected exit with
probabilities given by the cosine-squared law, and keeps cumulative
counters of the outcomes it has produced.
*/
type Apparatus struct {
	Label      string
	BasisAngle float64
	Position   Waypoint

	UpCount   int64
	DownCount int64
}

func NewApparatus(label string, basisAngle float64, position Waypoint) *Apparatus {
	return &Apparatus{
		Label:      label,
		BasisAngle: basisAngle,
		Position:   position,
	}
}

// ExitProbabilities returns the probability of each exit for the given
// incoming state. The pair always sums to exactly 1: the down probability
// is computed as the complement rather than as its own projection.
func (a *Apparatus) ExitProbabilities(in StateVector) (up, down float64) {
	up = in.ProjectionProbability(a.BasisAngle)
	return up, 1 - up
}

// UpState and DownState are the post-measurement states associated with
// each exit: the apparatus axis and its orthogonal complement.
func (a *Apparatus) UpState() StateVector {
	return NewStateVectorFromAngle(a.BasisAngle)
}

func (a *Apparatus) DownState() StateVector {
	return NewStateVectorFromAngle(a.BasisAngle + math.Pi/2)
}

func (a *Apparatus) countOutcome(up bool) {
	if up {
		a.UpCount++
	} else {
		a.DownCount++
	}
}

// ResetCounts zeroes the cumulative outcome counters.
func (a *Apparatus) ResetCounts() {
	a.UpCount = 0
	a.DownCount = 0
}

// Total returns how many trials this apparatus has measured.
func (a *Apparatus) Total() int64 {
	return a.UpCount + a.DownCount
}

// Blocker optionally absorbs trials at one of the root apparatus's exits.
type Blocker int

const (
	BlockNone Blocker = iota
	BlockUp
	BlockDown
)

/*
ExperimentGraph is the fixed routing graph for one experiment
configuration: a root apparatus whose exits either terminate at detectors
(single stage) or feed a child apparatus each (two-stage cascade). The
graph is built once per scene from an ExperimentConfig; orientation, input
state, and blocker are mutable between trials via the exported fields and
setters.
*/
type ExperimentGraph struct {
	Root      *Apparatus
	UpChild   *Apparatus
	DownChild *Apparatus

	Input    StateVector
	Blocker  Blocker
	Geometry PathGeometry

	// Discarded counts trials absorbed by the blocker.
	Discarded int64
}

func NewExperimentGraph(cfg ExperimentConfig) (*ExperimentGraph, error) {
	if cfg.Stages < 1 || cfg.Stages > 2 {
		return nil, fmt.Errorf("stages must be 1 or 2, got %d", cfg.Stages)
	}
	if cfg.Input == (StateVector{}) {
		return nil, errors.New("input state must be non-zero")
	}

	errnie.Info("NewExperimentGraph - stages %v, rootBasis %v", cfg.Stages, cfg.RootBasis)

	g := &ExperimentGraph{
		Root:     NewApparatus("root", cfg.RootBasis, Waypoint{}),
		Input:    cfg.Input.Normalize(),
		Blocker:  cfg.Blocker,
		Geometry: cfg.Geometry,
	}
	if cfg.Stages == 2 {
		g.UpChild = NewApparatus("up", cfg.ChildBases[0], Waypoint{})
		g.DownChild = NewApparatus("down", cfg.ChildBases[1], Waypoint{})
	}
	return g, nil
}

// SetInput replaces the state entering the root apparatus.
func (g *ExperimentGraph) SetInput(in StateVector) error {
	if in == (StateVector{}) {
		return errors.New("input state must be non-zero")
	}
	g.Input = in.Normalize()
	return nil
}

// ResetCounts zeroes every apparatus counter and the discard count.
func (g *ExperimentGraph) ResetCounts() {
	g.Root.ResetCounts()
	if g.UpChild != nil {
		g.UpChild.ResetCounts()
	}
	if g.DownChild != nil {
		g.DownChild.ResetCounts()
	}
	g.Discarded = 0
}

// RouteResult is one trial's passage through the graph: the ordered branch
// choices, the matching per-stage measured flags, whether the blocker
// absorbed it, the terminal detector it reached, and its assembled path.
type RouteResult struct {
	Branches []bool // true = up/transmitted, in stage order
	Measured []bool
	Blocked  bool
	Detector string
	Path     []Waypoint
}

/*
Route sends one trial through the graph. The root's exit is sampled from
its probabilities, the blocker is checked before the trial advances past
that exit, and in a two-stage cascade the surviving trial is re-measured
by the child apparatus using the state associated with the exit it took.
Counters update as each stage measures.
*/
func (g *ExperimentGraph) Route(rng RandomSource) RouteResult {
	res := RouteResult{Path: appendSegment(nil, g.Geometry, "source")}

	up, _ := g.Root.ExitProbabilities(g.Input)
	first := rng.Float64() < up
	g.Root.countOutcome(first)
	res.Branches = append(res.Branches, first)
	res.Measured = append(res.Measured, true)
	res.Path = appendSegment(res.Path, g.Geometry, branchKey("root", first))

	if g.Blocker == BlockUp && first || g.Blocker == BlockDown && !first {
		g.Discarded++
		res.Blocked = true
		return res
	}

	child := g.childFor(first)
	if child == nil {
		res.Detector = detectorID(res.Branches)
		return res
	}

	state := g.Root.DownState()
	if first {
		state = g.Root.UpState()
	}
	childUp, _ := child.ExitProbabilities(state)
	second := rng.Float64() < childUp
	child.countOutcome(second)
	res.Branches = append(res.Branches, second)
	res.Measured = append(res.Measured, true)
	res.Path = appendSegment(res.Path, g.Geometry, branchKey(child.Label, second))

	res.Detector = detectorID(res.Branches)
	return res
}

func (g *ExperimentGraph) childFor(up bool) *Apparatus {
	if up {
		return g.UpChild
	}
	return g.DownChild
}

func branchKey(stage string, up bool) string {
	if up {
		return stage + ":up"
	}
	return stage + ":down"
}

// detectorID names the terminal detector after a branch sequence, e.g.
// "up" for a single stage or "up-down" for a cascade.
func detectorID(branches []bool) string {
	id := ""
	for _, up := range branches {
		label := "down"
		if up {
			label = "up"
		}
		if id == "" {
			id = label
		} else {
			id += "-" + label
		}
	}
	return id
}

func appendSegment(path []Waypoint, geom PathGeometry, key string) []Waypoint {
	if geom == nil {
		return path
	}
	return append(path, geom[key]...)
}
