package qmeasure

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestGraph() *ExperimentGraph {
	g, err := NewExperimentGraph(ExperimentConfig{
		Stages:    1,
		RootBasis: 0,
		Input:     NewStateVectorFromAngle(math.Pi / 4),
	})
	if err != nil {
		panic(err)
	}
	return g
}

func TestSingleShotEmission(t *testing.T) {
	Convey("Given a single-shot source", t, func() {
		src, err := NewTrialSource(SourceConfig{
			Mode:        EmitSingleShot,
			MaxTrials:   8,
			MaxLifetime: 5,
		}, newTestGraph(), NewSeededSource(11, 12))
		So(err, ShouldBeNil)

		Convey("Stepping emits nothing on its own", func() {
			src.Step(10)
			So(src.Emitted, ShouldEqual, 0)
		})

		Convey("FireOne emits and routes exactly one trial", func() {
			tr := src.FireOne()
			So(tr, ShouldNotBeNil)
			So(tr.Active(), ShouldBeTrue)
			So(tr.Detector, ShouldNotEqual, "")
			So(src.Emitted, ShouldEqual, 1)
			So(len(tr.StageOutcomes), ShouldEqual, 1)
			So(tr.ID, ShouldNotEqual, "")
		})
	})
}

func TestContinuousEmission(t *testing.T) {
	Convey("Given a continuous source at 0.6 trials per second", t, func() {
		run := func(steps int, dt float64) int64 {
			src, err := NewTrialSource(SourceConfig{
				Mode:      EmitContinuous,
				Rate:      0.6,
				MaxTrials: 16,
			}, newTestGraph(), NewSeededSource(3, 9))
			So(err, ShouldBeNil)
			for i := 0; i < steps; i++ {
				src.Step(dt)
			}
			return src.Emitted
		}

		Convey("Total emission over a fixed duration is independent of dt chunking", func() {
			// 10 simulated seconds at 0.6/s is 6 trials, give or take the
			// trailing fraction.
			fine := run(1000, 0.01)
			coarse := run(10, 1.0)
			uneven := run(300, 1.0/30)

			So(fine, ShouldAlmostEqual, 6, 1)
			So(coarse, ShouldAlmostEqual, 6, 1)
			So(uneven, ShouldAlmostEqual, 6, 1)
		})

		Convey("A rate below one trial per tick still emits at the long-run average", func() {
			src, err := NewTrialSource(SourceConfig{
				Mode:      EmitContinuous,
				Rate:      0.6,
				MaxTrials: 16,
			}, newTestGraph(), NewSeededSource(3, 9))
			So(err, ShouldBeNil)

			src.Step(1.0) // accumulator 0.6, nothing emitted yet
			So(src.Emitted, ShouldEqual, 0)
			src.Step(1.0) // accumulator 1.2, one trial, remainder 0.2
			So(src.Emitted, ShouldEqual, 1)
		})

		Convey("SetRate rejects negative rates", func() {
			src, err := NewTrialSource(SourceConfig{Mode: EmitContinuous, MaxTrials: 4},
				newTestGraph(), NewSeededSource(1, 1))
			So(err, ShouldBeNil)
			So(src.SetRate(-1), ShouldNotBeNil)
			So(src.SetRate(120), ShouldBeNil)
			So(src.Rate(), ShouldEqual, 120)
		})
	})
}

func TestBlockedTrialRemainsInspectable(t *testing.T) {
	Convey("Given a single-shot source whose only exit is blocked", t, func() {
		g, err := NewExperimentGraph(ExperimentConfig{
			Stages:    1,
			RootBasis: 0,
			Input:     NewStateVectorFromAngle(0), // aligned, always exits up
			Blocker:   BlockUp,
		})
		So(err, ShouldBeNil)

		src, err := NewTrialSource(SourceConfig{
			Mode:        EmitSingleShot,
			MaxTrials:   1,
			MaxLifetime: 1.0,
		}, g, NewSeededSource(4, 4))
		So(err, ShouldBeNil)

		Convey("The blocked trial stays in flight with its fields readable", func() {
			blocked := src.FireOne()
			So(blocked.Blocked, ShouldBeTrue)
			So(blocked.Active(), ShouldBeTrue)
			So(blocked.Detector, ShouldEqual, "")
			So(g.Discarded, ShouldEqual, 1)

			Convey("A following emission does not recycle the caller's pointer", func() {
				next := src.FireOne()
				So(next, ShouldNotEqual, blocked)
				So(blocked.Blocked, ShouldBeTrue)
				So(blocked.Active(), ShouldBeTrue)
			})

			Convey("Aging out releases it without counting it lost", func() {
				src.Step(1.1)
				So(blocked.Active(), ShouldBeFalse)
				So(src.Pool().Expired, ShouldEqual, 0)
			})
		})
	})
}

func TestSourceDetectorCounters(t *testing.T) {
	Convey("Given a continuous source feeding detectors", t, func() {
		src, err := NewTrialSource(SourceConfig{
			Mode:        EmitContinuous,
			Rate:        100,
			MaxTrials:   64,
			MaxLifetime: 0.1,
		}, newTestGraph(), NewSeededSource(27, 72))
		So(err, ShouldBeNil)

		Convey("Detector rate counters settle near the arrival rate", func() {
			// Diagonal input on a basis-0 apparatus: each detector sees
			// about half of the 100/s stream.
			for i := 0; i < 300; i++ {
				src.Step(0.01)
			}
			total := src.DetectorRate("up") + src.DetectorRate("down")
			So(total, ShouldAlmostEqual, 100, 15)
			So(src.DetectorRate("up"), ShouldAlmostEqual, 50, 15)
		})

		Convey("Reset clears emission state and counters", func() {
			for i := 0; i < 100; i++ {
				src.Step(0.01)
			}
			So(src.Emitted, ShouldBeGreaterThan, 0)

			src.Reset()
			So(src.Emitted, ShouldEqual, 0)
			So(len(src.Pool().ActiveTrials()), ShouldEqual, 0)
			So(src.DetectorRate("up"), ShouldEqual, 0)
			So(src.Pool().Expired, ShouldEqual, 0)
		})
	})
}
