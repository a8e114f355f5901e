package qmeasure

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSimClock(t *testing.T) {
	Convey("Given a simulation clock", t, func() {
		clock := NewSimClock()

		Convey("Time advances by the stepped amount", func() {
			clock.Step(0.25)
			clock.Step(0.25)
			So(clock.Now(), ShouldAlmostEqual, 0.5)
		})

		Convey("Callbacks fire in due-time order regardless of schedule order", func() {
			var order []string
			clock.Schedule(2.0, func() { order = append(order, "late") })
			clock.Schedule(1.0, func() { order = append(order, "early") })

			clock.Step(3.0)
			So(order, ShouldResemble, []string{"early", "late"})
		})

		Convey("Equal due times fire in schedule order", func() {
			var order []string
			clock.Schedule(1.0, func() { order = append(order, "first") })
			clock.Schedule(1.0, func() { order = append(order, "second") })

			clock.Step(1.5)
			So(order, ShouldResemble, []string{"first", "second"})
		})

		Convey("A callback only fires once its delay has fully elapsed", func() {
			fired := false
			clock.Schedule(1.0, func() { fired = true })

			clock.Step(0.99)
			So(fired, ShouldBeFalse)
			So(clock.PendingCount(), ShouldEqual, 1)

			clock.Step(0.02)
			So(fired, ShouldBeTrue)
			So(clock.PendingCount(), ShouldEqual, 0)
		})

		Convey("Cancel removes a pending callback", func() {
			fired := false
			handle := clock.Schedule(1.0, func() { fired = true })

			So(clock.Cancel(handle), ShouldBeTrue)
			clock.Step(2.0)
			So(fired, ShouldBeFalse)

			Convey("Cancelling again is a no-op", func() {
				So(clock.Cancel(handle), ShouldBeFalse)
			})
		})

		Convey("A callback chain that comes due within one step is drained", func() {
			var order []string
			clock.Schedule(1.0, func() {
				order = append(order, "outer")
				clock.Schedule(0, func() { order = append(order, "inner") })
			})

			clock.Step(1.0)
			So(order, ShouldResemble, []string{"outer", "inner"})
		})

		Convey("A callback may cancel a sibling before it fires", func() {
			fired := false
			var sibling TimerHandle
			clock.Schedule(1.0, func() { clock.Cancel(sibling) })
			sibling = clock.Schedule(2.0, func() { fired = true })

			clock.Step(3.0)
			So(fired, ShouldBeFalse)
		})
	})
}
