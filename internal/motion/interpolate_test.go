package motion

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInterpolatorBoundary(t *testing.T) {
	Convey("Given a step plan with distinct start and end poses", t, func() {
		plan := StepPlan{
			SupportSide: Right,
			StartFeet: FeetPose{
				Left:  Pose2D{X: 0, Y: 0.05},
				Right: Pose2D{X: 0, Y: -0.05},
			},
			EndFeet: FeetPose{
				Left:  Pose2D{X: 0.05, Y: 0.05},
				Right: Pose2D{X: 0, Y: -0.05},
			},
			StepDuration: 0.25,
			FootLiftApex: 0.02,
			Midpoint:     0.5,
		}

		Convey("At p=0 the swing pose equals start and lift height is 0", func() {
			swing, _, height := InterpolateStep(plan, 0)
			So(swing, ShouldResemble, plan.StartFeet.Left)
			So(height, ShouldEqual, 0.0)
		})

		Convey("At p=1 the swing pose equals end and lift height is 0", func() {
			swing, _, height := InterpolateStep(plan, 1)
			So(swing, ShouldResemble, plan.EndFeet.Left)
			So(height, ShouldEqual, 0.0)
		})

		Convey("At the midpoint the swing foot is at its peak height", func() {
			_, _, height := InterpolateStep(plan, 0.5)
			So(height, ShouldEqual, plan.FootLiftApex)
		})

		Convey("The support foot does not move when start and end coincide", func() {
			_, support, _ := InterpolateStep(plan, 0.5)
			So(support, ShouldResemble, plan.StartFeet.Right)
		})
	})
}

func TestParabolicReturnShape(t *testing.T) {
	Convey("Given a midpoint of 0.5", t, func() {
		Convey("The curve is zero outside [0,1]", func() {
			So(ParabolicReturn(-0.1, 0.5), ShouldEqual, 0.0)
			So(ParabolicReturn(1.1, 0.5), ShouldEqual, 0.0)
		})

		Convey("The curve peaks at exactly 1.0 at the midpoint", func() {
			So(ParabolicReturn(0.5, 0.5), ShouldEqual, 1.0)
		})
	})
}
