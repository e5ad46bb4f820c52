package collector

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hulks-go/motioncore/internal/hardware"
)

func TestCollectorOverridesAndCalibration(t *testing.T) {
	Convey("Given a collector with calibration and stiffness overrides", t, func() {
		c := &Collector{
			Calibration: CalibrationOffsets{"left_knee_pitch": 0.02},
			Overrides: []StiffnessOverride{
				{MotionType: MotionWalk, Joint: "left_hand", Stiffness: 0.0},
				{MotionType: MotionPenalized, Joint: "left_knee_pitch", Stiffness: 0.0},
			},
		}

		source := Source{
			Positions:   hardware.JointPositions{"left_knee_pitch": 0.5},
			Stiffnesses: hardware.JointStiffnesses{"left_hand": 0.8, "left_knee_pitch": 0.8},
		}

		Convey("Walk forces hand stiffness to 0 but leaves calibrated position intact", func() {
			out := c.Collect(MotionWalk, source)
			So(out.Positions["left_knee_pitch"], ShouldAlmostEqual, 0.52)
			So(out.Stiffnesses["left_hand"], ShouldEqual, 0.0)
			So(out.Stiffnesses["left_knee_pitch"], ShouldEqual, 0.8)
		})

		Convey("Penalized forces knee-pitch stiffness to 0", func() {
			out := c.Collect(MotionPenalized, source)
			So(out.Stiffnesses["left_knee_pitch"], ShouldEqual, 0.0)
			So(out.Stiffnesses["left_hand"], ShouldEqual, 0.8)
		})
	})
}
