package motion

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hulks-go/motioncore/internal/hardware"
)

func testParams() EngineParams {
	return EngineParams{
		ReadyPose: hardware.JointPositions{
			"left_hip_pitch": 0.1, "right_hip_pitch": 0.1,
			"left_knee_pitch": 0.2, "right_knee_pitch": 0.2,
		},
		ReadyStiffness: 0.8,
		Gains: JointGains{
			HipPitchPerForward: 2.0, HipRollPerLeft: 2.0, HipYawPerTurn: 1.0,
			KneePitchPerLift: 3.0, AnklePitchPerForward: 1.5, AnkleRollPerLeft: 1.5,
		},
		GyroFilterAlpha: 0.3,
		GyroBalance:     GyroBalanceParams{AnklePitchFactor: 0.1, AnkleRollFactor: 0.1, HipPitchFactor: 0.05, MaxAnkleDelta: 0.05, MaxHipDelta: 0.05},
		FootLeveling:    FootLevelingParams{PitchFactor: 0.2, RollFactor: 0.2, MaxDelta: 0.05, DisableAfterFraction: 0.9},
		ArmSwing:        ArmSwingParams{Amplitude: 0.3},
		SupportPolygon:  SupportPolygon{MinX: -0.1, MaxX: 0.1, MinY: -0.1, MaxY: 0.1},
		Catch:           CatchParams{MaxAdjustmentMagnitude: 0.05, MaxAdjustmentDelta: 0.02, OverEstimationGain: 1.5},
	}
}

func uprightSensors() Sensors {
	return Sensors{
		Upright:             true,
		SupportFootPressure: 1.0,
		PressureThreshold:   0.2,
		MinStepFraction:     0.5,
		CoM:                 Pose2D{},
		CoMAcceleration:     Pose2D{},
		CoMHeight:            0.3,
	}
}

func TestScenarioColdStartToStand(t *testing.T) {
	Convey("Given an engine at startup and a Stand command", t, func() {
		e := NewEngine(testGeometry(), baseClampParams(), motionKickLib())
		params := testParams()
		gyro := NewGyroFilter(params.GyroFilterAlpha)

		cmd := MotionCommand{Kind: CommandStand}
		commands := e.Tick(cmd, uprightSensors(), 1.0/83.0, params, gyro)

		Convey("Motor commands match the ready pose with stiffness 0.8", func() {
			So(commands.Positions["left_hip_pitch"], ShouldEqual, params.ReadyPose["left_hip_pitch"])
			So(commands.Stiffnesses["left_hip_pitch"], ShouldEqual, 0.8)
		})

		Convey("The engine remains in Standing", func() {
			So(e.Mode, ShouldEqual, Standing)
		})
	})
}

func TestScenarioStandToWalkForward(t *testing.T) {
	Convey("Given an engine commanded to walk forward", t, func() {
		e := NewEngine(testGeometry(), baseClampParams(), motionKickLib())
		params := testParams()
		gyro := NewGyroFilter(params.GyroFilterAlpha)
		cmd := MotionCommand{Kind: CommandWalk, WalkTarget: Step{Forward: 0.05}}

		sensors := uprightSensors()
		sensors.SupportFootPressure = 1.0 // stay in support through Starting

		e.Tick(cmd, sensors, 0.012, params, gyro)
		So(e.Mode, ShouldEqual, Starting)

		// Force a support switch by dropping pressure below threshold after
		// enough of the step has elapsed.
		sensors.SupportFootPressure = 0.0
		for i := 0; i < 100 && e.Mode != Walking; i++ {
			e.Tick(cmd, sensors, 0.012, params, gyro)
		}

		Convey("The engine reaches Walking within a bounded number of ticks", func() {
			So(e.Mode, ShouldEqual, Walking)
		})

		Convey("The accepted forward step climbs toward the requested value, bounded by max acceleration", func() {
			So(e.PreviousStep.Forward, ShouldBeGreaterThan, 0)
			So(e.PreviousStep.Forward, ShouldBeLessThanOrEqualTo, 0.05)
		})
	})
}

func motionKickLib() KickLibrary {
	return KickLibrary{
		KickForward: {
			{StepDuration: 0.2, FootLiftApex: 0.02, Midpoint: 0.5, BaseStep: Step{}},
			{StepDuration: 0.2, FootLiftApex: 0.05, Midpoint: 0.5, BaseStep: Step{Forward: 0.08}},
		},
	}
}

func TestScenarioForwardKick(t *testing.T) {
	Convey("Given an engine walking on its left foot and commanded to kick with the left foot", t, func() {
		e := NewEngine(testGeometry(), baseClampParams(), motionKickLib())
		e.Mode = Walking
		e.CurrentPlan.SupportSide = Left

		params := testParams()
		gyro := NewGyroFilter(params.GyroFilterAlpha)
		cmd := MotionCommand{Kind: CommandInWalkKick, KickVariant: KickForward, KickSide: Left, KickStrength: 1.0}

		Convey("Before any support switch, the engine keeps walking rather than kicking", func() {
			e.Tick(cmd, uprightSensors(), 0.012, params, gyro)
			So(e.Mode, ShouldEqual, Walking)
			So(e.Kick, ShouldBeNil)
		})

		Convey("The first support switch puts the right foot in support, not the kicking side, so the engine pre-steps instead of kicking", func() {
			sensors := uprightSensors()
			sensors.SupportFootPressure = 0.0
			e.ElapsedInStep = e.CurrentPlan.StepDuration
			e.Tick(cmd, sensors, 0.012, params, gyro)

			So(e.Mode, ShouldEqual, Walking)
			So(e.Kick, ShouldBeNil)
			So(e.CurrentPlan.SupportSide, ShouldEqual, Right)

			Convey("The next support switch puts the left foot in support, matching the kicking side, so the engine commits to Kicking", func() {
				e.ElapsedInStep = e.CurrentPlan.StepDuration
				e.Tick(cmd, sensors, 0.012, params, gyro)
				So(e.Mode, ShouldEqual, Kicking)
				So(e.Kick, ShouldNotBeNil)

				Convey("Advancing through every kick-step returns the engine to Walking", func() {
					for i := 0; i < len(e.Kick.Steps)+1 && e.Mode == Kicking; i++ {
						e.ElapsedInStep = e.CurrentPlan.StepDuration
						e.Tick(cmd, sensors, 0.012, params, gyro)
					}
					So(e.Mode, ShouldEqual, Walking)
				})
			})
		})
	})
}

func TestScenarioBalanceUnderPush(t *testing.T) {
	Convey("Given an engine walking when the ZMP leaves the support polygon", t, func() {
		e := NewEngine(testGeometry(), baseClampParams(), motionKickLib())
		e.Mode = Walking
		e.CurrentPlan.SupportSide = Left
		e.CurrentPlan.StepDuration = 0.25

		params := testParams()
		gyro := NewGyroFilter(params.GyroFilterAlpha)
		cmd := MotionCommand{Kind: CommandWalk, WalkTarget: Step{Forward: 0.02}}

		sensors := uprightSensors()
		sensors.CoM = Pose2D{X: 0.5} // far outside the support polygon

		e.Tick(cmd, sensors, 0.012, params, gyro)

		Convey("The engine enters Balancing", func() {
			So(e.Mode, ShouldEqual, Balancing)
		})

		Convey("A subsequent support switch returns the engine to Walking", func() {
			sensors.CoM = Pose2D{}
			sensors.SupportFootPressure = 0.0
			e.ElapsedInStep = e.CurrentPlan.StepDuration
			e.Tick(cmd, sensors, 0.012, params, gyro)
			So(e.Mode, ShouldEqual, Walking)
		})
	})
}

func TestNoNaNUnderFiniteInputs(t *testing.T) {
	Convey("Given a sequence of finite-magnitude ticks across every mode", t, func() {
		e := NewEngine(testGeometry(), baseClampParams(), motionKickLib())
		params := testParams()
		gyro := NewGyroFilter(params.GyroFilterAlpha)

		commands := []MotionCommand{
			{Kind: CommandStand},
			{Kind: CommandWalk, WalkTarget: Step{Forward: 0.05, Left: 0.02, Turn: 0.1}},
			{Kind: CommandInWalkKick, KickVariant: KickForward, KickSide: Right},
			{Kind: CommandStand},
		}

		for _, cmd := range commands {
			for i := 0; i < 30; i++ {
				sensors := uprightSensors()
				if i%5 == 0 {
					sensors.SupportFootPressure = 0.0
				}
				out := e.Tick(cmd, sensors, 0.012, params, gyro)
				for joint, angle := range out.Positions {
					So(math.IsNaN(angle), ShouldBeFalse)
					_ = joint
				}
				for _, s := range out.Stiffnesses {
					So(math.IsNaN(s), ShouldBeFalse)
				}
			}
		}
	})
}
