package nodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hulks-go/motioncore/internal/cycler"
	"github.com/hulks-go/motioncore/internal/hardware"
	"github.com/hulks-go/motioncore/internal/hardware/sim"
	"github.com/hulks-go/motioncore/internal/motion"
	"github.com/hulks-go/motioncore/internal/motion/collector"
	"github.com/hulks-go/motioncore/internal/motion/gait"
	"github.com/hulks-go/motioncore/internal/paramtree"
)

func testWalkingParams() WalkingEngineParams {
	return WalkingEngineParams{
		Presets: &gait.Presets{
			WalkGeometry: gait.StepGeometryPreset{StepDuration: 0.25, Midpoint: 0.5, FootLiftApex: 0.02},
		},
		Engine: motion.EngineParams{
			ReadyPose:      hardware.JointPositions{"left_hip_pitch": 0.1},
			ReadyStiffness: 0.8,
			Gains:          motion.JointGains{HipPitchPerForward: 2.0},
			SupportPolygon: motion.SupportPolygon{MinX: -0.1, MaxX: 0.1, MinY: -0.1, MaxY: 0.1},
			Catch:          motion.CatchParams{MaxAdjustmentMagnitude: 0.05, MaxAdjustmentDelta: 0.02, OverEstimationGain: 1.0},
		},
		Clamp: motion.ClampParams{MaxForward: 0.08, MaxLeft: 0.04, MaxTurn: 0.3, MaxForwardAcceleration: 0.02, MaxTurnAcceleration: 0.1, OutsideTurnIncreaseLimit: 0.05},
	}
}

func writeTempParams(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "parameters.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWalkingNodesProduceCollectedCommands(t *testing.T) {
	Convey("Given a cycler wired with the sensor-read, walking-engine, collector, and actuator-write nodes", t, func() {
		hw := sim.New()
		hw.SetSensorData(hardware.SensorData{RobotIsUpright: true, FootPressure: map[string]float64{"left": 1.0}})

		params, err := paramtree.New(writeTempParams(t, `{}`))
		So(err, ShouldBeNil)

		col := &collector.Collector{Calibration: collector.CalibrationOffsets{}}
		motionTypeOf := func(motion.MotionCommand) collector.MotionType { return collector.MotionStand }

		plan, err := cycler.BuildPlan(nil, []cycler.NodeSpec{
			{Name: "sense", Node: NewSensorReadNode(), Writes: []string{"sensor_data"}},
			{Name: "walk", Node: NewWalkingEngineNode(testWalkingParams()), Reads: []string{"sensor_data"}, Writes: []string{"motor_commands"}},
			{Name: "collect", Node: NewMotorCollectorNode(motionTypeOf, col), Reads: []string{"motor_commands"}, Writes: []string{"collected_commands"}},
			{Name: "write", Node: NewActuatorWriteNode(), Reads: []string{"collected_commands"}},
		})
		So(err, ShouldBeNil)

		c := cycler.New(cycler.Config{
			Name:           "walk",
			Kind:           cycler.KindRealTime,
			Period:         5 * time.Millisecond,
			Plan:           plan,
			Params:         params,
			HW:             hw,
			HistoricWindow: time.Second,
			HistoricMargin: 100 * time.Millisecond,
		}, 0)

		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()
		<-ctx.Done()
		<-done

		Convey("The published database carries collected commands and the hardware observed writes", func() {
			db, age := c.Published().Latest()
			So(age, ShouldBeGreaterThan, 0)

			collected, ok := cycler.GetMainOutput[collector.Source](db, "collected_commands")
			So(ok, ShouldBeTrue)
			So(len(collected.Positions), ShouldBeGreaterThan, 0)

			So(len(hw.Written()), ShouldBeGreaterThan, 0)
		})
	})
}
