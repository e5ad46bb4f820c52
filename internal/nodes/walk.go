// Package nodes wires the motion package into the cycler runtime: each
// exported constructor here returns a cycler.Node that reads its typed
// inputs off the tick context and writes its typed outputs, rather than
// touching any state outside the tick it runs in.
package nodes

import (
	"context"

	"github.com/hulks-go/motioncore/internal/cycler"
	"github.com/hulks-go/motioncore/internal/hardware"
	"github.com/hulks-go/motioncore/internal/motion"
	"github.com/hulks-go/motioncore/internal/motion/collector"
	"github.com/hulks-go/motioncore/internal/motion/gait"
)

const engineStateKey = "walking_engine"

// WalkingEngineParams bundles everything the walking engine node needs
// beyond what arrives on the tick context: gait geometry and tunables
// loaded once at startup, since they rarely change mid-match.
type WalkingEngineParams struct {
	Presets *gait.Presets
	Engine  motion.EngineParams
	Clamp   motion.ClampParams
}

// NewSensorReadNode returns a node that reads the hardware collaborator's
// sensors and writes them as this cycler's main output, for downstream
// nodes (and other cyclers, via CrossInput) to consume.
func NewSensorReadNode() cycler.Node {
	return cycler.NodeFunc(func(tc *cycler.TickContext) error {
		data, err := tc.Hardware().ReadFromSensors(context.Background())
		if err != nil {
			return cycler.ErrHardwareRead
		}
		return cycler.SetMainOutput(tc, "sensor_data", data)
	})
}

// NewWalkingEngineNode returns a node that advances the walking engine FSM
// by one tick from the most recently requested motion command and sensor
// reading, and writes the resulting motor commands.
func NewWalkingEngineNode(params WalkingEngineParams) cycler.Node {
	return cycler.NodeFunc(func(tc *cycler.TickContext) error {
		cmd, err := cycler.RequiredInput[motion.MotionCommand](tc, "motion_command")
		if err != nil {
			cmd = motion.MotionCommand{Kind: motion.CommandStand}
		}

		sensorData, err := cycler.RequiredInput[hardware.SensorData](tc, "sensor_data")
		if err != nil {
			return err
		}

		engine := cycler.StateGetOrInit(tc.State(), engineStateKey, func() *motion.Engine {
			return motion.NewEngine(params.Presets.WalkGeometry.ToGeometry(), params.Clamp, params.Presets.KickLibrary())
		})
		gyro := cycler.StateGetOrInit(tc.State(), engineStateKey+"_gyro", func() *motion.GyroFilter {
			return motion.NewGyroFilter(params.Engine.GyroFilterAlpha)
		})

		sensors := sensorsFromHardware(sensorData)
		commands := engine.Tick(cmd, sensors, tc.CycleTime.Seconds(), params.Engine, gyro)

		cycler.SetAdditionalOutput(tc, "walking_engine.mode", engine.Mode.String())
		cycler.SetAdditionalOutput(tc, "walking_engine.elapsed_in_step", engine.ElapsedInStep)

		return cycler.SetMainOutput(tc, "motor_commands", commands)
	})
}

// NewMotorCollectorNode returns a node that applies per-motion-type
// stiffness overrides and per-joint calibration before the commands reach
// the actuator write node.
func NewMotorCollectorNode(motionTypeOf func(motion.MotionCommand) collector.MotionType, col *collector.Collector) cycler.Node {
	return cycler.NodeFunc(func(tc *cycler.TickContext) error {
		commands, err := cycler.RequiredInput[motion.MotorCommands](tc, "motor_commands")
		if err != nil {
			return err
		}
		cmd, _ := cycler.Input[motion.MotionCommand](tc, "motion_command")

		source := collector.Source{Positions: commands.Positions, Stiffnesses: commands.Stiffnesses}
		collected := col.Collect(motionTypeOf(cmd), source)
		return cycler.SetMainOutput(tc, "collected_commands", collected)
	})
}

// NewActuatorWriteNode returns a node that writes the final collected
// joint commands to the hardware collaborator.
func NewActuatorWriteNode() cycler.Node {
	return cycler.NodeFunc(func(tc *cycler.TickContext) error {
		collected, err := cycler.RequiredInput[collector.Source](tc, "collected_commands")
		if err != nil {
			return err
		}
		if err := tc.Hardware().WriteToActuators(context.Background(), collected.Positions, collected.Stiffnesses, nil); err != nil {
			return cycler.ErrHardwareRead
		}
		return nil
	})
}

func sensorsFromHardware(data hardware.SensorData) motion.Sensors {
	return motion.Sensors{
		Upright:             data.RobotIsUpright,
		SupportFootPressure: totalPressure(data.FootPressure),
		PressureThreshold:   0.2,
		MinStepFraction:     0.5,
		TorsoPitch:          0,
		TorsoRoll:           0,
		GyroX:                data.AngularVelocity.X,
		GyroY:                data.AngularVelocity.Y,
		GyroZ:                data.AngularVelocity.Z,
		CoMHeight:           0.3,
	}
}

func totalPressure(fp map[string]float64) float64 {
	var sum float64
	for _, v := range fp {
		sum += v
	}
	return sum
}
