// Package collector implements the motor command collector: it applies
// joint-calibration offsets and the per-joint stiffness overrides
// registered for the current MotionType to the joint commands it is
// given. It does not choose between sources; the caller passes the one
// source that applies.
package collector

import "github.com/hulks-go/motioncore/internal/hardware"

// MotionType names which subsystem's commands are authoritative this
// tick.
type MotionType int

const (
	MotionStand MotionType = iota
	MotionWalk
	MotionStandUpFront
	MotionSitDown
	MotionPenalized
)

// Source is the (positions, stiffnesses) pair a subsystem contributes
// for one tick; the walking engine, a stand-up choreography, or a fixed
// sit-down pose are all sources.
type Source struct {
	Positions   hardware.JointPositions
	Stiffnesses hardware.JointStiffnesses
}

// CalibrationOffsets maps joint name to a fixed angular offset applied
// after source selection, compensating for per-robot mechanical
// calibration.
type CalibrationOffsets map[string]float64

// StiffnessOverride forces a joint's stiffness to a fixed value whenever
// the collector is running under a given MotionType, regardless of what
// the source requested (e.g. arm-hand stiffness forced to 0 in Walk;
// knee-pitch stiffness forced to 0 in Penalized).
type StiffnessOverride struct {
	MotionType MotionType
	Joint      string
	Stiffness  float64
}

// Collector applies calibration and the stiffness overrides of a
// MotionType to a single source.
type Collector struct {
	Calibration CalibrationOffsets
	Overrides   []StiffnessOverride
}

// Collect produces the tick's MotorCommands from the selected source.
func (c *Collector) Collect(motionType MotionType, source Source) Source {
	positions := make(hardware.JointPositions, len(source.Positions))
	for joint, angle := range source.Positions {
		positions[joint] = angle + c.Calibration[joint]
	}

	stiffnesses := make(hardware.JointStiffnesses, len(source.Stiffnesses))
	for joint, stiffness := range source.Stiffnesses {
		stiffnesses[joint] = stiffness
	}
	for _, ov := range c.Overrides {
		if ov.MotionType == motionType {
			stiffnesses[ov.Joint] = ov.Stiffness
		}
	}

	return Source{Positions: positions, Stiffnesses: stiffnesses}
}
