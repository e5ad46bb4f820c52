package motion

// Mode is one of the walking engine's six walking modes.
type Mode int

const (
	Standing Mode = iota
	Starting
	Walking
	Kicking
	Stopping
	Balancing
)

func (m Mode) String() string {
	switch m {
	case Standing:
		return "Standing"
	case Starting:
		return "Starting"
	case Walking:
		return "Walking"
	case Kicking:
		return "Kicking"
	case Stopping:
		return "Stopping"
	case Balancing:
		return "Balancing"
	default:
		return "Unknown"
	}
}

// Event is a tick-level occurrence that can drive a mode transition,
// independent of the requested MotionCommand.
type Event int

const (
	EventNone Event = iota
	EventSupportSwitch
	EventStepTimeout
	EventKickFinished
	EventBalanceTrigger
)

// Engine owns the walking engine's mode and the state needed to advance
// it: the active step plan, elapsed time within it, kick progress, and
// the previously accepted (clamped) step, carried in the owning cycler's
// persistent state across ticks.
type Engine struct {
	Mode Mode

	CurrentPlan   StepPlan
	ElapsedInStep float64
	PreviousStep  Step

	Kick *KickState

	Geometry StepGeometry
	Clamp    ClampParams
	KickLib  KickLibrary
}

// NewEngine returns an engine starting in Standing with feet at their
// base offsets.
func NewEngine(geom StepGeometry, clamp ClampParams, lib KickLibrary) *Engine {
	return &Engine{
		Mode:     Standing,
		Geometry: geom,
		Clamp:    clamp,
		KickLib:  lib,
		CurrentPlan: StepPlan{
			SupportSide: Right,
			StartFeet:   FeetPose{Left: geom.LeftFootBaseOffset, Right: geom.RightFootBaseOffset},
			EndFeet:     FeetPose{Left: geom.LeftFootBaseOffset, Right: geom.RightFootBaseOffset},

			StepDuration: geom.StepDuration,
			FootLiftApex: geom.FootLiftApex,
			Midpoint:     geom.Midpoint,
		},
	}
}

// Transition advances the engine's mode given the current mode, the
// requested command, and whichever event (if any) occurred this tick. It
// returns the next mode; the caller is responsible for replanning the
// step whenever the mode or support side changes.
func Transition(mode Mode, cmd MotionCommand, event Event) Mode {
	switch mode {
	case Standing:
		if cmd.Kind == CommandWalk {
			return Starting
		}
		return Standing

	case Starting:
		if event == EventSupportSwitch {
			return Walking
		}
		return Starting

	case Walking:
		// A support switch or step timeout while Walking is dispatched by
		// the engine's replanWalkingStep, which needs the current support
		// side to decide between continuing to walk, pre-stepping ahead of
		// a kick, or committing to one; Transition only owns the
		// balance-triggered escape, which is support-side agnostic.
		if event == EventBalanceTrigger {
			return Balancing
		}
		return Walking

	case Kicking:
		if event == EventKickFinished {
			return Walking
		}
		return Kicking

	case Stopping:
		if event == EventSupportSwitch {
			return Standing
		}
		return Stopping

	case Balancing:
		if event == EventSupportSwitch {
			return Walking
		}
		return Balancing

	default:
		return Standing
	}
}

// DetectEvent classifies this tick's support-switch / timeout / kick /
// balance-trigger condition from sensor and engine state. footPressure
// crossing the threshold with at least minStepFraction of the step
// elapsed signals a support switch; running past the planned duration
// without one signals a timeout instead.
func DetectEvent(e *Engine, supportFootPressure, threshold, minStepFraction float64, zmp Pose2D, polygon SupportPolygon) Event {
	if e.Mode == Kicking && e.Kick != nil && e.Kick.Done() {
		return EventKickFinished
	}

	if e.Mode == Walking && ZMPOutsidePolygon(zmp, polygon) {
		return EventBalanceTrigger
	}

	if e.CurrentPlan.StepDuration <= 0 {
		return EventNone
	}

	fraction := e.ElapsedInStep / e.CurrentPlan.StepDuration
	if fraction >= minStepFraction && supportFootPressure < threshold {
		return EventSupportSwitch
	}
	if fraction >= 1.0 {
		return EventStepTimeout
	}
	return EventNone
}
