package motion

import "github.com/hulks-go/motioncore/internal/hardware"

// JointGains maps planar foot-pose components to joint-angle deltas. The
// engine has no inverse-kinematics solver; it generates joint commands
// directly from the planar pose via these linear gains, which a real
// deployment tunes to its leg geometry.
type JointGains struct {
	HipPitchPerForward   float64
	HipRollPerLeft       float64
	HipYawPerTurn        float64
	KneePitchPerLift     float64
	AnklePitchPerForward float64
	AnkleRollPerLeft     float64
}

// Sensors is the subset of hardware.SensorData plus derived balance
// quantities the engine needs for one tick.
type Sensors struct {
	Upright             bool
	SupportFootPressure float64
	PressureThreshold   float64
	MinStepFraction     float64
	TorsoPitch          float64
	TorsoRoll           float64
	GyroX, GyroY, GyroZ float64
	CoM                 Pose2D
	CoMAcceleration     Pose2D
	CoMHeight           float64
}

// EngineParams bundles every tunable the engine needs beyond step
// geometry and anatomic clamping. Tick receives them from its caller; the
// walking engine node passes the values it was constructed with, not
// values read from the parameter tree.
type EngineParams struct {
	ReadyPose       hardware.JointPositions
	ReadyStiffness  float64
	Gains           JointGains
	GyroFilterAlpha float64
	GyroBalance     GyroBalanceParams
	FootLeveling    FootLevelingParams
	ArmSwing        ArmSwingParams
	SupportPolygon  SupportPolygon
	Catch           CatchParams
}

// Tick advances the engine by dt seconds given the requested command and
// this tick's sensor readings, and returns the motor commands to apply.
// If sensor data indicates the robot is not upright, the engine acts on
// a Stand command in place of cmd.
func (e *Engine) Tick(cmd MotionCommand, sensors Sensors, dt float64, params EngineParams, gyro *GyroFilter) MotorCommands {
	if !sensors.Upright {
		cmd = MotionCommand{Kind: CommandStand}
	}

	e.ElapsedInStep += dt

	zmp := ZMP(sensors.CoM, sensors.CoMAcceleration, sensors.CoMHeight)
	event := DetectEvent(e, sensors.SupportFootPressure, sensors.PressureThreshold, sensors.MinStepFraction, zmp, params.SupportPolygon)

	if e.Mode == Kicking && event == EventSupportSwitch && e.Kick != nil {
		e.Kick.Advance()
		e.ElapsedInStep = 0
		if e.Kick.Done() {
			event = EventKickFinished
		} else {
			support := e.CurrentPlan.SupportSide.Opposite()
			e.CurrentPlan = PlanStep(support, e.CurrentPlan.EndFeet, e.Kick.KickStepRequest(), e.Geometry)
		}
	}

	if e.Mode == Walking && (event == EventSupportSwitch || event == EventStepTimeout) {
		e.replanWalkingStep(cmd, event)
	} else {
		nextMode := Transition(e.Mode, cmd, event)
		if nextMode != e.Mode {
			e.enterMode(nextMode, cmd, event)
		}
	}

	switch e.Mode {
	case Standing, Stopping:
		return e.readyCommands(params)
	case Kicking:
		return e.tickWalkingPose(sensors, dt, params, gyro)
	default:
		return e.tickWalkingPose(sensors, dt, params, gyro)
	}
}

// replanWalkingStep handles a support switch or step timeout while already
// Walking: continuing to walk replans the next step toward the requested
// target, an in-walk kick request either commits to Kicking (once the side
// taking over support at this switch matches the requested kicking side)
// or lands a zero pre-step first, and any other command stops.
func (e *Engine) replanWalkingStep(cmd MotionCommand, event Event) {
	nextSupport := e.CurrentPlan.SupportSide.Opposite()

	if cmd.Kind != CommandWalk && cmd.Kind != CommandInWalkKick {
		e.enterMode(Stopping, cmd, event)
		return
	}

	if event == EventStepTimeout {
		e.CurrentPlan = PlanStep(nextSupport, e.CurrentPlan.EndFeet, ZeroStep, e.Geometry)
		e.ElapsedInStep = 0
		return
	}

	if cmd.Kind == CommandInWalkKick {
		if nextSupport != cmd.KickSide {
			e.CurrentPlan = PlanStep(nextSupport, e.CurrentPlan.EndFeet, ZeroStep, e.Geometry)
			e.ElapsedInStep = 0
			return
		}
		e.enterMode(Kicking, cmd, event)
		return
	}

	requested := Clamp(cmd.WalkTarget, e.PreviousStep, nextSupport.Opposite(), e.Clamp)
	e.PreviousStep = requested
	e.CurrentPlan = PlanStep(nextSupport, e.CurrentPlan.EndFeet, requested, e.Geometry)
	e.ElapsedInStep = 0
}

func (e *Engine) enterMode(next Mode, cmd MotionCommand, event Event) {
	prevSupport := e.CurrentPlan.SupportSide
	e.Mode = next
	e.ElapsedInStep = 0

	switch next {
	case Standing:
		e.Kick = nil
		e.CurrentPlan = StepPlan{
			SupportSide: prevSupport,
			StartFeet:   e.CurrentPlan.EndFeet,
			EndFeet:     e.CurrentPlan.EndFeet,
		}

	case Starting, Walking:
		support := prevSupport.Opposite()
		requested := Clamp(cmd.WalkTarget, e.PreviousStep, support.Opposite(), e.Clamp)
		e.PreviousStep = requested
		e.CurrentPlan = PlanStep(support, e.CurrentPlan.EndFeet, requested, e.Geometry)

	case Kicking:
		e.Kick = NewKickState(cmd.KickVariant, cmd.KickSide, e.KickLib)
		support := prevSupport.Opposite()
		requested := ZeroStep
		if e.Kick != nil && len(e.Kick.Steps) > 0 {
			requested = e.Kick.KickStepRequest()
		}
		e.CurrentPlan = PlanStep(support, e.CurrentPlan.EndFeet, requested, e.Geometry)

	case Stopping:
		support := prevSupport.Opposite()
		e.CurrentPlan = PlanStep(support, e.CurrentPlan.EndFeet, ZeroStep, e.Geometry)

	case Balancing:
		// Re-planning toward the ZMP happens per-tick in tickWalkingPose;
		// entering Balancing keeps the in-flight plan as a starting point.
	}
}

func (e *Engine) readyCommands(params EngineParams) MotorCommands {
	positions := make(hardware.JointPositions, len(params.ReadyPose))
	stiffnesses := make(hardware.JointStiffnesses, len(params.ReadyPose))
	for joint, angle := range params.ReadyPose {
		positions[joint] = angle
		stiffnesses[joint] = params.ReadyStiffness
	}
	return MotorCommands{Positions: positions, Stiffnesses: stiffnesses}
}

func (e *Engine) tickWalkingPose(sensors Sensors, dt float64, params EngineParams, gyro *GyroFilter) MotorCommands {
	duration := e.CurrentPlan.StepDuration
	fraction := 0.0
	if duration > 0 {
		fraction = clampRange(e.ElapsedInStep/duration, 0, 1)
	}

	if e.Mode == Balancing {
		zmp := ZMP(sensors.CoM, sensors.CoMAcceleration, sensors.CoMHeight)
		replanned, _ := ReplanForCatch(e.CurrentPlan, zmp, params.SupportPolygon, Pose2D{}, params.Catch)
		e.CurrentPlan = replanned
	}

	swing, support, lift := InterpolateStep(e.CurrentPlan, fraction)

	fx, fy, _ := gyro.Update(sensors.GyroX, sensors.GyroY, sensors.GyroZ)
	correction := GyroBalance(fx, fy, params.GyroBalance)

	levelPitch, levelRoll := FootLeveling(sensors.TorsoPitch, sensors.TorsoRoll, fraction, params.FootLeveling)
	armOffset := ArmSwing(fraction, params.ArmSwing)

	swingSide := e.CurrentPlan.SupportSide.Opposite()

	positions := hardware.JointPositions{}
	stiffnesses := hardware.JointStiffnesses{}

	applyLegPose(positions, swingSide, swing, lift, params.Gains, levelPitch, levelRoll)
	applyLegPose(positions, e.CurrentPlan.SupportSide, support, 0, params.Gains, 0, 0)

	supportPrefix := jointPrefix(e.CurrentPlan.SupportSide)
	positions[supportPrefix+"ankle_pitch"] += correction.AnklePitch
	positions[supportPrefix+"ankle_roll"] += correction.AnkleRoll
	positions[supportPrefix+"hip_pitch"] += correction.HipPitch

	positions["left_shoulder_pitch"] = armSignFor(Left, swingSide) * armOffset
	positions["right_shoulder_pitch"] = armSignFor(Right, swingSide) * armOffset

	for joint := range positions {
		stiffnesses[joint] = 0.8
	}

	return MotorCommands{Positions: positions, Stiffnesses: stiffnesses}
}

func applyLegPose(positions hardware.JointPositions, side Side, pose Pose2D, lift float64, gains JointGains, levelPitch, levelRoll float64) {
	prefix := jointPrefix(side)
	positions[prefix+"hip_pitch"] = pose.X*gains.HipPitchPerForward + levelPitch
	positions[prefix+"hip_roll"] = pose.Y*gains.HipRollPerLeft + levelRoll
	positions[prefix+"hip_yaw"] = pose.Yaw * gains.HipYawPerTurn
	positions[prefix+"knee_pitch"] = lift * gains.KneePitchPerLift
	positions[prefix+"ankle_pitch"] = pose.X*gains.AnklePitchPerForward + levelPitch
	positions[prefix+"ankle_roll"] = pose.Y*gains.AnkleRollPerLeft + levelRoll
}

func jointPrefix(side Side) string {
	if side == Left {
		return "left_"
	}
	return "right_"
}

func armSignFor(arm, swingSide Side) float64 {
	if arm == swingSide.Opposite() {
		return 1
	}
	return -1
}
