package motion

// StepGeometry configures per-side base foot offsets and the swing/support
// split a requested Step is turned into a StepPlan with.
type StepGeometry struct {
	// LeftFootBaseOffset, RightFootBaseOffset are each foot's standing
	// offset from the walk frame origin.
	LeftFootBaseOffset, RightFootBaseOffset Pose2D

	StepDuration float64
	FootLiftApex float64
	Midpoint     float64
}

// PlanStep builds the StepPlan for one step: the current feet poses are
// the start, and the requested Step together with the geometry's base
// offsets determine the end poses, per the support/swing split.
//
// Support foot: (-forward/2, -left/2, 0) + base offset.
// Swing foot:   (+forward/2, +left/2, 0) + base offset.
// Per-foot yaw: ±turn/2.
func PlanStep(supportSide Side, start FeetPose, requested Step, geom StepGeometry) StepPlan {
	swingSide := supportSide.Opposite()

	supportBase := baseOffset(supportSide, geom)
	swingBase := baseOffset(swingSide, geom)

	supportYaw := -requested.Turn / 2
	swingYaw := requested.Turn / 2
	if supportSide == Right {
		supportYaw, swingYaw = swingYaw, supportYaw
	}

	endSupport := Pose2D{
		X:   -requested.Forward/2 + supportBase.X,
		Y:   -requested.Left/2 + supportBase.Y,
		Yaw: supportYaw,
	}
	endSwing := Pose2D{
		X:   requested.Forward/2 + swingBase.X,
		Y:   requested.Left/2 + swingBase.Y,
		Yaw: swingYaw,
	}

	end := start.WithSide(supportSide, endSupport).WithSide(swingSide, endSwing)

	return StepPlan{
		SupportSide:  supportSide,
		StartFeet:    start,
		EndFeet:      end,
		StepDuration: geom.StepDuration,
		FootLiftApex: geom.FootLiftApex,
		Midpoint:     geom.Midpoint,
	}
}

func baseOffset(side Side, geom StepGeometry) Pose2D {
	if side == Left {
		return geom.LeftFootBaseOffset
	}
	return geom.RightFootBaseOffset
}

// MirrorStepPlan mirrors a plan's support side, feet poses, and requested
// geometry — used to verify step planning symmetry: mirroring a step
// produces mirrored end_feet, and mirroring twice is the identity.
func MirrorStepPlan(plan StepPlan) StepPlan {
	mirrorFeet := func(f FeetPose) FeetPose {
		return FeetPose{
			Left:  mirrorPose(f.Right),
			Right: mirrorPose(f.Left),
		}
	}
	return StepPlan{
		SupportSide:  plan.SupportSide.Opposite(),
		StartFeet:    mirrorFeet(plan.StartFeet),
		EndFeet:      mirrorFeet(plan.EndFeet),
		StepDuration: plan.StepDuration,
		FootLiftApex: plan.FootLiftApex,
		Midpoint:     plan.Midpoint,
	}
}

func mirrorPose(p Pose2D) Pose2D {
	return Pose2D{X: p.X, Y: -p.Y, Yaw: -p.Yaw}
}
