package motion

// ParabolicStep interpolates linearly between start and end at fraction
// p. Kept as its own function (rather than inlined Lerp) so a smoother
// horizontal profile can be swapped in without touching callers.
func ParabolicStep(start, end Pose2D, p float64) Pose2D {
	return Lerp(start, end, p)
}

// ParabolicReturn computes the normalized swing-foot lift height at
// fraction p, peaking at 1.0 at fraction midpoint and returning to 0 at
// both p=0 and p=1. Two parabolic segments are joined at the midpoint so
// the rise and fall can have different durations.
func ParabolicReturn(p, midpoint float64) float64 {
	switch {
	case p <= 0 || p >= 1:
		return 0
	case p <= midpoint:
		x := p / midpoint
		return 1 - (1-x)*(1-x)
	default:
		x := (p - midpoint) / (1 - midpoint)
		return 1 - x*x
	}
}

// InterpolateStep computes the swing and support foot poses and the
// swing-foot lift height at fraction p = elapsed/duration through a
// StepPlan.
func InterpolateStep(plan StepPlan, p float64) (swing, support Pose2D, liftHeight float64) {
	swingSide := plan.SupportSide.Opposite()

	startSwing := plan.StartFeet.ForSide(swingSide)
	endSwing := plan.EndFeet.ForSide(swingSide)
	startSupport := plan.StartFeet.ForSide(plan.SupportSide)
	endSupport := plan.EndFeet.ForSide(plan.SupportSide)

	swing = ParabolicStep(startSwing, endSwing, p)
	support = Lerp(startSupport, endSupport, p)
	liftHeight = ParabolicReturn(p, plan.Midpoint) * plan.FootLiftApex
	return
}
