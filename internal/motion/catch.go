package motion

// SupportPolygon approximates the convex region the robot can balance
// over as an axis-aligned box in the walk frame, centered between the
// contact feet. Good enough to detect a ZMP excursion without a full
// convex-hull computation over sole contact geometry.
type SupportPolygon struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Contains reports whether point p lies within the polygon.
func (sp SupportPolygon) Contains(p Pose2D) bool {
	return p.X >= sp.MinX && p.X <= sp.MaxX && p.Y >= sp.MinY && p.Y <= sp.MaxY
}

// ZMP computes the zero-moment point projection from center-of-mass
// position and acceleration, using the standard inverted-pendulum
// linearization: zmp = com - (com_height / g) * com_acceleration.
func ZMP(com Pose2D, comAcceleration Pose2D, comHeight float64) Pose2D {
	const g = 9.81
	ratio := comHeight / g
	return Pose2D{
		X: com.X - ratio*comAcceleration.X,
		Y: com.Y - ratio*comAcceleration.Y,
	}
}

// CatchParams configures how far and how fast a Balancing re-plan may
// adjust the current step's end-feet toward the ZMP's projection.
type CatchParams struct {
	MaxAdjustmentMagnitude float64
	MaxAdjustmentDelta     float64
	// OverEstimationGain lets the correction overshoot the raw excursion,
	// since catching late is worse than catching early.
	OverEstimationGain float64
}

// ReplanForCatch nudges the swing foot's end pose toward the ZMP
// projection when the ZMP has left the support polygon, clamped by the
// configured adjustment magnitude and by how much the adjustment may
// change from the previous tick's adjustment.
func ReplanForCatch(plan StepPlan, zmp Pose2D, polygon SupportPolygon, previousAdjustment Pose2D, p CatchParams) (newPlan StepPlan, adjustment Pose2D) {
	if polygon.Contains(zmp) {
		return plan, Pose2D{}
	}

	excursionX := excursion(zmp.X, polygon.MinX, polygon.MaxX)
	excursionY := excursion(zmp.Y, polygon.MinY, polygon.MaxY)

	target := Pose2D{
		X: clampAbs(excursionX*p.OverEstimationGain, p.MaxAdjustmentMagnitude),
		Y: clampAbs(excursionY*p.OverEstimationGain, p.MaxAdjustmentMagnitude),
	}

	adjustment = Pose2D{
		X: clampDelta(target.X, previousAdjustment.X, p.MaxAdjustmentDelta),
		Y: clampDelta(target.Y, previousAdjustment.Y, p.MaxAdjustmentDelta),
	}

	swingSide := plan.SupportSide.Opposite()
	swingEnd := plan.EndFeet.ForSide(swingSide)
	swingEnd.X += adjustment.X
	swingEnd.Y += adjustment.Y

	newPlan = plan
	newPlan.EndFeet = plan.EndFeet.WithSide(swingSide, swingEnd)
	return newPlan, adjustment
}

func excursion(v, min, max float64) float64 {
	if v < min {
		return v - min
	}
	if v > max {
		return v - max
	}
	return 0
}

// ZMPOutsidePolygon reports whether the computed ZMP lies outside the
// support polygon, the trigger condition for entering Balancing.
func ZMPOutsidePolygon(zmp Pose2D, polygon SupportPolygon) bool {
	return !polygon.Contains(zmp)
}
