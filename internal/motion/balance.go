package motion

import "math"

// GyroFilter is a simple exponential low-pass filter over the IMU's
// angular velocity, state carried across ticks by the walking engine's
// cycler state.
type GyroFilter struct {
	alpha    float64
	filtered hardwareVector3
}

type hardwareVector3 struct{ X, Y, Z float64 }

// NewGyroFilter returns a filter with the given smoothing factor in
// (0, 1]; smaller alpha means heavier smoothing.
func NewGyroFilter(alpha float64) *GyroFilter {
	return &GyroFilter{alpha: alpha}
}

// Update folds in a new angular-velocity sample and returns the filtered
// value.
func (g *GyroFilter) Update(x, y, z float64) (fx, fy, fz float64) {
	g.filtered.X += g.alpha * (x - g.filtered.X)
	g.filtered.Y += g.alpha * (y - g.filtered.Y)
	g.filtered.Z += g.alpha * (z - g.filtered.Z)
	return g.filtered.X, g.filtered.Y, g.filtered.Z
}

// GyroBalanceParams configures the ankle (and optionally hip) correction
// proportional to filtered angular velocity.
type GyroBalanceParams struct {
	AnklePitchFactor float64
	AnkleRollFactor  float64
	HipPitchFactor   float64
	MaxAnkleDelta    float64
	MaxHipDelta      float64
}

// GyroCorrection is the per-joint correction gyro balancing adds to the
// support leg.
type GyroCorrection struct {
	AnklePitch float64
	AnkleRoll  float64
	HipPitch   float64
}

// GyroBalance computes the support-leg correction from filtered gyro
// pitch/roll, clamped to the configured maximum delta.
func GyroBalance(filteredPitch, filteredRoll float64, p GyroBalanceParams) GyroCorrection {
	return GyroCorrection{
		AnklePitch: clampAbs(filteredPitch*p.AnklePitchFactor, p.MaxAnkleDelta),
		AnkleRoll:  clampAbs(filteredRoll*p.AnkleRollFactor, p.MaxAnkleDelta),
		HipPitch:   clampAbs(filteredPitch*p.HipPitchFactor, p.MaxHipDelta),
	}
}

// FootLevelingParams configures the swing-foot ankle bias toward level
// ground, disabled as the step nears its support switch.
type FootLevelingParams struct {
	PitchFactor, RollFactor float64
	MaxDelta                float64
	// DisableAfterFraction: leveling is zeroed once step fraction p exceeds
	// this value, so the swing foot doesn't fight the upcoming landing.
	DisableAfterFraction float64
}

// FootLeveling computes the swing-foot ankle bias from torso IMU
// pitch/roll at step fraction p.
func FootLeveling(torsoPitch, torsoRoll, p float64, params FootLevelingParams) (pitchBias, rollBias float64) {
	if p > params.DisableAfterFraction {
		return 0, 0
	}
	pitchBias = clampAbs(torsoPitch*params.PitchFactor, params.MaxDelta)
	rollBias = clampAbs(torsoRoll*params.RollFactor, params.MaxDelta)
	return
}

// ArmSwingParams configures how the arms mirror the opposite leg's swing
// phase.
type ArmSwingParams struct {
	Amplitude float64
}

// ArmSwing returns the shoulder pitch offset for the arm opposite the
// swing leg, as a function of step fraction p: the arm swings forward as
// the opposing leg swings forward, and back as it returns.
func ArmSwing(p float64, params ArmSwingParams) float64 {
	return params.Amplitude * math.Sin(2*math.Pi*p)
}

func clampAbs(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}
