package motion

// KickLibrary maps a variant to its ordered sequence of kick-steps. A
// real deployment loads these from gait.Presets; tests and the default
// engine construction can supply a minimal built-in library.
type KickLibrary map[KickVariant][]KickStep

// NewKickState starts a kick state machine for the requested variant and
// side, using the steps from lib. Callers should clamp each step's
// BaseStep through Clamp before planning it, the same as any other
// requested step.
func NewKickState(variant KickVariant, side Side, lib KickLibrary) *KickState {
	steps := lib[variant]
	return &KickState{Variant: variant, Side: side, Steps: steps}
}

// KickStepRequest returns the requested Step for the kick's current
// kick-step, mirrored if the kick is being performed with the right foot
// (the library is authored for the left foot by convention).
func (k *KickState) KickStepRequest() Step {
	step := k.Current().BaseStep
	if k.Side == Right {
		step = step.Mirror()
	}
	return step
}
