// Package gait loads named gait and kick-step presets from a YAML file,
// using its own viper.Viper instance per load rather than a shared
// global one.
package gait

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/hulks-go/motioncore/internal/motion"
)

// StepGeometryPreset mirrors motion.StepGeometry in YAML-friendly form.
type StepGeometryPreset struct {
	LeftFootBaseOffsetX  float64 `mapstructure:"left_foot_base_offset_x"`
	LeftFootBaseOffsetY  float64 `mapstructure:"left_foot_base_offset_y"`
	RightFootBaseOffsetX float64 `mapstructure:"right_foot_base_offset_x"`
	RightFootBaseOffsetY float64 `mapstructure:"right_foot_base_offset_y"`
	StepDuration         float64 `mapstructure:"step_duration"`
	FootLiftApex         float64 `mapstructure:"foot_lift_apex"`
	Midpoint             float64 `mapstructure:"midpoint"`
}

// ToGeometry converts the preset to the runtime's StepGeometry.
func (p StepGeometryPreset) ToGeometry() motion.StepGeometry {
	return motion.StepGeometry{
		LeftFootBaseOffset:  motion.Pose2D{X: p.LeftFootBaseOffsetX, Y: p.LeftFootBaseOffsetY},
		RightFootBaseOffset: motion.Pose2D{X: p.RightFootBaseOffsetX, Y: p.RightFootBaseOffsetY},
		StepDuration:        p.StepDuration,
		FootLiftApex:        p.FootLiftApex,
		Midpoint:            p.Midpoint,
	}
}

// KickStepPreset mirrors motion.KickStep in YAML-friendly form.
type KickStepPreset struct {
	StepDuration    float64 `mapstructure:"step_duration"`
	FootLiftApex    float64 `mapstructure:"foot_lift_apex"`
	Midpoint        float64 `mapstructure:"midpoint"`
	BaseStepForward float64 `mapstructure:"base_step_forward"`
	BaseStepLeft    float64 `mapstructure:"base_step_left"`
	BaseStepTurn    float64 `mapstructure:"base_step_turn"`
}

// ToKickStep converts the preset to the runtime's KickStep.
func (p KickStepPreset) ToKickStep() motion.KickStep {
	return motion.KickStep{
		StepDuration: p.StepDuration,
		FootLiftApex: p.FootLiftApex,
		Midpoint:     p.Midpoint,
		BaseStep: motion.Step{
			Forward: p.BaseStepForward,
			Left:    p.BaseStepLeft,
			Turn:    p.BaseStepTurn,
		},
	}
}

// Presets is the full set of gait and kick presets a deployment can pick
// from, loaded from YAML.
type Presets struct {
	WalkGeometry StepGeometryPreset          `mapstructure:"walk_geometry"`
	Kicks        map[string][]KickStepPreset `mapstructure:"kicks"`
}

// Load reads presets from path.
func Load(path string) (*Presets, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("gait: read config: %w", err)
	}

	p := &Presets{}
	if err := vp.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("gait: decode: %w", err)
	}
	return p, nil
}

// KickLibrary converts the loaded kick presets into a motion.KickLibrary,
// keyed by the variant names "forward", "turn", and "side".
func (p *Presets) KickLibrary() motion.KickLibrary {
	lib := motion.KickLibrary{}
	names := map[string]motion.KickVariant{
		"forward": motion.KickForward,
		"turn":    motion.KickTurn,
		"side":    motion.KickSide,
	}
	for name, variant := range names {
		steps := p.Kicks[name]
		converted := make([]motion.KickStep, len(steps))
		for i, s := range steps {
			converted[i] = s.ToKickStep()
		}
		lib[variant] = converted
	}
	return lib
}
