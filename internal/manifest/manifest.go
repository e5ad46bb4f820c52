// Package manifest loads the cycler configuration manifest: the static
// declaration of which cyclers exist, what kind each is, and which nodes
// run in its setup and cycle phases. It is read once at startup by
// cmd/motioncore.
//
// Loading goes through its own viper.Viper instance per call; a shared
// global viper across configs risks one load's settings leaking into
// another's.
package manifest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Kind mirrors cycler.Kind as a manifest-friendly string so the TOML file
// never needs to know the runtime's integer encoding.
type Kind string

const (
	KindRealTime   Kind = "real_time"
	KindPerception Kind = "perception"
)

// CyclerSpec describes one cycler entry in the manifest.
type CyclerSpec struct {
	Name          string   `mapstructure:"name"`
	Kind          Kind     `mapstructure:"kind"`
	PeriodMillis  int      `mapstructure:"period_ms"`
	SetupNodes    []string `mapstructure:"setup_nodes"`
	CycleNodes    []string `mapstructure:"cycle_nodes"`
	Subscriptions []string `mapstructure:"subscriptions"`
}

// Period returns the configured tick period as a time.Duration.
func (c CyclerSpec) Period() time.Duration {
	return time.Duration(c.PeriodMillis) * time.Millisecond
}

// Manifest is the full set of cycler declarations loaded from one file.
type Manifest struct {
	Cyclers []CyclerSpec `mapstructure:"cyclers"`
}

// Load reads a TOML manifest file and validates that every cycler name is
// unique and every subscription refers to a cycler that actually exists.
func Load(path string) (*Manifest, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("toml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("manifest: read config: %w", err)
	}

	m := &Manifest{}
	if err := vp.Unmarshal(m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	names := make(map[string]bool, len(m.Cyclers))
	for _, c := range m.Cyclers {
		if names[c.Name] {
			return fmt.Errorf("manifest: duplicate cycler name %q", c.Name)
		}
		names[c.Name] = true
	}
	for _, c := range m.Cyclers {
		for _, sub := range c.Subscriptions {
			if !names[sub] {
				return fmt.Errorf("manifest: cycler %q subscribes to unknown cycler %q", c.Name, sub)
			}
		}
	}
	return nil
}

// Find returns the cycler spec with the given name, if present.
func (m *Manifest) Find(name string) (CyclerSpec, bool) {
	for _, c := range m.Cyclers {
		if c.Name == name {
			return c, true
		}
	}
	return CyclerSpec{}, false
}
