// Package settings loads the daemon's tunables from a YAML file. A missing
// file means defaults; a malformed one is an error.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/orbweaver/pkg/physics"
)

// Engine holds loop cadence and accelerator wiring. Intervals are plain
// milliseconds so the file stays hand-editable.
type Engine struct {
	PhysicsEnabled      bool `yaml:"physics_enabled"`
	AcceleratorEnabled  bool `yaml:"accelerator_enabled"`
	AcceleratorWorkers  int  `yaml:"accelerator_workers"`
	TickIntervalMS      int  `yaml:"tick_interval_ms"`
	BroadcastIntervalMS int  `yaml:"broadcast_interval_ms"`
	CacheTTLMS          int  `yaml:"cache_ttl_ms"`
	UpdateIntervalMS    int  `yaml:"update_interval_ms"`
}

// TickInterval returns the physics loop cadence.
func (e Engine) TickInterval() time.Duration {
	return time.Duration(e.TickIntervalMS) * time.Millisecond
}

// BroadcastInterval returns the secondary broadcast loop cadence.
func (e Engine) BroadcastInterval() time.Duration {
	return time.Duration(e.BroadcastIntervalMS) * time.Millisecond
}

// CacheTTL returns the position cache window.
func (e Engine) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLMS) * time.Millisecond
}

// UpdateInterval returns the external-update rate floor.
func (e Engine) UpdateInterval() time.Duration {
	return time.Duration(e.UpdateIntervalMS) * time.Millisecond
}

// Settings is the full settings file.
type Settings struct {
	Physics physics.SimulationParams `yaml:"physics"`
	Engine  Engine                   `yaml:"engine"`
}

// Default returns the settings used when no file overrides them.
func Default() Settings {
	return Settings{
		Physics: physics.DefaultParams(),
		Engine: Engine{
			PhysicsEnabled:      true,
			AcceleratorEnabled:  true,
			AcceleratorWorkers:  0, // 0 means GOMAXPROCS
			TickIntervalMS:      16,
			BroadcastIntervalMS: 100,
			CacheTTLMS:          50,
			UpdateIntervalMS:    16,
		},
	}
}

// Load reads settings from path, layering the file's values over the
// defaults. A missing file returns the defaults unchanged.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, nil
}
