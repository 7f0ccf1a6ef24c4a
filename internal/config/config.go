// Package config loads the simulation configuration from YAML. Every
// engine receives its own section at construction; nothing reads config
// through globals.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/senses"
	"github.com/talgya/crowdsense/internal/vision"
)

// Config is the complete run configuration.
type Config struct {
	Simulation  Simulation               `yaml:"simulation"`
	World       World                    `yaml:"world"`
	Propagation events.PropagationConfig `yaml:"propagation"`
	Vision      Vision                   `yaml:"vision"`
	Perception  Perception               `yaml:"perception"`
	Storage     Storage                  `yaml:"storage"`
	API         API                      `yaml:"api"`

	// Knowledge and Scenario are file paths, relative to the config file.
	Knowledge string `yaml:"knowledge"`
	Scenario  string `yaml:"scenario"`
}

// Simulation configures the cycle scheduler and the generated crowd.
type Simulation struct {
	Seed       int64   `yaml:"seed"` // 0 = random
	MinCycleMS int     `yaml:"min_cycle_ms"`
	MaxCycles  uint64  `yaml:"max_cycles"` // 0 = run until stopped
	Workers    int     `yaml:"workers"`    // 0 = GOMAXPROCS
	CellSize   float64 `yaml:"cell_size"`
	Crowd      int     `yaml:"crowd"` // generated agents, in addition to scenario agents
	Gatherings int     `yaml:"gatherings"`
}

// MinCycle returns the minimum cycle duration.
func (s Simulation) MinCycle() time.Duration {
	return time.Duration(s.MinCycleMS) * time.Millisecond
}

// World configures generated environment objects.
type World struct {
	Extent        float64 `yaml:"extent"`
	ObjectDensity float64 `yaml:"object_density"`
	ObjectSpacing float64 `yaml:"object_spacing"`
}

// Vision holds ray settings and the eyesight given to generated agents.
type Vision struct {
	vision.Config      `yaml:",inline"`
	Algorithm          vision.Algorithm `yaml:"algorithm"`
	FOVDeg             float64          `yaml:"fov_deg"`
	VerticalHalfFOVDeg float64          `yaml:"vertical_half_fov_deg"`
	VisibleDistance    float64          `yaml:"visible_distance"`
	EyeHeight          float64          `yaml:"eye_height"`
}

// Perception holds source comparison thresholds and per-sense settings.
type Perception struct {
	perception.Config `yaml:",inline"`
	Senses            senses.Config `yaml:"senses"`
}

// Storage configures persistence and tracing. Empty paths disable them.
type Storage struct {
	DBPath   string `yaml:"db_path"`
	TraceDir string `yaml:"trace_dir"`
}

// API configures the HTTP server. Port 0 disables it.
type API struct {
	Port int `yaml:"port"`
	// AdminKeyEnv names the environment variable holding the bearer token
	// for write endpoints.
	AdminKeyEnv string `yaml:"admin_key_env"`
	MaxStreams  int    `yaml:"max_streams"`
}

// Default returns a configuration that runs without any file.
func Default() Config {
	return Config{
		Simulation: Simulation{
			Seed:       0,
			MinCycleMS: 100,
			CellSize:   10,
			Crowd:      200,
			Gatherings: 3,
		},
		World: World{
			Extent:        100,
			ObjectDensity: 0.15,
			ObjectSpacing: 8,
		},
		Propagation: events.DefaultPropagationConfig(),
		Vision: Vision{
			Config:             vision.DefaultConfig(),
			Algorithm:          vision.Standard,
			FOVDeg:             120,
			VerticalHalfFOVDeg: 40,
			VisibleDistance:    50,
			EyeHeight:          1.7,
		},
		Perception: Perception{
			Config: perception.DefaultConfig(),
			Senses: senses.DefaultConfig(),
		},
		API: API{
			Port:        0,
			AdminKeyEnv: "CROWDSIM_ADMIN_KEY",
			MaxStreams:  50,
		},
	}
}

// Load reads a YAML file over Default and validates the result. Relative
// knowledge and scenario paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.Knowledge = resolve(dir, cfg.Knowledge)
	cfg.Scenario = resolve(dir, cfg.Scenario)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := c.Simulation
	check(s.MinCycleMS >= 0, "simulation.min_cycle_ms must be >= 0, got %d", s.MinCycleMS)
	check(s.Workers >= 0, "simulation.workers must be >= 0, got %d", s.Workers)
	check(s.CellSize > 0, "simulation.cell_size must be > 0, got %v", s.CellSize)
	check(s.Crowd >= 0, "simulation.crowd must be >= 0, got %d", s.Crowd)
	check(s.Crowd == 0 || s.Gatherings > 0, "simulation.gatherings must be > 0 when crowd is set")

	w := c.World
	check(w.Extent > 0, "world.extent must be > 0, got %v", w.Extent)
	check(w.ObjectDensity >= 0 && w.ObjectDensity <= 1, "world.object_density must be in [0,1], got %v", w.ObjectDensity)
	check(w.ObjectSpacing > 0, "world.object_spacing must be > 0, got %v", w.ObjectSpacing)

	p := c.Propagation
	check(p.SpeedOfSound > 0, "propagation.speed_of_sound must be > 0, got %v", p.SpeedOfSound)
	check(p.MaxSoundDistance > 0, "propagation.max_sound_distance must be > 0, got %v", p.MaxSoundDistance)
	check(p.SpeedOfSmell > 0, "propagation.speed_of_smell must be > 0, got %v", p.SpeedOfSmell)
	check(p.MaxSmellDistance > 0, "propagation.max_smell_distance must be > 0, got %v", p.MaxSmellDistance)

	v := c.Vision
	check(v.FOVDeg > 0 && v.FOVDeg < 180, "vision.fov_deg must be in (0,180), got %v", v.FOVDeg)
	check(v.VerticalHalfFOVDeg > 0 && v.VerticalHalfFOVDeg < 90, "vision.vertical_half_fov_deg must be in (0,90), got %v", v.VerticalHalfFOVDeg)
	check(v.VisibleDistance > 0, "vision.visible_distance must be > 0, got %v", v.VisibleDistance)
	check(v.EyeHeight >= 0, "vision.eye_height must be >= 0, got %v", v.EyeHeight)
	check(v.Rings >= 1, "vision.rings must be >= 1, got %d", v.Rings)
	check(v.RaysPerRing >= 1, "vision.rays_per_ring must be >= 1, got %d", v.RaysPerRing)
	check(v.SampleSize >= 1, "vision.sample_size must be >= 1, got %d", v.SampleSize)

	pc := c.Perception
	check(pc.SameSourceDistance > 0, "perception.same_source_distance must be > 0, got %v", pc.SameSourceDistance)
	check(pc.SameSourceAngleDeg > 0, "perception.same_source_angle_deg must be > 0, got %v", pc.SameSourceAngleDeg)
	for _, ch := range []struct {
		name string
		senses.Channel
	}{
		{"vision", pc.Senses.Vision}, {"hearing", pc.Senses.Hearing}, {"smell", pc.Senses.Smell},
	} {
		check(ch.Trust > 0 && ch.Trust <= 1, "perception.senses.%s.trust must be in (0,1], got %v", ch.name, ch.Trust)
		check(ch.Noise >= 0, "perception.senses.%s.noise must be >= 0, got %v", ch.name, ch.Noise)
	}

	check(c.API.Port >= 0 && c.API.Port <= 65535, "api.port out of range: %d", c.API.Port)
	check(c.API.MaxStreams >= 0, "api.max_streams must be >= 0, got %d", c.API.MaxStreams)

	return errors.Join(errs...)
}
