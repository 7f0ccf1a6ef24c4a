// Package scenario loads hand-authored runs: placed agents and objects, and
// event-creation commands scheduled by cycle.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/vision"
	"github.com/talgya/crowdsense/internal/world"
)

// Scenario is a loaded scenario file.
type Scenario struct {
	Name     string       `yaml:"name"`
	Agents   []AgentSpec  `yaml:"agents"`
	Objects  []ObjectSpec `yaml:"objects"`
	Triggers []Trigger    `yaml:"events"`
}

// AgentSpec places one agent, or Count agents at the same spot. Unset
// eyesight fields fall back to the run's defaults.
type AgentSpec struct {
	Name               string            `yaml:"name"`
	Count              int               `yaml:"count"`
	Position           geom.Vec3         `yaml:"position"`
	Heading            *geom.Vec3        `yaml:"heading"`
	FOVDeg             *float64          `yaml:"fov_deg"`
	VerticalHalfFOVDeg *float64          `yaml:"vertical_half_fov_deg"`
	VisibleDistance    *float64          `yaml:"visible_distance"`
	EyeHeight          *float64          `yaml:"eye_height"`
	Vision             *vision.Algorithm `yaml:"vision"`
}

// Body applies the overrides over defaults.
func (s AgentSpec) Body(defaults agents.Body) agents.Body {
	b := defaults
	b.Position = s.Position
	if s.Heading != nil {
		b.Heading = *s.Heading
	} else {
		b.Heading = geom.Vec3{}
	}
	if s.FOVDeg != nil {
		b.FOVDeg = *s.FOVDeg
	}
	if s.VerticalHalfFOVDeg != nil {
		b.VerticalHalfFOVDeg = *s.VerticalHalfFOVDeg
	}
	if s.VisibleDistance != nil {
		b.VisibleDistance = *s.VisibleDistance
	}
	if s.EyeHeight != nil {
		b.EyeHeight = *s.EyeHeight
	}
	if s.Vision != nil {
		b.Vision = *s.Vision
	}
	return b
}

// ObjectSpec places one environment object.
type ObjectSpec struct {
	Name        string    `yaml:"name"`
	Min         geom.Vec3 `yaml:"min"`
	Max         geom.Vec3 `yaml:"max"`
	Collidable  bool      `yaml:"collidable"`
	Obstructing bool      `yaml:"obstructing"`
}

// Trigger schedules an event-creation command for a cycle.
type Trigger struct {
	Cycle                uint64 `yaml:"cycle"`
	events.CreateCommand `yaml:",inline"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("loading scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document. Triggers are returned
// sorted by cycle, keeping file order within a cycle.
func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Triggers, func(i, j int) bool {
		return s.Triggers[i].Cycle < s.Triggers[j].Cycle
	})
	return &s, nil
}

func (s *Scenario) validate() error {
	var errs []error
	for i, a := range s.Agents {
		if a.Count < 0 {
			errs = append(errs, fmt.Errorf("agents[%d]: count must be >= 0", i))
		}
		if a.FOVDeg != nil && (*a.FOVDeg <= 0 || *a.FOVDeg >= 180) {
			errs = append(errs, fmt.Errorf("agents[%d]: fov_deg must be in (0,180)", i))
		}
		if a.VisibleDistance != nil && *a.VisibleDistance <= 0 {
			errs = append(errs, fmt.Errorf("agents[%d]: visible_distance must be > 0", i))
		}
	}
	for i, o := range s.Objects {
		size := o.Max.Sub(o.Min)
		if size.X == 0 || size.Y == 0 || size.Z == 0 {
			errs = append(errs, fmt.Errorf("objects[%d] %s: box has zero extent", i, o.Name))
		}
	}
	for i, t := range s.Triggers {
		if t.Intensity < 0 {
			errs = append(errs, fmt.Errorf("events[%d]: intensity must be >= 0", i))
		}
	}
	return errors.Join(errs...)
}

// WorldObjects converts the object specs, numbering IDs from firstID.
func (s *Scenario) WorldObjects(firstID world.ObjectID) []world.ObjectState {
	out := make([]world.ObjectState, 0, len(s.Objects))
	for i, o := range s.Objects {
		out = append(out, world.ObjectState{
			ID:          firstID + world.ObjectID(i),
			Name:        o.Name,
			Box:         geom.AABB{Min: o.Min, Max: o.Max}.Normalized(),
			Collidable:  o.Collidable,
			Obstructing: o.Obstructing,
		})
	}
	return out
}

// Spawn creates the scenario's agents.
func (s *Scenario) Spawn(sp *agents.Spawner, defaults agents.Body) []*agents.Agent {
	var out []*agents.Agent
	for _, a := range s.Agents {
		n := max(a.Count, 1)
		for i := 0; i < n; i++ {
			name := a.Name
			if n > 1 && name != "" {
				name = fmt.Sprintf("%s %d", a.Name, i+1)
			}
			out = append(out, sp.Spawn(name, a.Body(defaults)))
		}
	}
	return out
}

// Schedule groups triggers by cycle.
func (s *Scenario) Schedule() map[uint64][]events.CreateCommand {
	out := make(map[uint64][]events.CreateCommand)
	for _, t := range s.Triggers {
		out[t.Cycle] = append(out[t.Cycle], t.CreateCommand)
	}
	return out
}
