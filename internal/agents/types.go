// Package agents provides the crowd agent: its body, its viewpoint, and the
// per-cycle perception pipeline that fills its short-term knowledge.
package agents

import (
	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/knowledge"
	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/senses"
	"github.com/talgya/crowdsense/internal/vision"
	"github.com/talgya/crowdsense/internal/world"
)

// AgentID is a unique identifier for an agent.
type AgentID = world.AgentID

// Body holds an agent's placement and eyesight.
type Body struct {
	Position           geom.Vec3        `json:"position" yaml:"position"`
	Heading            geom.Vec3        `json:"heading" yaml:"heading"`
	EyeHeight          float64          `json:"eye_height" yaml:"eye_height"`
	FOVDeg             float64          `json:"fov_deg" yaml:"fov_deg"`
	VerticalHalfFOVDeg float64          `json:"vertical_half_fov_deg" yaml:"vertical_half_fov_deg"`
	VisibleDistance    float64          `json:"visible_distance" yaml:"visible_distance"`
	Vision             vision.Algorithm `json:"vision" yaml:"vision"`
}

// Pipeline is the read-only machinery shared by every agent.
type Pipeline struct {
	Resolver   *vision.Resolver
	Sensor     *senses.Sensor
	Knowledge  *knowledge.Base
	Perception perception.Config
}

// Agent is one member of the crowd.
type Agent struct {
	ID   AgentID `json:"id"`
	Name string  `json:"name"`
	Body

	// Memory is refilled every cycle by Perceive and CombinePerceptions.
	Memory KnowledgeStore `json:"memory"`

	pipe   *Pipeline
	engine *perception.Engine
	rng    *entropy.Source
}

// NewAgent creates an agent whose random stream derives from seed and id.
func NewAgent(id AgentID, name string, body Body, pipe *Pipeline, seed int64) *Agent {
	return &Agent{
		ID:     id,
		Name:   name,
		Body:   body,
		pipe:   pipe,
		engine: perception.NewEngine(pipe.Perception, pipe.Knowledge),
		rng:    entropy.NewSource(seed, uint64(id)),
	}
}

// State returns the externally observable state.
func (a *Agent) State() world.AgentState {
	return world.AgentState{
		ID:        a.ID,
		Name:      a.Name,
		Position:  a.Position,
		Heading:   a.Heading,
		EyeHeight: a.EyeHeight,
	}
}

// Pose returns the viewpoint vision works from.
func (a *Agent) Pose() vision.Pose {
	return vision.Pose{
		Position:           a.Eye(),
		Heading:            a.Heading,
		FOVDeg:             a.FOVDeg,
		VerticalHalfFOVDeg: a.VerticalHalfFOVDeg,
		VisibleDistance:    a.VisibleDistance,
	}
}

// Eye returns the eye position.
func (a *Agent) Eye() geom.Vec3 {
	return a.Position.Add(geom.V(0, a.EyeHeight, 0))
}

// Engine exposes the agent's combination engine for inspection.
func (a *Agent) Engine() *perception.Engine {
	return a.engine
}
