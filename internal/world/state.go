package world

import (
	"fmt"

	"github.com/talgya/crowdsense/internal/geom"
)

// AgentID uniquely identifies an agent within a run.
type AgentID uint64

// ObjectID uniquely identifies an environment object within a run.
type ObjectID uint64

// AgentState is the externally observable state of an agent.
type AgentState struct {
	ID       AgentID   `json:"id"`
	Name     string    `json:"name"`
	Position  geom.Vec3 `json:"position"`
	Heading   geom.Vec3 `json:"heading"`
	EyeHeight float64   `json:"eye_height,omitempty"`
}

// Eye returns the point other agents look at: eye height above Position.
func (a AgentState) Eye() geom.Vec3 {
	return a.Position.Add(geom.V(0, a.EyeHeight, 0))
}

// ObjectState is a static environment object such as a building, a tree or
// a tent.
type ObjectState struct {
	ID   ObjectID  `json:"id"`
	Name string    `json:"name"`
	Box  geom.AABB `json:"box"`
	// Collidable objects block movement; a non-collidable object can
	// contain an agent.
	Collidable bool `json:"collidable"`
	// Obstructing objects take part in occlusion resolution.
	Obstructing bool `json:"obstructing"`
}

func (o ObjectState) String() string {
	return fmt.Sprintf("%s#%d", o.Name, o.ID)
}
