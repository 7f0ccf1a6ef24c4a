package engine

import (
	"time"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/perception"
)

// CycleStats tracks aggregate figures for one cycle.
type CycleStats struct {
	Cycle      uint64        `json:"cycle"`
	Duration   time.Duration `json:"duration_ns"`
	Agents     int           `json:"agents"`
	LiveEvents int           `json:"live_events"`
	Created    int           `json:"created"`
	Expired    int           `json:"expired"`
	Sensed     int           `json:"sensed"`   // raw stimuli across all agents
	Resolved   int           `json:"resolved"` // events recognized across all agents
}

// Recognition is one event an agent resolved in one cycle.
type Recognition struct {
	Cycle     uint64         `json:"cycle"`
	Agent     agents.AgentID `json:"agent"`
	Event     string         `json:"event"`
	Certainty float64        `json:"certainty"`
	Matched   int            `json:"matched"`
	Expected  int            `json:"expected"`
	perception.Source
}

// CycleReport is everything that happened in one cycle.
type CycleReport struct {
	Stats        CycleStats       `json:"stats"`
	Recognitions []Recognition    `json:"recognitions"`
	Created      []*events.Event  `json:"created,omitempty"`
	Expired      []events.EventID `json:"expired,omitempty"`
}
