// Package perception combines one agent's raw per-sense stimuli into a small
// set of recognized events. Each cycle runs four ordered levels: basic
// combination against the knowledge base, cross-validation of candidate
// interpretations, cross-cycle combination (reserved), and greedy
// selection of distinct events.
package perception

import (
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
)

// Source locates a stimulus: an absolute origin, a direction from the
// perceiving agent, or both.
type Source struct {
	Origin    *geom.Vec3 `json:"origin,omitempty"`
	Direction *geom.Vec3 `json:"direction,omitempty"`
}

// merge fills whichever of s's fields are missing from o.
func (s Source) merge(o Source) Source {
	if s.Origin == nil && o.Origin != nil {
		s.Origin = o.Origin
	}
	if s.Direction == nil && o.Direction != nil {
		s.Direction = o.Direction
	}
	return s
}

// SensedData is one single-sense stimulus captured in one cycle.
type SensedData struct {
	Cycle     uint64       `json:"cycle"`
	Type      string       `json:"type"`
	Sense     events.Sense `json:"sense"`
	Value     float64      `json:"value"`
	Certainty float64      `json:"certainty"` // sensor confidence, percent
	Trust     float64      `json:"trust"`
	Intensity float64      `json:"intensity"`
	Source
}

// Candidate is one interpretation of a stimulus.
type Candidate struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Certainty float64 `json:"certainty"`
}

// MaxCandidates is how many ranked interpretations a stimulus keeps.
const MaxCandidates = 3

// ReasonedData is a stimulus with its ranked interpretations, best first.
type ReasonedData struct {
	Sense      events.Sense             `json:"sense"`
	Type       string                   `json:"type"`
	Candidates [MaxCandidates]Candidate `json:"-"`
	N          int                      `json:"-"`
	Intensity  float64                  `json:"intensity"`
	Source
}

// Ranked returns the filled candidate slots.
func (r ReasonedData) Ranked() []Candidate {
	return r.Candidates[:r.N]
}

// CombinedReasonedData is one candidate real-world event assembled from the
// stimuli that agree with it.
type CombinedReasonedData struct {
	Name      string  `json:"name"`
	Certainty float64 `json:"certainty"`
	Intensity float64 `json:"intensity"`
	// Matched counts expected properties found; Expected is the event's
	// total expected property count.
	Matched  int `json:"matched"`
	Expected int `json:"expected"`
	// Rank is the candidate slot this interpretation came from.
	Rank int `json:"rank"`
	// EventNumber is the estimated distinct-event count this cycle.
	EventNumber int `json:"event_number"`
	Source
}
