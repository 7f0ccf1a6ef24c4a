package engine

import (
	"sort"

	"github.com/samber/lo"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/world"
)

// Status is a point-in-time summary of the simulation.
type Status struct {
	Cycle       uint64     `json:"cycle"`
	Agents      int        `json:"agents"`
	Objects     int        `json:"objects"`
	Gatherings  int        `json:"gatherings"`
	LiveEvents  int        `json:"live_events"`
	Pending     int        `json:"pending_commands"`
	Subscribers int        `json:"subscribers"`
	Last        CycleStats `json:"last_cycle"`
}

// AgentView is a consistent copy of one agent's state and knowledge.
type AgentView struct {
	ID     agents.AgentID        `json:"id"`
	Name   string                `json:"name"`
	Body   agents.Body           `json:"body"`
	Memory agents.KnowledgeStore `json:"memory"`
}

// CurrentCycle returns the most recently completed cycle.
func (s *Simulation) CurrentCycle() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCycle
}

// Status summarizes the simulation.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	st := Status{
		Cycle:      s.lastCycle,
		Agents:     len(s.agents),
		Objects:    s.objects.Len(),
		Gatherings: len(s.gatherings),
		LiveEvents: len(s.events),
		Last:       s.stats,
	}
	s.mu.RUnlock()

	s.queueMu.Lock()
	st.Pending = len(s.queue)
	s.queueMu.Unlock()
	st.Subscribers = s.Subscribers()
	return st
}

// Events returns copies of the live events, ordered by ID.
func (s *Simulation) Events() []*events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Map(s.events, func(e *events.Event, _ int) *events.Event { return e.Clone() })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Agents returns the externally observable state of every agent.
func (s *Simulation) Agents() []world.AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.agents, func(a *agents.Agent, _ int) world.AgentState { return a.State() })
}

// Agent returns one agent's view, or false if the ID is unknown.
func (s *Simulation) Agent(id agents.AgentID) (AgentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agentIndex[id]
	if !ok {
		return AgentView{}, false
	}
	return AgentView{ID: a.ID, Name: a.Name, Body: a.Body, Memory: a.Memory.Clone()}, true
}

// Gatherings returns the gathering points.
func (s *Simulation) Gatherings() []world.Gathering {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]world.Gathering(nil), s.gatherings...)
}

// Recent returns up to limit of the latest recognitions, oldest first,
// optionally restricted to one event name.
func (s *Simulation) Recent(limit int, event string) []Recognition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.recent
	if event != "" {
		recs = lo.Filter(recs, func(r Recognition, _ int) bool { return r.Event == event })
	}
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	return append([]Recognition(nil), recs...)
}
