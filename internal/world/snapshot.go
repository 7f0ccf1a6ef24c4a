package world

import (
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
)

// CellSnapshot is the read-only view of the environment handed to one agent
// for one AGENT phase.
type CellSnapshot struct {
	Cycle   uint64          `json:"cycle"`
	Agents  []AgentState    `json:"agents"`
	Objects []ObjectState   `json:"objects"`
	Events  []*events.Event `json:"events"`
}

// Frame is the per-cycle environment every snapshot is cut from. It is built
// once before the AGENT phase and only read while agents run.
type Frame struct {
	Cycle   uint64
	grid    *Grid
	objects *ObjectIndex
	events  []*events.Event
}

// NewFrame buckets agents into a fresh grid. evs are shared, not copied:
// the caller must not propagate them while the frame is in use.
func NewFrame(cycle uint64, cellSize float64, agents []AgentState, objects *ObjectIndex, evs []*events.Event) *Frame {
	g := NewGrid(cellSize)
	for _, a := range agents {
		g.Insert(a)
	}
	return &Frame{Cycle: cycle, grid: g, objects: objects, events: evs}
}

// SnapshotFor returns the agents and objects within visionReach of p, and
// the events whose reach covers p: visible events within visionReach,
// audible events within their sound radius, smellable events within their
// smell radius.
func (f *Frame) SnapshotFor(p geom.Vec3, visionReach float64) CellSnapshot {
	s := CellSnapshot{
		Cycle:   f.Cycle,
		Agents:  f.grid.Near(p, visionReach),
		Objects: f.objects.Within(p, visionReach),
	}
	for _, e := range f.events {
		if reaches(e, p, visionReach) {
			s.Events = append(s.Events, e)
		}
	}
	return s
}

// Grid exposes the frame's agent grid.
func (f *Frame) Grid() *Grid {
	return f.grid
}

func reaches(e *events.Event, p geom.Vec3, visionReach float64) bool {
	d := geom.Distance(e.Origin, p)
	switch {
	case e.IsCurrentlyVisible() && d <= visionReach:
		return true
	case e.IsCurrentlyAudible() && d <= e.SoundRadius:
		return true
	case e.IsCurrentlySmellable() && d <= e.SmellRadius:
		return true
	}
	return false
}
