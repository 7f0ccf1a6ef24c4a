// Simulation ties the crowd, the environment and the event lifecycle
// together and runs them each cycle.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/world"
)

// maxRecent bounds the recognitions kept for queries.
const maxRecent = 1000

// summaryEvery is how often, in cycles, a summary is logged.
const summaryEvery = 100

// ErrInvalidCommand is returned by Submit for commands that cannot create
// an event.
var ErrInvalidCommand = errors.New("invalid event command")

// Options configures a Simulation.
type Options struct {
	CellSize    float64
	Workers     int // 0 = GOMAXPROCS
	Propagation events.PropagationConfig
	Catalog     map[events.Kind]events.KindSpec // nil = events.DefaultCatalog
}

// Observer receives every completed cycle. Errors are logged and never
// abort the run.
type Observer interface {
	ObserveCycle(r *CycleReport) error
}

// Simulation holds the complete environment state. All exported methods
// are safe for concurrent use.
type Simulation struct {
	mu sync.RWMutex

	opts       Options
	agents     []*agents.Agent
	agentIndex map[agents.AgentID]*agents.Agent
	objects    *world.ObjectIndex
	gatherings []world.Gathering

	propagator  *events.Propagator
	events      []*events.Event
	nextEventID events.EventID
	schedule    map[uint64][]events.CreateCommand
	// Events created for cycle 0, reported with cycle 1.
	initial []*events.Event

	lastCycle uint64
	stats     CycleStats
	report    CycleReport
	recent    []Recognition
	observers []Observer

	// Submitted commands, guarded separately so Submit never waits on a
	// running phase.
	queueMu sync.Mutex
	queue   []events.CreateCommand

	hub hub
}

// NewSimulation creates a Simulation. Scheduled commands keyed by cycle c
// are applied in the ENVIRONMENT phase of cycle c; those for cycle 0 are
// applied here, so they are perceivable from cycle 1, and appear in the
// cycle 1 report.
func NewSimulation(opts Options, ag []*agents.Agent, objs []world.ObjectState, schedule map[uint64][]events.CreateCommand) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(ag))
	for _, a := range ag {
		index[a.ID] = a
	}
	if schedule == nil {
		schedule = make(map[uint64][]events.CreateCommand)
	}

	s := &Simulation{
		opts:        opts,
		agents:      ag,
		agentIndex:  index,
		objects:     world.NewObjectIndex(objs),
		propagator:  events.NewPropagator(opts.Propagation, opts.Catalog),
		nextEventID: 1,
		schedule:    schedule,
		hub:         hub{subs: make(map[int]chan CycleReport)},
	}
	s.initial = s.createEvents(0, schedule[0])
	return s
}

// SetGatherings records the gathering points crowds were spawned around.
func (s *Simulation) SetGatherings(g []world.Gathering) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gatherings = g
}

// AddObserver registers an observer for completed cycles.
func (s *Simulation) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Attach wires the simulation's phases into an engine.
func (s *Simulation) Attach(e *Engine) {
	e.OnAgents = s.AgentPhase
	e.OnEnvironment = s.EnvironmentPhase
	e.OnCycleDone = s.FinishCycle
}

// Submit queues an event-creation command. The event is created in the
// next ENVIRONMENT phase and is first perceivable in the cycle after it.
func (s *Simulation) Submit(cmd events.CreateCommand) error {
	if int(cmd.Kind) >= events.NumKinds {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, events.ErrUnknownKind)
	}
	if cmd.Intensity < 0 {
		return fmt.Errorf("%w: intensity must be >= 0", ErrInvalidCommand)
	}
	s.queueMu.Lock()
	s.queue = append(s.queue, cmd)
	s.queueMu.Unlock()
	return nil
}

// AgentPhase lets every agent perceive its cell and combine its
// perceptions. Agents run in parallel; each one touches only its own state
// and reads a frame built before the phase starts.
func (s *Simulation) AgentPhase(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]world.AgentState, len(s.agents))
	for i, a := range s.agents {
		states[i] = a.State()
	}
	frame := world.NewFrame(cycle, s.opts.CellSize, states, s.objects, s.events)

	var g errgroup.Group
	g.SetLimit(s.workers())
	for _, a := range s.agents {
		a := a
		g.Go(func() error {
			a.Perceive(frame.SnapshotFor(a.Eye(), a.VisibleDistance))
			a.CombinePerceptions()
			return nil
		})
	}
	_ = g.Wait()

	s.report = CycleReport{Stats: CycleStats{Cycle: cycle, Agents: len(s.agents)}}
	if len(s.initial) > 0 {
		s.report.Created = s.initial
		s.initial = nil
	}
	for _, a := range s.agents {
		s.report.Stats.Sensed += len(a.Engine().Sensed())
		for _, ev := range a.Memory.Events {
			s.report.Recognitions = append(s.report.Recognitions, Recognition{
				Cycle:     cycle,
				Agent:     a.ID,
				Event:     ev.Name,
				Certainty: ev.Certainty,
				Matched:   ev.Matched,
				Expected:  ev.Expected,
				Source:    ev.Source,
			})
		}
	}
	s.report.Stats.Resolved = len(s.report.Recognitions)
}

// EnvironmentPhase propagates every live event, reaps expired ones, then
// creates the events queued or scheduled for this cycle.
func (s *Simulation) EnvironmentPhase(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(s.workers())
	for _, e := range s.events {
		e := e
		g.Go(func() error {
			s.propagator.Propagate(e)
			return nil
		})
	}
	_ = g.Wait()

	live := s.events[:0]
	for _, e := range s.events {
		if e.HasExpired() {
			s.report.Expired = append(s.report.Expired, e.ID)
			slog.Debug("event expired", "event", e.String(), "cycle", cycle)
			continue
		}
		live = append(live, e)
	}
	clear(s.events[len(live):])
	s.events = live

	s.queueMu.Lock()
	queued := s.queue
	s.queue = nil
	s.queueMu.Unlock()

	s.report.Created = append(s.report.Created, s.createEvents(cycle, s.schedule[cycle])...)
	s.report.Created = append(s.report.Created, s.createEvents(cycle, queued)...)
	delete(s.schedule, cycle)

	s.report.Stats.Created = len(s.report.Created)
	s.report.Stats.Expired = len(s.report.Expired)
	s.report.Stats.LiveEvents = len(s.events)
	s.lastCycle = cycle
}

// createEvents must be called with mu held (or before the simulation is
// shared). It returns clones of the new events.
func (s *Simulation) createEvents(cycle uint64, cmds []events.CreateCommand) []*events.Event {
	var out []*events.Event
	for _, cmd := range cmds {
		e, err := s.propagator.New(s.nextEventID, cycle, cmd)
		if err != nil {
			slog.Warn("dropping event command", "kind", cmd.Kind, "error", err)
			continue
		}
		s.nextEventID++
		s.events = append(s.events, e)
		out = append(out, e.Clone())
		slog.Info("event created", "event", e.String(), "origin", e.Origin)
	}
	return out
}

// FinishCycle publishes the cycle's report to observers and subscribers.
func (s *Simulation) FinishCycle(cycle uint64, elapsed time.Duration) {
	s.mu.Lock()
	s.report.Stats.Duration = elapsed
	report := s.report
	s.stats = report.Stats
	s.recent = append(s.recent, report.Recognitions...)
	if len(s.recent) > maxRecent {
		s.recent = append([]Recognition(nil), s.recent[len(s.recent)-maxRecent:]...)
	}
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		if err := o.ObserveCycle(&report); err != nil {
			slog.Error("cycle observer failed", "cycle", cycle, "error", err)
		}
	}
	s.hub.broadcast(report)

	if cycle%summaryEvery == 0 {
		slog.Info("cycle summary",
			"cycle", cycle,
			"agents", humanize.Comma(int64(report.Stats.Agents)),
			"live_events", report.Stats.LiveEvents,
			"sensed", humanize.Comma(int64(report.Stats.Sensed)),
			"resolved", humanize.Comma(int64(report.Stats.Resolved)),
			"duration", elapsed,
		)
	}
}

func (s *Simulation) workers() int {
	if s.opts.Workers > 0 {
		return s.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}
