package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/knowledge"
	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/senses"
	"github.com/talgya/crowdsense/internal/vision"
)

type recorder struct {
	reports []CycleReport
	err     error
}

func (r *recorder) ObserveCycle(rep *CycleReport) error {
	r.reports = append(r.reports, *rep)
	return r.err
}

func newTestSim(t *testing.T, schedule map[uint64][]events.CreateCommand) (*Simulation, *agents.Agent) {
	t.Helper()
	kb, err := knowledge.Load(filepath.Join("..", "knowledge", "testdata", "knowledge.yaml"))
	if err != nil {
		t.Fatalf("load knowledge: %v", err)
	}
	pipe := &agents.Pipeline{
		Resolver:   vision.NewResolver(vision.DefaultConfig()),
		Sensor:     senses.New(senses.DefaultConfig()),
		Knowledge:  kb,
		Perception: perception.DefaultConfig(),
	}
	body := agents.Body{
		Heading:            geom.V(0, 0, 1),
		EyeHeight:          1.7,
		FOVDeg:             120,
		VerticalHalfFOVDeg: 40,
		VisibleDistance:    50,
	}
	sp := agents.NewSpawner(7, pipe, body)
	watcher := sp.Spawn("watcher", body)

	opts := Options{CellSize: 10, Workers: 2, Propagation: events.DefaultPropagationConfig()}
	return NewSimulation(opts, []*agents.Agent{watcher}, nil, schedule), watcher
}

func TestEngineRunsPhasesInOrder(t *testing.T) {
	e := NewEngine(0)
	e.MaxCycles = 3
	var calls []string
	e.OnAgents = func(c uint64) { calls = append(calls, "agents") }
	e.OnEnvironment = func(c uint64) { calls = append(calls, "env") }
	var done []uint64
	e.OnCycleDone = func(c uint64, _ time.Duration) { done = append(done, c) }

	e.Run(context.Background())

	if e.Cycle != 3 || e.Running() {
		t.Fatalf("cycle=%d running=%v want 3 stopped", e.Cycle, e.Running())
	}
	want := []string{"agents", "env", "agents", "env", "agents", "env"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls=%v want %v", calls, want)
		}
	}
	if len(done) != 3 || done[2] != 3 {
		t.Fatalf("done=%v", done)
	}
}

func TestEngineStopsAndHonorsMinCycle(t *testing.T) {
	e := NewEngine(10 * time.Millisecond)
	e.OnCycleDone = func(c uint64, _ time.Duration) {
		if c == 2 {
			e.Stop()
		}
	}
	start := time.Now()
	e.Run(context.Background())
	if e.Cycle != 2 {
		t.Fatalf("cycle=%d want 2", e.Cycle)
	}
	// The first cycle sleeps out its remainder before the second starts.
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("elapsed=%v want >= 10ms", elapsed)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(time.Hour)
	e.Run(ctx)
	if e.Cycle != 0 {
		t.Fatalf("cycle=%d want 0", e.Cycle)
	}
}

func TestSimulationRecognizesScheduledBomb(t *testing.T) {
	schedule := map[uint64][]events.CreateCommand{
		0: {{Kind: events.KindBomb, Origin: geom.V(0, 1.7, 10)}},
	}
	sim, watcher := newTestSim(t, schedule)
	rec := &recorder{}
	sim.AddObserver(rec)

	e := NewEngine(0)
	sim.Attach(e)
	e.Step() // flash only
	e.Step() // flash and bang

	if len(rec.reports) != 2 {
		t.Fatalf("reports=%d want 2", len(rec.reports))
	}
	var certainty [2]float64
	for i, r := range rec.reports {
		if len(r.Recognitions) != 1 || r.Recognitions[0].Event != "bomb" || r.Recognitions[0].Agent != watcher.ID {
			t.Fatalf("cycle %d recognitions=%+v want one bomb", i+1, r.Recognitions)
		}
		certainty[i] = r.Recognitions[0].Certainty
	}
	if first := rec.reports[0]; len(first.Created) != 1 || first.Created[0].Kind != events.KindBomb || first.Stats.Created != 1 {
		t.Fatalf("cycle 1 created=%v stats=%d want the scheduled bomb", first.Created, first.Stats.Created)
	}
	if len(rec.reports[1].Created) != 0 {
		t.Fatalf("cycle 2 created=%v want none", rec.reports[1].Created)
	}
	if certainty[1] <= certainty[0] {
		t.Fatalf("certainty %v then %v, want growth once the bang arrives", certainty[0], certainty[1])
	}
	if rec.reports[1].Stats.Sensed != 2 {
		t.Fatalf("sensed=%d want 2 (flash, bang)", rec.reports[1].Stats.Sensed)
	}

	v, ok := sim.Agent(watcher.ID)
	if !ok || v.Memory.Cycle != 2 || len(v.Memory.Events) != 1 {
		t.Fatalf("agent view=%+v ok=%v", v, ok)
	}
	if got := sim.Recent(10, "bomb"); len(got) != 2 {
		t.Fatalf("recent=%d want 2", len(got))
	}
	if got := sim.Recent(10, "siren"); len(got) != 0 {
		t.Fatalf("recent siren=%v", got)
	}
}

func TestSubmitCreatesAndReapsEvents(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	rec := &recorder{err: errors.New("disk full")} // observer failures are only logged
	sim.AddObserver(rec)
	e := NewEngine(0)
	sim.Attach(e)

	if err := sim.Submit(events.CreateCommand{Kind: events.Kind(99)}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("err=%v want ErrInvalidCommand", err)
	}
	cmd := events.CreateCommand{Kind: events.KindSiren, Origin: geom.V(30, 0, 0), MaxAge: 2, MaxSoundDistance: 12}
	if err := sim.Submit(cmd); err != nil {
		t.Fatal(err)
	}
	if st := sim.Status(); st.Pending != 1 {
		t.Fatalf("pending=%d want 1", st.Pending)
	}

	e.Step()
	evs := sim.Events()
	if len(evs) != 1 || evs[0].CreatedAt != 1 || evs[0].Age != 0 {
		t.Fatalf("events=%v want one new siren", evs)
	}
	if rec.reports[0].Stats.Created != 1 {
		t.Fatalf("created=%d want 1", rec.reports[0].Stats.Created)
	}

	// Radius caps at cycle 2; age passes 2 at cycle 4.
	e.Step()
	e.Step()
	if len(sim.Events()) != 1 {
		t.Fatal("siren reaped early")
	}
	e.Step()
	if len(sim.Events()) != 0 {
		t.Fatalf("siren not reaped: %v", sim.Events())
	}
	last := rec.reports[3]
	if len(last.Expired) != 1 || last.Expired[0] != evs[0].ID || last.Stats.LiveEvents != 0 {
		t.Fatalf("last report=%+v", last)
	}
	if sim.CurrentCycle() != 4 {
		t.Fatalf("cycle=%d want 4", sim.CurrentCycle())
	}
}

func TestSubscribeReceivesReports(t *testing.T) {
	sim, _ := newTestSim(t, nil)
	e := NewEngine(0)
	sim.Attach(e)

	id, ch := sim.Subscribe()
	if sim.Status().Subscribers != 1 {
		t.Fatal("subscriber not counted")
	}
	e.Step()
	select {
	case r := <-ch:
		if r.Stats.Cycle != 1 || r.Stats.Agents != 1 {
			t.Fatalf("report=%+v", r.Stats)
		}
	default:
		t.Fatal("no report delivered")
	}

	sim.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open")
	}
	e.Step() // broadcasting without subscribers is fine
}
