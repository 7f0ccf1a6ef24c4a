package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/crowdsense/internal/engine"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun(42, map[string]any{"crowd": 3})
	if err != nil {
		t.Fatal(err)
	}
	if last, err := db.GetMeta("last_run"); err != nil || last != runID {
		t.Fatalf("last_run=%q err=%v want %q", last, err, runID)
	}

	prop := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	bomb, _ := prop.New(1, 1, events.CreateCommand{Kind: events.KindBomb, Origin: geom.V(1, 2, 3)})

	rec := db.Recorder(runID)
	reports := []*engine.CycleReport{
		{
			Stats:   engine.CycleStats{Cycle: 1, Duration: 1500 * time.Microsecond, Agents: 2, LiveEvents: 1, Created: 1},
			Created: []*events.Event{bomb},
		},
		{
			Stats: engine.CycleStats{Cycle: 2, Agents: 2, Sensed: 3, Resolved: 2},
			Recognitions: []engine.Recognition{
				{Cycle: 2, Agent: 1, Event: "bomb", Certainty: 60, Matched: 2, Expected: 3},
				{Cycle: 2, Agent: 2, Event: "bomb", Certainty: 40, Matched: 1, Expected: 3},
			},
		},
		{
			Stats: engine.CycleStats{Cycle: 3, Agents: 2, Expired: 1, Resolved: 1},
			Recognitions: []engine.Recognition{
				{Cycle: 3, Agent: 1, Event: "siren", Certainty: 80, Matched: 1, Expected: 1},
			},
			Expired: []events.EventID{1},
		},
	}
	for _, r := range reports {
		if err := rec.ObserveCycle(r); err != nil {
			t.Fatalf("cycle %d: %v", r.Stats.Cycle, err)
		}
	}

	evs, err := db.Events(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Kind != "bomb" || evs[0].OriginZ != 3 || evs[0].ExpiredCycle == nil || *evs[0].ExpiredCycle != 3 {
		t.Fatalf("events=%+v", evs)
	}

	recs, err := db.Recognitions(runID, "bomb", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].AgentID != 2 {
		t.Fatalf("bomb recognitions=%+v want newest first", recs)
	}
	all, _ := db.Recognitions(runID, "", 10)
	if len(all) != 3 || all[0].Event != "siren" {
		t.Fatalf("all recognitions=%+v", all)
	}

	tally, err := db.Tally(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tally) != 2 || tally[0].Event != "bomb" || tally[0].Count != 2 || tally[0].Avg != 50 {
		t.Fatalf("tally=%+v", tally)
	}

	stats, err := db.Stats(runID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0].Cycle != 2 || stats[1].Cycle != 3 {
		t.Fatalf("stats=%+v want cycles 2,3", stats)
	}
	first, _ := db.Stats(runID, 10)
	if first[0].DurationUS != 1500 {
		t.Fatalf("duration_us=%d want 1500", first[0].DurationUS)
	}
}

func TestRunsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.StartRun(1, nil)
	b, _ := db.StartRun(2, nil)
	if a == b {
		t.Fatal("run ids collide")
	}

	r := &engine.CycleReport{
		Stats:        engine.CycleStats{Cycle: 1},
		Recognitions: []engine.Recognition{{Cycle: 1, Agent: 9, Event: "drums", Certainty: 70}},
	}
	if err := db.SaveCycle(a, r); err != nil {
		t.Fatal(err)
	}
	if recs, _ := db.Recognitions(b, "", 10); len(recs) != 0 {
		t.Fatalf("run b sees %v", recs)
	}
	runs, err := db.Runs(10)
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs=%v err=%v", runs, err)
	}
}

func TestInitialScheduledEventIsStored(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun(5, nil)
	if err != nil {
		t.Fatal(err)
	}

	schedule := map[uint64][]events.CreateCommand{
		0: {{Kind: events.KindSiren, Origin: geom.V(0, 0, 40), MaxAge: 2, MaxSoundDistance: 12}},
	}
	opts := engine.Options{CellSize: 10, Workers: 1, Propagation: events.DefaultPropagationConfig()}
	sim := engine.NewSimulation(opts, nil, nil, schedule)
	sim.AddObserver(db.Recorder(runID))
	e := engine.NewEngine(0)
	sim.Attach(e)

	// Audible through cycle 1, silent at 2, past max age at 3.
	for i := 0; i < 3; i++ {
		e.Step()
	}
	if n := len(sim.Events()); n != 0 {
		t.Fatalf("live events=%d want 0", n)
	}

	evs, err := db.Events(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Kind != "siren" || evs[0].CreatedCycle != 0 {
		t.Fatalf("events=%+v want the cycle 0 siren", evs)
	}
	if evs[0].ExpiredCycle == nil || *evs[0].ExpiredCycle != 3 {
		t.Fatalf("expired_cycle=%v want 3", evs[0].ExpiredCycle)
	}
	stats, err := db.Stats(runID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 3 || stats[0].Created != 1 {
		t.Fatalf("stats=%+v want cycle 1 to count the created siren", stats)
	}
}
