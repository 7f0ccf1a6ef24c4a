package recording

import (
	"errors"
	"testing"

	"github.com/talgya/crowdsense/internal/engine"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
)

func TestTraceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTraceWriter(dir, "run-1")
	if err != nil {
		t.Fatal(err)
	}

	prop := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	siren, _ := prop.New(4, 1, events.CreateCommand{Kind: events.KindSiren, Origin: geom.V(5, 0, 5)})

	reports := []engine.CycleReport{
		{Stats: engine.CycleStats{Cycle: 1, Created: 1}, Created: []*events.Event{siren}},
		{Stats: engine.CycleStats{Cycle: 2, Resolved: 2}, Recognitions: []engine.Recognition{
			{Cycle: 2, Agent: 1, Event: "siren", Certainty: 80},
			{Cycle: 2, Agent: 2, Event: "siren", Certainty: 75},
		}},
		{Stats: engine.CycleStats{Cycle: 3, Resolved: 1}, Recognitions: []engine.Recognition{
			{Cycle: 3, Agent: 1, Event: "drums", Certainty: 50},
		}},
	}
	for i := range reports {
		if err := w.ObserveCycle(&reports[i]); err != nil {
			t.Fatal(err)
		}
	}
	if w.Written() != 3 {
		t.Fatalf("written=%d want 3", w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.ObserveCycle(&reports[0]); err == nil {
		t.Fatal("write after close should fail")
	}

	var got []engine.CycleReport
	if err := ReadTrace(w.Path(), func(r engine.CycleReport) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Created[0].Kind != events.KindSiren || got[0].Created[0].ID != 4 {
		t.Fatalf("got=%+v", got)
	}
	if got[1].Recognitions[1].Certainty != 75 {
		t.Fatalf("recognitions=%+v", got[1].Recognitions)
	}

	s, err := Summarize(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if s.Cycles != 3 || s.FirstCycle != 1 || s.LastCycle != 3 || s.EventsMade != 1 {
		t.Fatalf("summary=%+v", s)
	}
	if s.Recognitions["siren"] != 2 || s.Recognitions["drums"] != 1 || s.PeakResolved != 2 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestReadTraceStopsOnCallbackError(t *testing.T) {
	w, err := NewTraceWriter(t.TempDir(), "run-2")
	if err != nil {
		t.Fatal(err)
	}
	for c := uint64(1); c <= 5; c++ {
		if err := w.ObserveCycle(&engine.CycleReport{Stats: engine.CycleStats{Cycle: c}}); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	stop := errors.New("stop")
	seen := 0
	err = ReadTrace(w.Path(), func(r engine.CycleReport) error {
		seen++
		if r.Stats.Cycle == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}
