package scenario

import (
	"path/filepath"
	"testing"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/senses"
	"github.com/talgya/crowdsense/internal/vision"
)

func TestLoadScenario(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "plaza.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Name != "plaza" || len(s.Agents) != 2 || len(s.Objects) != 1 || len(s.Triggers) != 3 {
		t.Fatalf("scenario=%+v", s)
	}

	// Sorted by cycle, file order kept within a cycle.
	if s.Triggers[0].Cycle != 2 || s.Triggers[0].Kind != events.KindBomb {
		t.Fatalf("first trigger=%+v want bomb at cycle 2", s.Triggers[0])
	}
	if s.Triggers[1].Kind != events.KindSiren || s.Triggers[2].Kind != events.KindGrilling {
		t.Fatalf("cycle 5 order: %v, %v", s.Triggers[1].Kind, s.Triggers[2].Kind)
	}
	if s.Triggers[0].Values["flash"] != 88 || s.Triggers[0].Origin != geom.V(0, 0, 20) {
		t.Fatalf("bomb trigger=%+v", s.Triggers[0])
	}

	sched := s.Schedule()
	if len(sched[5]) != 2 || len(sched[2]) != 1 {
		t.Fatalf("schedule=%v", sched)
	}

	objs := s.WorldObjects(100)
	if objs[0].ID != 100 || !objs[0].Obstructing || objs[0].Box.Max.Y != 4 {
		t.Fatalf("objects=%+v", objs)
	}
}

func TestSpawnAppliesOverrides(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "plaza.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	pipe := &agents.Pipeline{
		Resolver:   vision.NewResolver(vision.DefaultConfig()),
		Sensor:     senses.New(senses.DefaultConfig()),
		Perception: perception.DefaultConfig(),
	}
	defaults := agents.Body{FOVDeg: 120, VerticalHalfFOVDeg: 40, VisibleDistance: 50, EyeHeight: 1.7}
	sp := agents.NewSpawner(1, pipe, defaults)

	got := s.Spawn(sp, defaults)
	if len(got) != 4 {
		t.Fatalf("spawned %d want 4", len(got))
	}
	ada := got[0]
	if ada.Name != "Ada" || ada.FOVDeg != 90 || ada.VisibleDistance != 50 || ada.Heading != geom.V(0, 0, 1) {
		t.Fatalf("ada=%+v", ada.Body)
	}
	for i, g := range got[1:] {
		if g.Vision != vision.Global || g.FOVDeg != 120 {
			t.Fatalf("guard %d=%+v", i, g.Body)
		}
		if g.Heading.IsNull() {
			t.Fatalf("guard %d has no heading", i)
		}
	}
	if got[1].Name != "Guard 1" || got[3].Name != "Guard 3" {
		t.Fatalf("names %q..%q", got[1].Name, got[3].Name)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind":  "events:\n  - cycle: 1\n    kind: volcano\n",
		"flat object":   "objects:\n  - name: sheet\n    min: {x: 0, y: 0, z: 0}\n    max: {x: 1, y: 0, z: 1}\n",
		"bad fov":       "agents:\n  - name: a\n    fov_deg: 270\n",
		"unknown sight": "agents:\n  - name: a\n    vision: xray\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
