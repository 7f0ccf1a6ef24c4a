package vision

import (
	"testing"

	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/world"
)

func pose(heading geom.Vec3) Pose {
	return Pose{
		Position:           geom.V(0, 0, 0),
		Heading:            heading,
		FOVDeg:             90,
		VerticalHalfFOVDeg: 30,
		VisibleDistance:    50,
	}
}

func TestPointVisibilityScenario(t *testing.T) {
	target := geom.V(0, 0, 10)
	if !pose(geom.V(0, 0, 1)).TestVisible(target) {
		t.Fatal("point straight ahead should be visible")
	}
	if pose(geom.V(1, 0, 0)).TestVisible(target) {
		t.Fatal("point at 90 degrees should not be visible with a 90 degree FOV")
	}
}

func TestPointVisibilityDistanceBound(t *testing.T) {
	p := pose(geom.V(0, 0, 1))
	p.FOVDeg = 360
	for _, dir := range []geom.Vec3{
		geom.V(0, 0, 1), geom.V(0, 0, -1), geom.V(1, 0, 0), geom.V(1, 1, 1), geom.V(-3, 0, 4),
	} {
		far := dir.Normalize().Scale(50.01)
		if p.TestVisible(far) {
			t.Fatalf("%v beyond visible distance reported visible", far)
		}
		near := dir.Normalize().Scale(49.99)
		if !p.TestVisible(near) {
			t.Fatalf("%v within distance and FOV 360 reported invisible", near)
		}
	}
}

func TestObjectTests(t *testing.T) {
	p := pose(geom.V(0, 0, 1))
	rays := p.ConeRays(6, 10)
	if len(rays) != 61 {
		t.Fatalf("rays=%d want 61", len(rays))
	}

	cases := []struct {
		name string
		box  geom.AABB
		want bool
	}{
		{"center ahead", geom.BoxAround(geom.V(0, 0, 20), geom.V(1, 1, 1)), true},
		{"too far", geom.BoxAround(geom.V(0, 0, 80), geom.V(1, 1, 1)), false},
		{"behind", geom.BoxAround(geom.V(0, 0, -20), geom.V(1, 1, 1)), false},
		{"corner in view", geom.AABB{Min: geom.V(-30, -1, 5), Max: geom.V(-3, 1, 6)}, true},
		{"only rays hit", geom.AABB{Min: geom.V(-500, -1, 10), Max: geom.V(600, 3, 11)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.TestObject(world.ObjectState{Box: tc.box}, rays)
			if got != tc.want {
				t.Fatalf("visible=%v want %v", got, tc.want)
			}
		})
	}
}

func TestUnobstructed(t *testing.T) {
	p := pose(geom.V(0, 0, 1))
	rays := p.ConeRays(6, 10)
	near := world.ObjectState{ID: 1, Box: geom.AABB{Min: geom.V(-2, -2, 10), Max: geom.V(2, 2, 12)}, Collidable: true, Obstructing: true}
	hidden := world.ObjectState{ID: 2, Box: geom.AABB{Min: geom.V(-2, -2, 30), Max: geom.V(2, 2, 32)}, Collidable: true, Obstructing: true}
	side := world.ObjectState{ID: 3, Box: geom.AABB{Min: geom.V(20, -2, 28), Max: geom.V(24, 2, 32)}, Collidable: true, Obstructing: true}

	got := Unobstructed(rays, []world.ObjectState{near, hidden, side}, p.VisibleDistance)
	ids := map[world.ObjectID]bool{}
	for _, o := range got {
		ids[o.ID] = true
	}
	if !ids[1] || ids[2] || !ids[3] {
		t.Fatalf("confirmed=%v want near and side, not hidden", ids)
	}

	if got := Unobstructed(rays, nil, 50); got != nil {
		t.Fatalf("empty candidates gave %v", got)
	}
}

func TestStandardResolve(t *testing.T) {
	r := NewResolver(DefaultConfig())
	p := pose(geom.V(0, 0, 1))

	prop := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	ahead, _ := prop.New(1, 0, events.CreateCommand{Kind: events.KindBomb, Origin: geom.V(0, 0, 15)})
	behind, _ := prop.New(2, 0, events.CreateCommand{Kind: events.KindBomb, Origin: geom.V(0, 0, -15)})
	siren, _ := prop.New(3, 0, events.CreateCommand{Kind: events.KindSiren, Origin: geom.V(0, 0, 5)})

	tent := world.ObjectState{ID: 10, Name: "tent", Box: geom.AABB{Min: geom.V(-3, -1, -3), Max: geom.V(3, 3, 3)}, Obstructing: true}
	post := world.ObjectState{ID: 11, Name: "post", Box: geom.BoxAround(geom.V(0, 0, 20), geom.V(0.5, 2, 0.5))}

	snap := world.CellSnapshot{
		Agents: []world.AgentState{
			{ID: 1, Position: geom.V(0, 0, 0)},
			{ID: 2, Position: geom.V(1, 0, 10)},
			{ID: 3, Position: geom.V(0, 0, -10)},
		},
		Objects: []world.ObjectState{tent, post},
		Events:  []*events.Event{ahead, behind, siren},
	}
	res := r.Resolve(Standard, 1, p, snap, nil)

	if len(res.Agents) != 1 || res.Agents[0].ID != 2 {
		t.Fatalf("agents=%v want only agent 2", res.Agents)
	}
	if len(res.Events) != 1 || res.Events[0].ID != 1 {
		t.Fatalf("events=%v want only the bomb ahead", res.Events)
	}
	got := map[world.ObjectID]bool{}
	for _, o := range res.Objects {
		got[o.ID] = true
	}
	if !got[10] || !got[11] {
		t.Fatalf("objects=%v want tent (inside) and post (non-obstructing)", got)
	}
}

func TestGlobalAndBlind(t *testing.T) {
	r := NewResolver(DefaultConfig())
	p := pose(geom.V(0, 0, 1))
	prop := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	siren, _ := prop.New(1, 0, events.CreateCommand{Kind: events.KindSiren})
	spot, _ := prop.New(2, 0, events.CreateCommand{Kind: events.KindSpotlight, Origin: geom.V(0, 0, -400)})

	snap := world.CellSnapshot{
		Agents:  []world.AgentState{{ID: 1}, {ID: 2, Position: geom.V(0, 0, -30)}},
		Objects: []world.ObjectState{{ID: 5, Box: geom.BoxAround(geom.V(0, 0, -900), geom.V(1, 1, 1))}},
		Events:  []*events.Event{siren, spot},
	}

	g := r.Resolve(Global, 1, p, snap, nil)
	if len(g.Agents) != 1 || g.Agents[0].ID != 2 {
		t.Fatalf("global agents=%v want agent 2 only", g.Agents)
	}
	if len(g.Objects) != 1 || len(g.Events) != 1 || g.Events[0].ID != 2 {
		t.Fatalf("global objects=%v events=%v", g.Objects, g.Events)
	}

	b := r.Resolve(Blind, 1, p, snap, nil)
	if len(b.Agents)+len(b.Objects)+len(b.Events) != 0 {
		t.Fatalf("blind saw %+v", b)
	}
}

func TestNonDeterministicSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleSize = 4
	r := NewResolver(cfg)
	p := pose(geom.V(0, 0, 1))

	var agents []world.AgentState
	for i := 1; i <= 30; i++ {
		agents = append(agents, world.AgentState{ID: world.AgentID(i), Position: geom.V(0, 0, float64(i))})
	}
	snap := world.CellSnapshot{Agents: agents}

	res := r.Resolve(NonDeterministic, 1, p, snap, entropy.NewSource(9, 1))
	if len(res.Agents) == 0 || len(res.Agents) > 4 {
		t.Fatalf("saw %d agents want 1..4", len(res.Agents))
	}
	for _, a := range res.Agents {
		if a.ID == 1 {
			t.Fatal("agent saw itself")
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	for name, want := range map[string]Algorithm{
		"standard": Standard, "Divas": Standard, "Global": Global, " blind ": Blind, "nondeterministic": NonDeterministic,
	} {
		got, err := ParseAlgorithm(name)
		if err != nil || got != want {
			t.Fatalf("ParseAlgorithm(%q)=%v,%v want %v", name, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("xray"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAgentsAreSeenAtEyeHeight(t *testing.T) {
	r := NewResolver(DefaultConfig())
	p := Pose{
		Position:           geom.V(0, 1.7, 0),
		Heading:            geom.V(0, 0, 1),
		FOVDeg:             120,
		VerticalHalfFOVDeg: 40,
		VisibleDistance:    50,
	}
	close := world.AgentState{ID: 2, Position: geom.V(0, 0, 0.8), EyeHeight: 1.7}
	if p.TestVisible(close.Position) {
		t.Fatal("feet of a close agent should fall outside the cone")
	}
	res := r.Resolve(Standard, 1, p, world.CellSnapshot{Agents: []world.AgentState{close}}, nil)
	if len(res.Agents) != 1 {
		t.Fatalf("agents=%v want the agent straight ahead at eye level", res.Agents)
	}
}
