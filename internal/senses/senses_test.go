package senses

import (
	"math"
	"testing"

	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
)

func TestSenseBombAtRange(t *testing.T) {
	p := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	bomb, err := p.New(1, 0, events.CreateCommand{Kind: events.KindBomb, Origin: geom.V(0, 0, 20)})
	if err != nil {
		t.Fatal(err)
	}
	p.Propagate(bomb) // sound 12, smell 2
	p.Propagate(bomb) // sound 24, smell 4

	s := New(DefaultConfig())
	got := s.Sense(2, geom.V(0, 0, 0), []*events.Event{bomb}, []*events.Event{bomb}, nil)

	byType := map[string]int{}
	for i, sd := range got {
		byType[sd.Type] = i
	}
	if len(got) != 2 {
		t.Fatalf("got %d stimuli %+v want flash and bang", len(got), got)
	}
	flash := got[byType["flash"]]
	if flash.Origin == nil || *flash.Origin != geom.V(0, 0, 20) || flash.Trust != 1 || flash.Value != 90 {
		t.Fatalf("flash=%+v", flash)
	}
	bang := got[byType["bang"]]
	if bang.Direction == nil || bang.Origin != nil || *bang.Direction != geom.V(0, 0, 1) || bang.Trust != 0.8 {
		t.Fatalf("bang=%+v", bang)
	}
	if _, ok := byType["smoke"]; ok {
		t.Fatal("smoke front (4) has not reached distance 20")
	}
}

func TestSenseAtOriginUsesOrigin(t *testing.T) {
	p := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	grill, _ := p.New(1, 0, events.CreateCommand{Kind: events.KindGrilling, Origin: geom.V(3, 0, 3)})
	got := New(DefaultConfig()).Sense(0, geom.V(3, 0, 3), nil, []*events.Event{grill}, nil)
	if len(got) != 1 || got[0].Origin == nil || got[0].Direction != nil {
		t.Fatalf("got %+v want one smell stimulus with an origin", got)
	}
}

func TestSenseNoise(t *testing.T) {
	p := events.NewPropagator(events.DefaultPropagationConfig(), nil)
	spot, _ := p.New(1, 0, events.CreateCommand{Kind: events.KindSpotlight})
	cfg := DefaultConfig()
	cfg.Vision.Noise = 5

	a := New(cfg).Sense(0, geom.V(0, 0, -5), []*events.Event{spot}, nil, entropy.NewSource(1, 1))
	b := New(cfg).Sense(0, geom.V(0, 0, -5), []*events.Event{spot}, nil, entropy.NewSource(1, 1))
	if len(a) != 1 || a[0].Value != b[0].Value {
		t.Fatalf("noise not reproducible: %+v vs %+v", a, b)
	}
	if a[0].Value == 75 || math.Abs(a[0].Value-75) > 40 {
		t.Fatalf("noisy value %v implausible", a[0].Value)
	}
}
