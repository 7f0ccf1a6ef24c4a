// Package senses turns what an agent can see, hear and smell this cycle into
// raw stimuli for the perception engine.
package senses

import (
	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/perception"
)

// Channel configures one sense.
type Channel struct {
	// Trust multiplies every certainty derived from this sense.
	Trust float64 `yaml:"trust"`
	// Noise is the standard deviation of Gaussian noise added to measured
	// values. Zero disables it.
	Noise float64 `yaml:"noise"`
}

// Config configures all three senses.
type Config struct {
	Vision  Channel `yaml:"vision"`
	Hearing Channel `yaml:"hearing"`
	Smell   Channel `yaml:"smell"`
}

// DefaultConfig trusts sight most and smell least, with no noise.
func DefaultConfig() Config {
	return Config{
		Vision:  Channel{Trust: 1.0},
		Hearing: Channel{Trust: 0.8},
		Smell:   Channel{Trust: 0.6},
	}
}

func (c Config) channel(s events.Sense) Channel {
	switch s {
	case events.Vision:
		return c.Vision
	case events.Hearing:
		return c.Hearing
	default:
		return c.Smell
	}
}

// Sensor produces stimuli. It holds only configuration and is safe for
// concurrent use.
type Sensor struct {
	cfg Config
}

// New creates a sensor.
func New(cfg Config) *Sensor {
	return &Sensor{cfg: cfg}
}

// Sense emits one stimulus per property of every event perceived this cycle.
// seen are the events vision resolved; nearby are all events in the agent's
// cell, of which those whose sound or smell front has reached pos are heard
// or smelled. Seen stimuli carry the event origin; heard and smelled ones
// carry the direction from pos toward it. rng may be nil when no channel
// has noise.
func (s *Sensor) Sense(cycle uint64, pos geom.Vec3, seen, nearby []*events.Event, rng *entropy.Source) []perception.SensedData {
	var out []perception.SensedData
	for _, e := range seen {
		origin := e.Origin
		out = s.emit(out, cycle, e, events.Vision, perception.Source{Origin: &origin}, rng)
	}
	for _, e := range nearby {
		d := geom.Distance(pos, e.Origin)
		if e.IsCurrentlyAudible() && d <= e.SoundRadius {
			out = s.emit(out, cycle, e, events.Hearing, bearing(pos, e.Origin), rng)
		}
		if e.IsCurrentlySmellable() && d <= e.SmellRadius {
			out = s.emit(out, cycle, e, events.Smell, bearing(pos, e.Origin), rng)
		}
	}
	return out
}

func (s *Sensor) emit(out []perception.SensedData, cycle uint64, e *events.Event, sense events.Sense, src perception.Source, rng *entropy.Source) []perception.SensedData {
	ch := s.cfg.channel(sense)
	for _, p := range e.PropertiesFor(sense) {
		v := p.Value
		if rng != nil {
			v += rng.Norm(ch.Noise)
		}
		out = append(out, perception.SensedData{
			Cycle:     cycle,
			Type:      p.Type,
			Sense:     sense,
			Value:     v,
			Certainty: 100,
			Trust:     ch.Trust,
			Intensity: e.Intensity,
			Source:    src,
		})
	}
	return out
}

// bearing is the direction from pos to origin. An agent standing on the
// origin gets the origin itself instead.
func bearing(pos, origin geom.Vec3) perception.Source {
	d := origin.Sub(pos)
	if d.IsNull() {
		return perception.Source{Origin: &origin}
	}
	d = d.Normalize()
	return perception.Source{Direction: &d}
}
