// Package events models transient environmental events (explosions,
// fireworks, sirens, ...) and advances them through their lifecycle.
package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/crowdsense/internal/geom"
)

// Sense is a channel through which an agent perceives stimuli.
type Sense uint8

const (
	Vision Sense = iota
	Hearing
	Smell
)

// NumSenses is the number of senses.
const NumSenses = 3

// ErrUnknownSense is returned when a sense name cannot be parsed.
var ErrUnknownSense = errors.New("unknown sense")

func (s Sense) String() string {
	switch s {
	case Vision:
		return "vision"
	case Hearing:
		return "hearing"
	case Smell:
		return "smell"
	default:
		return "unknown"
	}
}

// ParseSense converts a sense name (case-insensitive) to a Sense.
func ParseSense(name string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vision":
		return Vision, nil
	case "hearing":
		return Hearing, nil
	case "smell":
		return Smell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSense, name)
}

// Property is one declared sensory property of an event, e.g. "flash" seen
// with strength 90.
type Property struct {
	Type  string  `json:"type"`
	Sense Sense   `json:"sense"`
	Value float64 `json:"value"`
}

// EventID uniquely identifies an event within a run.
type EventID uint64

// Event is an external occurrence perceivable through one or more senses.
type Event struct {
	ID        EventID   `json:"id"`
	Kind      Kind      `json:"kind"`
	Origin    geom.Vec3 `json:"origin"`
	CreatedAt uint64    `json:"created_at"` // cycle
	Age       uint64    `json:"age"`        // cycles since creation
	MaxAge    uint64    `json:"max_age"`
	Intensity float64   `json:"intensity"`

	Visible   bool `json:"visible"`
	Audible   bool `json:"audible"`
	Smellable bool `json:"smellable"`

	SoundRadius      float64 `json:"sound_radius"`
	SmellRadius      float64 `json:"smell_radius"`
	MaxSoundDistance float64 `json:"max_sound_distance"`
	MaxSmellDistance float64 `json:"max_smell_distance"`

	// Properties is small and fixed after construction; kept ordered so that
	// sensing emits stimuli in declaration order.
	Properties []Property `json:"properties"`

	// Set on the cycle a radius first reaches its cap; the modality turns off
	// on the following cycle.
	soundCapped bool
	smellCapped bool
}

// Name returns the event's canonical name (its kind name).
func (e *Event) Name() string {
	return e.Kind.String()
}

// Supports reports whether the event declares at least one property for the
// sense. An event without such properties can never be perceived through it.
func (e *Event) Supports(s Sense) bool {
	for _, p := range e.Properties {
		if p.Sense == s {
			return true
		}
	}
	return false
}

// PropertiesFor returns the event's properties for one sense, in order.
func (e *Event) PropertiesFor(s Sense) []Property {
	var out []Property
	for _, p := range e.Properties {
		if p.Sense == s {
			out = append(out, p)
		}
	}
	return out
}

// Property looks up a property by type name.
func (e *Event) Property(typ string) (Property, bool) {
	for _, p := range e.Properties {
		if p.Type == typ {
			return p, true
		}
	}
	return Property{}, false
}

func (e *Event) IsCurrentlyVisible() bool {
	return e.Visible && e.Supports(Vision)
}

func (e *Event) IsCurrentlyAudible() bool {
	return e.Audible && e.Supports(Hearing)
}

func (e *Event) IsCurrentlySmellable() bool {
	return e.Smellable && e.Supports(Smell)
}

// HasExpired reports whether the event can be reaped: age must exceed the
// max age, and each supported radius-based modality must have reached its
// maximum distance and switched off. The cycle a radius first reaches its
// maximum is still perceivable, so expiry comes one cycle later at the
// earliest.
func (e *Event) HasExpired() bool {
	if e.Age <= e.MaxAge {
		return false
	}
	if e.Supports(Hearing) && (e.SoundRadius < e.MaxSoundDistance || e.Audible) {
		return false
	}
	if e.Supports(Smell) && (e.SmellRadius < e.MaxSmellDistance || e.Smellable) {
		return false
	}
	return true
}

// Clone returns a deep copy, used for read-only snapshots handed to agents.
func (e *Event) Clone() *Event {
	c := *e
	c.Properties = append([]Property(nil), e.Properties...)
	return &c
}

func (e *Event) String() string {
	return fmt.Sprintf("%s#%d@%v age=%d", e.Kind, e.ID, e.Origin, e.Age)
}

func (s Sense) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sense) UnmarshalText(b []byte) error {
	v, err := ParseSense(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
