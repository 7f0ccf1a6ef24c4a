package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/crowdsense/internal/geom"
)

// Kind enumerates the closed set of event variants.
type Kind uint8

const (
	KindBomb Kind = iota
	KindDynamite
	KindFirework
	KindSiren
	KindDrums
	KindGrilling
	KindSpotlight
)

// NumKinds is the number of event kinds.
const NumKinds = 7

// ErrUnknownKind is returned when an event kind name cannot be parsed.
var ErrUnknownKind = errors.New("unknown event kind")

var kindNames = [NumKinds]string{
	"bomb", "dynamite", "firework", "siren", "drums", "grilling", "spotlight",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind converts a kind name (case-insensitive) to a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, kn := range kindNames {
		if kn == n {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Mode selects how an event advances each cycle.
type Mode uint8

const (
	// ModeStandard: vision flashes out after a few cycles, sound and smell
	// radii grow until capped.
	ModeStandard Mode = iota
	// ModeFullyPropagated: radii are at their cap from the first cycle.
	ModeFullyPropagated
	// ModeStatic: never propagates; a fixed light source stays visible.
	ModeStatic
)

// KindSpec is the behavior table entry for one kind.
type KindSpec struct {
	Mode       Mode
	MaxAge     uint64
	Intensity  float64
	Properties []Property
}

// DefaultCatalog returns the built-in behavior table.
func DefaultCatalog() map[Kind]KindSpec {
	return map[Kind]KindSpec{
		KindBomb: {Mode: ModeStandard, MaxAge: 10, Intensity: 1, Properties: []Property{
			{Type: "flash", Sense: Vision, Value: 90},
			{Type: "bang", Sense: Hearing, Value: 130},
			{Type: "smoke", Sense: Smell, Value: 70},
		}},
		KindDynamite: {Mode: ModeStandard, MaxAge: 8, Intensity: 0.8, Properties: []Property{
			{Type: "flash", Sense: Vision, Value: 60},
			{Type: "bang", Sense: Hearing, Value: 110},
			{Type: "smoke", Sense: Smell, Value: 50},
		}},
		KindFirework: {Mode: ModeStandard, MaxAge: 6, Intensity: 0.6, Properties: []Property{
			{Type: "sparkle", Sense: Vision, Value: 80},
			{Type: "crackle", Sense: Hearing, Value: 70},
		}},
		KindSiren: {Mode: ModeStandard, MaxAge: 20, Intensity: 0.7, Properties: []Property{
			{Type: "wail", Sense: Hearing, Value: 95},
		}},
		KindDrums: {Mode: ModeFullyPropagated, MaxAge: 30, Intensity: 0.4, Properties: []Property{
			{Type: "beat", Sense: Hearing, Value: 60},
		}},
		KindGrilling: {Mode: ModeStandard, MaxAge: 40, Intensity: 0.3, Properties: []Property{
			{Type: "barbecue", Sense: Smell, Value: 40},
		}},
		KindSpotlight: {Mode: ModeStatic, MaxAge: 50, Intensity: 0.5, Properties: []Property{
			{Type: "beam", Sense: Vision, Value: 75},
		}},
	}
}

// CreateCommand is an external request to create an event. Zero-valued
// optional fields fall back to the catalog and propagation defaults.
type CreateCommand struct {
	Kind             Kind               `json:"kind" yaml:"kind"`
	Origin           geom.Vec3          `json:"origin" yaml:"origin"`
	Intensity        float64            `json:"intensity,omitempty" yaml:"intensity"`
	MaxAge           uint64             `json:"max_age,omitempty" yaml:"max_age"`
	MaxSoundDistance float64            `json:"max_sound_distance,omitempty" yaml:"max_sound_distance"`
	MaxSmellDistance float64            `json:"max_smell_distance,omitempty" yaml:"max_smell_distance"`
	Values           map[string]float64 `json:"values,omitempty" yaml:"values"` // property type → value override
}
