package perception

import (
	"github.com/talgya/crowdsense/internal/geom"
)

// Comparator judges whether two stimuli come from the same physical source.
type Comparator struct {
	// Position of the perceiving agent, used to turn an origin into a
	// direction when only one side has an origin.
	Position    geom.Vec3
	MaxDistance float64
	MaxAngleDeg float64
}

// Same reports whether a and b share a source: origins closer than
// MaxDistance, directions within MaxAngleDeg, or an origin whose bearing
// from the agent lies within MaxAngleDeg of the other side's direction.
// The relation is symmetric. Sources with nothing comparable never match.
func (c Comparator) Same(a, b Source) bool {
	if a.Origin != nil && b.Origin != nil && geom.Distance(*a.Origin, *b.Origin) < c.MaxDistance {
		return true
	}
	if a.Direction != nil && b.Direction != nil && c.within(*a.Direction, *b.Direction) {
		return true
	}
	if a.Origin != nil && b.Direction != nil && c.within(a.Origin.Sub(c.Position), *b.Direction) {
		return true
	}
	if b.Origin != nil && a.Direction != nil && c.within(b.Origin.Sub(c.Position), *a.Direction) {
		return true
	}
	return false
}

func (c Comparator) within(u, v geom.Vec3) bool {
	if u.IsNull() || v.IsNull() {
		return false
	}
	return geom.AngleDeg(u, v) < c.MaxAngleDeg
}
