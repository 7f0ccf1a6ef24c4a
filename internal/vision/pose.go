// Package vision decides which agents, objects and events an agent can see
// in one cycle: a field-of-view point test, extended bounding-box and
// ray-cast tests for objects, and a ray-bounded occlusion pass.
package vision

import (
	"math"

	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/world"
)

// Pose is an agent's viewpoint for one cycle.
type Pose struct {
	Position           geom.Vec3 `json:"position"` // eye position
	Heading            geom.Vec3 `json:"heading"`
	FOVDeg             float64   `json:"fov_deg"` // full horizontal field of view
	VerticalHalfFOVDeg float64   `json:"vertical_half_fov_deg"`
	VisibleDistance    float64   `json:"visible_distance"`
}

// TestVisible is the point test: p is visible when it lies within the
// visible distance and strictly inside half the field of view.
func (p Pose) TestVisible(pt geom.Vec3) bool {
	v := pt.Sub(p.Position)
	if v.Mag() > p.VisibleDistance {
		return false
	}
	if v.IsNull() {
		return true
	}
	return geom.AngleDeg(v, p.Heading) < p.FOVDeg/2
}

// TestObject runs the extended object tests in order of cost: coarse
// distance culling, the center point, the eight box corners, then the view
// cone rays.
func (p Pose) TestObject(o world.ObjectState, rays []geom.Ray) bool {
	box := o.Box.Normalized()
	center := box.Center()

	if geom.Distance(p.Position, center)-box.Radius() > p.VisibleDistance {
		return false
	}
	if p.TestVisible(center) {
		return true
	}
	for _, c := range box.Corners() {
		if p.TestVisible(c) {
			return true
		}
	}
	for _, r := range rays {
		if t, ok := r.IntersectAABB(box); ok && t <= p.VisibleDistance {
			return true
		}
	}
	return false
}

// Inside reports whether the eye stands within the object's ground
// footprint.
func (p Pose) Inside(o world.ObjectState) bool {
	return o.Box.Normalized().ContainsXZ(p.Position)
}

// ConeRays returns the forward ray plus rings*perRing rays spread over the
// view cone. Ring i sits at (i+1)/rings of the half-angles; rays on a ring
// are evenly spaced around the forward axis, tracing an ellipse whose axes
// are the horizontal and vertical half fields of view.
func (p Pose) ConeRays(rings, perRing int) []geom.Ray {
	fwd := p.Heading.Normalize()
	if fwd.IsNull() {
		fwd = geom.V(0, 0, 1)
	}
	right, up := basis(fwd)

	rays := make([]geom.Ray, 0, 1+rings*perRing)
	rays = append(rays, geom.Ray{Origin: p.Position, Dir: fwd})
	if rings <= 0 || perRing <= 0 {
		return rays
	}

	halfH := p.FOVDeg / 2 * math.Pi / 180
	halfV := p.VerticalHalfFOVDeg * math.Pi / 180
	for i := 0; i < rings; i++ {
		f := float64(i+1) / float64(rings)
		th := math.Tan(clampAngle(f * halfH))
		tv := math.Tan(clampAngle(f * halfV))
		for j := 0; j < perRing; j++ {
			phi := 2 * math.Pi * float64(j) / float64(perRing)
			dir := fwd.
				Add(right.Scale(th * math.Cos(phi))).
				Add(up.Scale(tv * math.Sin(phi))).
				Normalize()
			rays = append(rays, geom.Ray{Origin: p.Position, Dir: dir})
		}
	}
	return rays
}

// basis returns right and up vectors orthogonal to fwd.
func basis(fwd geom.Vec3) (geom.Vec3, geom.Vec3) {
	worldUp := geom.V(0, 1, 0)
	right := worldUp.Cross(fwd)
	if right.MagSq() < 1e-12 {
		right = geom.V(1, 0, 0)
	}
	right = right.Normalize()
	up := fwd.Cross(right).Normalize()
	return right, up
}

// clampAngle keeps tan finite for fields of view at or beyond 180 degrees.
func clampAngle(a float64) float64 {
	const limit = math.Pi/2 - 1e-3
	return math.Min(a, limit)
}
