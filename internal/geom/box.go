package geom

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

// BoxAround builds a box centered on c with the given half extents.
func BoxAround(c Vec3, half Vec3) AABB {
	return AABB{Min: c.Sub(half), Max: c.Add(half)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns the radius of the bounding sphere around the box center.
func (b AABB) Radius() float64 {
	return b.Size().Mag() / 2
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// Contains reports whether p lies inside the box (boundary inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsXZ reports whether p lies inside the box's ground footprint,
// ignoring height.
func (b AABB) ContainsXZ(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Normalized returns the box with Min/Max swapped per axis where needed.
func (b AABB) Normalized() AABB {
	return AABB{
		Min: Vec3{math.Min(b.Min.X, b.Max.X), math.Min(b.Min.Y, b.Max.Y), math.Min(b.Min.Z, b.Max.Z)},
		Max: Vec3{math.Max(b.Min.X, b.Max.X), math.Max(b.Min.Y, b.Max.Y), math.Max(b.Min.Z, b.Max.Z)},
	}
}
