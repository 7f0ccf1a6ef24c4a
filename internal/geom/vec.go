// Package geom provides the small 3D vector, box and ray toolkit used by
// visibility and perception. Y is up; agents walk on the XZ plane.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a value-type 3D vector.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vec3) Scale(f float64) Vec3 {
	return Vec3{a.X * f, a.Y * f, a.Z * f}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) MagSq() float64 {
	return a.Dot(a)
}

func (a Vec3) Mag() float64 {
	return math.Sqrt(a.MagSq())
}

// Normalize returns the unit vector in a's direction. The null vector is
// returned unchanged.
func (a Vec3) Normalize() Vec3 {
	mag := a.Mag()
	if mag > 0 {
		return a.Scale(1 / mag)
	}
	return a
}

func (a Vec3) IsNull() bool {
	return a.X == 0 && a.Y == 0 && a.Z == 0
}

func (a Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", a.X, a.Y, a.Z)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Mag()
}

// AngleDeg returns the angle in degrees between two vectors, computed as the
// inverse cosine of the dot product of the normalized vectors. Returns 0 if
// either vector is null.
func AngleDeg(a, b Vec3) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}
	cos := a.Normalize().Dot(b.Normalize())
	// Rounding can push |cos| slightly past 1.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// Ptr returns a pointer to a copy of v. Used for optional origin/direction fields.
func Ptr(v Vec3) *Vec3 {
	return &v
}
