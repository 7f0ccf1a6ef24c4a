// Package world holds the shared environment agents perceive: agent and
// object states, the hex cell grid used to bucket agents by area, the
// object index, and per-agent cell snapshots.
//
// The grid uses pointy-top axial coordinates (q, r) laid over the XZ plane.
package world

import (
	"math"

	"github.com/talgya/crowdsense/internal/geom"
)

// HexCoord identifies a grid cell using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

// Disc returns every coordinate within radius hex steps of center,
// center included, ring by ring.
func Disc(center HexCoord, radius int) []HexCoord {
	if radius < 0 {
		return nil
	}
	out := make([]HexCoord, 0, 1+3*radius*(radius+1))
	for q := -radius; q <= radius; q++ {
		for r := max(-radius, -q-radius); r <= min(radius, -q+radius); r++ {
			out = append(out, HexCoord{Q: center.Q + q, R: center.R + r})
		}
	}
	return out
}

// Center returns the world-space center of the cell on the ground plane.
// size is the cell's outer radius.
func (h HexCoord) Center(size float64) geom.Vec3 {
	x := size * (math.Sqrt(3)*float64(h.Q) + math.Sqrt(3)/2*float64(h.R))
	z := size * 1.5 * float64(h.R)
	return geom.V(x, 0, z)
}

// CellAt returns the cell containing p, ignoring height.
func CellAt(p geom.Vec3, size float64) HexCoord {
	q := (math.Sqrt(3)/3*p.X - p.Z/3) / size
	r := (2.0 / 3.0 * p.Z) / size
	return roundAxial(q, r)
}

func roundAxial(fq, fr float64) HexCoord {
	fs := -fq - fr
	q, r, s := math.Round(fq), math.Round(fr), math.Round(fs)
	dq, dr, ds := math.Abs(q-fq), math.Abs(r-fr), math.Abs(s-fs)
	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return HexCoord{Q: int(q), R: int(r)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
