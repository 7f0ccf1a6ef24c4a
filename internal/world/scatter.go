// Environment generation using layered simplex noise.
// Objects are placed on a regular lattice wherever a density layer exceeds
// a threshold; a second layer picks what kind of object goes there.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/crowdsense/internal/geom"
)

// ScatterConfig holds object placement parameters.
type ScatterConfig struct {
	Seed    int64   // Random seed (0 = random)
	Extent  float64 // Half-width of the square area on the XZ plane
	Density float64 // Fraction of lattice sites that receive an object (0.0–1.0)
	Spacing float64 // Lattice spacing between candidate sites
}

// DefaultScatterConfig returns a sparse plaza-sized layout.
func DefaultScatterConfig() ScatterConfig {
	return ScatterConfig{
		Seed:    0,
		Extent:  100,
		Density: 0.15,
		Spacing: 8,
	}
}

// Scatter places environment objects deterministically from the seed.
// Objects never cover the origin site so a default spawn point stays clear.
func Scatter(cfg ScatterConfig) []ObjectState {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Spacing <= 0 || cfg.Extent <= 0 || cfg.Density <= 0 {
		return nil
	}

	densityNoise := opensimplex.NewNormalized(seed)
	kindNoise := opensimplex.NewNormalized(seed + 1)
	sizeNoise := opensimplex.NewNormalized(seed + 2)

	threshold := 1 - cfg.Density
	var objs []ObjectState
	n := int(cfg.Extent / cfg.Spacing)
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			if i == 0 && j == 0 {
				continue
			}
			x := float64(i) * cfg.Spacing
			z := float64(j) * cfg.Spacing

			d := octaveNoise(densityNoise, x, z, 3, 0.05, 0.5)
			if d < threshold {
				continue
			}
			k := octaveNoise(kindNoise, x, z, 2, 0.03, 0.5)
			s := octaveNoise(sizeNoise, x, z, 2, 0.1, 0.5)

			obj := deriveObject(k, s, cfg.Spacing)
			obj.ID = ObjectID(len(objs) + 1)
			obj.Box = geom.AABB{
				Min: geom.V(x-obj.Box.Max.X, 0, z-obj.Box.Max.Z),
				Max: geom.V(x+obj.Box.Max.X, obj.Box.Max.Y, z+obj.Box.Max.Z),
			}
			objs = append(objs, obj)
		}
	}
	return objs
}

// deriveObject picks the object kind and its half-extents (stored in
// Box.Max until the caller positions it).
func deriveObject(kind, size, spacing float64) ObjectState {
	half := spacing * (0.15 + 0.3*size)
	switch {
	case kind < 0.35:
		return ObjectState{
			Name:        "tree",
			Box:         geom.AABB{Max: geom.V(half*0.4, 6+4*size, half*0.4)},
			Collidable:  true,
			Obstructing: true,
		}
	case kind < 0.7:
		return ObjectState{
			Name:        "building",
			Box:         geom.AABB{Max: geom.V(half, 8+12*size, half)},
			Collidable:  true,
			Obstructing: true,
		}
	default:
		// Tents can be walked into; an agent inside still sees the canvas.
		return ObjectState{
			Name:        "tent",
			Box:         geom.AABB{Max: geom.V(half, 3, half)},
			Collidable:  false,
			Obstructing: true,
		}
	}
}

// octaveNoise samples multi-octave simplex noise, normalized to 0..1.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// clearance is the distance from p to the nearest object footprint on the
// ground plane.
func clearance(p geom.Vec3, objs []ObjectState) float64 {
	best := math.Inf(1)
	for _, o := range objs {
		dx := math.Max(0, math.Max(o.Box.Min.X-p.X, p.X-o.Box.Max.X))
		dz := math.Max(0, math.Max(o.Box.Min.Z-p.Z, p.Z-o.Box.Max.Z))
		if d := math.Hypot(dx, dz); d < best {
			best = d
		}
	}
	return best
}
