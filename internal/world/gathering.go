// Gathering placement: finds open spots where crowds assemble.
package world

import (
	"math/rand"
	"sort"

	"github.com/talgya/crowdsense/internal/geom"
)

// Gathering is a named open spot on the ground plane where agents spawn.
type Gathering struct {
	Name   string    `json:"name"`
	Center geom.Vec3 `json:"center"`
	Score  float64   `json:"score"` // clearance to the nearest object
}

// PlaceGatherings picks up to count open spots within extent, preferring
// sites far from any object and keeping them minDist apart. Results are
// sorted by score descending.
func PlaceGatherings(objs []ObjectState, extent, minDist float64, count int, seed int64) []Gathering {
	rng := rand.New(rand.NewSource(seed + 200))
	if count <= 0 || extent <= 0 {
		return nil
	}

	// Score a lattice of candidate sites by clearance.
	step := max(minDist/2, 1)
	var candidates []Gathering
	for x := -extent; x <= extent; x += step {
		for z := -extent; z <= extent; z += step {
			p := geom.V(x, 0, z)
			s := clearance(p, objs)
			if s > 1 {
				candidates = append(candidates, Gathering{Center: p, Score: s})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var out []Gathering
	for _, c := range candidates {
		if len(out) >= count {
			break
		}
		if tooClose(c.Center, out, minDist) {
			continue
		}
		out = append(out, c)
	}

	names := generateNames(rng, len(out))
	for i := range out {
		out[i].Name = names[i]
	}
	return out
}

func tooClose(p geom.Vec3, existing []Gathering, minDist float64) bool {
	for _, g := range existing {
		if geom.Distance(p, g.Center) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural place names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Market", "Old", "Harbor", "Bell", "Stone", "Cross", "Fountain",
		"Silver", "Garden", "Castle", "Mill", "Bridge", "High", "River",
	}
	suffixes := []string{
		" Square", " Plaza", " Green", " Yard", " Court", " Park", " Steps",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	limit := len(prefixes) * len(suffixes)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if used[name] && len(used) < limit {
			continue
		}
		used[name] = true
		names = append(names, name)
	}
	return names
}
