package vision

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/world"
)

// Algorithm selects how an agent sees.
type Algorithm uint8

const (
	// Standard runs the point, box and ray tests, then occlusion.
	Standard Algorithm = iota
	// Global perceives everything flagged visible, with no geometry.
	Global
	// Blind perceives nothing.
	Blind
	// NonDeterministic tests a random sample of candidate agents.
	NonDeterministic
)

func (a Algorithm) String() string {
	switch a {
	case Standard:
		return "standard"
	case Global:
		return "global"
	case Blind:
		return "blind"
	case NonDeterministic:
		return "nondeterministic"
	default:
		return "unknown"
	}
}

// ParseAlgorithm converts an algorithm name (case-insensitive) to an
// Algorithm. "divas" is read as Standard.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "divas", "":
		return Standard, nil
	case "global":
		return Global, nil
	case "blind":
		return Blind, nil
	case "nondeterministic", "sampled":
		return NonDeterministic, nil
	}
	return 0, fmt.Errorf("unknown vision algorithm %q", name)
}

func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(b []byte) error {
	v, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Config holds the ray and sampling parameters shared by all agents.
type Config struct {
	Rings       int `yaml:"rings"`
	RaysPerRing int `yaml:"rays_per_ring"`
	SampleSize  int `yaml:"sample_size"`
}

// DefaultConfig returns 6 rings of 10 rays and a sample of 10 agents.
func DefaultConfig() Config {
	return Config{Rings: 6, RaysPerRing: 10, SampleSize: 10}
}

// Result is what one agent saw in one cycle.
type Result struct {
	Agents  []world.AgentState
	Objects []world.ObjectState
	Events  []*events.Event
}

// Resolver runs the vision algorithms. It holds only configuration and is
// safe for concurrent use.
type Resolver struct {
	cfg Config
}

// NewResolver creates a resolver.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve computes what self sees from pose p. rng is only drawn from by
// NonDeterministic and may be nil for the other algorithms.
func (r *Resolver) Resolve(alg Algorithm, self world.AgentID, p Pose, snap world.CellSnapshot, rng *entropy.Source) Result {
	switch alg {
	case Blind:
		return Result{}
	case Global:
		return r.global(self, snap)
	case NonDeterministic:
		return r.standard(self, p, snap, r.sampleAgents(self, snap.Agents, rng))
	default:
		return r.standard(self, p, snap, snap.Agents)
	}
}

func (r *Resolver) global(self world.AgentID, snap world.CellSnapshot) Result {
	var res Result
	for _, a := range snap.Agents {
		if a.ID != self {
			res.Agents = append(res.Agents, a)
		}
	}
	res.Objects = append(res.Objects, snap.Objects...)
	for _, e := range snap.Events {
		if e.IsCurrentlyVisible() {
			res.Events = append(res.Events, e)
		}
	}
	return res
}

func (r *Resolver) standard(self world.AgentID, p Pose, snap world.CellSnapshot, agents []world.AgentState) Result {
	var res Result
	for _, a := range agents {
		if a.ID != self && p.TestVisible(a.Eye()) {
			res.Agents = append(res.Agents, a)
		}
	}
	for _, e := range snap.Events {
		if e.IsCurrentlyVisible() && p.TestVisible(e.Origin) {
			res.Events = append(res.Events, e)
		}
	}

	rays := p.ConeRays(r.cfg.Rings, r.cfg.RaysPerRing)
	var deferred []world.ObjectState
	for _, o := range snap.Objects {
		if !p.TestObject(o, rays) {
			continue
		}
		if !o.Obstructing || (!o.Collidable && p.Inside(o)) {
			res.Objects = append(res.Objects, o)
			continue
		}
		deferred = append(deferred, o)
	}
	res.Objects = append(res.Objects, Unobstructed(rays, deferred, p.VisibleDistance)...)
	return res
}

// sampleAgents returns at most SampleSize candidate agents other than self.
func (r *Resolver) sampleAgents(self world.AgentID, agents []world.AgentState, rng *entropy.Source) []world.AgentState {
	others := make([]world.AgentState, 0, len(agents))
	for _, a := range agents {
		if a.ID != self {
			others = append(others, a)
		}
	}
	if len(others) <= r.cfg.SampleSize || rng == nil {
		if len(others) > r.cfg.SampleSize {
			return others[:max(r.cfg.SampleSize, 0)]
		}
		return others
	}
	picked := rng.Sample(len(others), r.cfg.SampleSize)
	out := make([]world.AgentState, len(picked))
	for i, idx := range picked {
		out[i] = others[idx]
	}
	return out
}

// Unobstructed is the occlusion pass: each ray confirms only the closest
// candidate it hits within maxDist. Confirmed objects are returned in
// candidate order. An empty candidate set yields nothing.
func Unobstructed(rays []geom.Ray, candidates []world.ObjectState, maxDist float64) []world.ObjectState {
	if len(candidates) == 0 {
		return nil
	}
	confirmed := make([]bool, len(candidates))
	for _, ray := range rays {
		best, bestT := -1, math.Inf(1)
		for i, o := range candidates {
			t, ok := ray.IntersectAABB(o.Box.Normalized())
			if ok && t <= maxDist && t < bestT {
				best, bestT = i, t
			}
		}
		if best >= 0 {
			confirmed[best] = true
		}
	}
	var out []world.ObjectState
	for i, ok := range confirmed {
		if ok {
			out = append(out, candidates[i])
		}
	}
	return out
}
