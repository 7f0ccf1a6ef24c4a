// Agent spawning: creates crowds around gatherings and individually placed
// agents from scenarios.
package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/world"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng      *rand.Rand
	nextID   AgentID
	seed     int64
	pipe     *Pipeline
	defaults Body
}

// NewSpawner creates an agent spawner. defaults supplies the eyesight of
// crowd members; their position and heading are drawn per agent.
func NewSpawner(seed int64, pipe *Pipeline, defaults Body) *Spawner {
	return &Spawner{
		rng:      rand.New(rand.NewSource(seed + 300)),
		nextID:   1,
		seed:     seed,
		pipe:     pipe,
		defaults: defaults,
	}
}

// SetNextID sets the next agent ID to be issued.
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// Spawn creates one agent with an explicit body. An empty name is
// generated.
func (s *Spawner) Spawn(name string, body Body) *Agent {
	id := s.nextID
	s.nextID++
	if name == "" {
		name = s.generateName()
	}
	if body.Heading.IsNull() {
		body.Heading = s.randomHeading()
	}
	return NewAgent(id, name, body, s.pipe, s.seed)
}

// SpawnCrowd creates count agents spread uniformly over a disc of the given
// radius around a gathering, each facing a random direction.
func (s *Spawner) SpawnCrowd(count int, g world.Gathering, radius float64) []*Agent {
	agents := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		body := s.defaults
		// sqrt keeps the density uniform over the disc.
		r := radius * math.Sqrt(s.rng.Float64())
		theta := 2 * math.Pi * s.rng.Float64()
		body.Position = g.Center.Add(geom.V(r*math.Cos(theta), 0, r*math.Sin(theta)))
		body.Heading = s.randomHeading()
		agents = append(agents, s.Spawn("", body))
	}
	return agents
}

func (s *Spawner) randomHeading() geom.Vec3 {
	theta := 2 * math.Pi * s.rng.Float64()
	return geom.V(math.Cos(theta), 0, math.Sin(theta))
}

func (s *Spawner) generateName() string {
	var firsts []string
	if s.rng.Float32() < 0.5 {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
}

var lastNames = []string{
	"Voss", "Ashford", "Dunmore", "Millward", "Copperfield", "Silverdale",
	"Deepwell", "Brightwater", "Windholm", "Marshwood", "Riverstone",
	"Holloway", "Farrow", "Wyatt", "Thatcher", "Caldwell", "Harper",
	"Mercer", "Ward", "Cross",
}
