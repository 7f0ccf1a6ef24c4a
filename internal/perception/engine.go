package perception

import (
	"sort"

	"github.com/samber/lo"

	"github.com/talgya/crowdsense/internal/geom"
	"github.com/talgya/crowdsense/internal/knowledge"
)

// Config holds the source comparison thresholds.
type Config struct {
	SameSourceDistance float64 `yaml:"same_source_distance"`
	SameSourceAngleDeg float64 `yaml:"same_source_angle_deg"`
}

// DefaultConfig returns 5 units and 5 degrees.
func DefaultConfig() Config {
	return Config{SameSourceDistance: 5, SameSourceAngleDeg: 5}
}

// Engine is one agent's combination pipeline. It is not safe for
// concurrent use; each agent owns one.
type Engine struct {
	cfg Config
	kb  *knowledge.Base

	sensed      []SensedData
	reasoned    []ReasonedData
	candidates  []CombinedReasonedData
	selected    []CombinedReasonedData
	eventNumber int
}

// NewEngine creates an engine reading rules from kb. A nil kb yields no
// interpretations.
func NewEngine(cfg Config, kb *knowledge.Base) *Engine {
	return &Engine{cfg: cfg, kb: kb}
}

// Clear discards everything collected or derived in the previous cycle.
func (e *Engine) Clear() {
	e.sensed = nil
	e.reasoned = nil
	e.candidates = nil
	e.selected = nil
	e.eventNumber = 0
}

// Add records raw stimuli for the current cycle.
func (e *Engine) Add(sd ...SensedData) {
	e.sensed = append(e.sensed, sd...)
}

// Combine runs every level over the stimuli added since the last Clear and
// returns the selected events, best first. pos is the agent's position.
func (e *Engine) Combine(pos geom.Vec3) []CombinedReasonedData {
	cmp := Comparator{
		Position:    pos,
		MaxDistance: e.cfg.SameSourceDistance,
		MaxAngleDeg: e.cfg.SameSourceAngleDeg,
	}
	e.eventNumber = countEvents(cmp, e.sensed)
	e.basicCombination()
	e.currentCombination(cmp)
	e.crossCycleCombination()
	e.selected = selectEvents(cmp, e.candidates, e.eventNumber)
	return e.selected
}

// Sensed returns this cycle's raw stimuli.
func (e *Engine) Sensed() []SensedData { return e.sensed }

// Reasoned returns this cycle's Level 2 output.
func (e *Engine) Reasoned() []ReasonedData { return e.reasoned }

// Candidates returns this cycle's Level 3 pool.
func (e *Engine) Candidates() []CombinedReasonedData { return e.candidates }

// Selected returns this cycle's Level 4 winners.
func (e *Engine) Selected() []CombinedReasonedData { return e.selected }

// EventNumber returns the estimated distinct-event count for this cycle.
func (e *Engine) EventNumber() int { return e.eventNumber }

// countEvents greedily clusters stimuli by source; each cluster is one
// estimated physical event.
func countEvents(cmp Comparator, sensed []SensedData) int {
	var reps []Source
	for _, sd := range sensed {
		found := false
		for _, r := range reps {
			if cmp.Same(r, sd.Source) {
				found = true
				break
			}
		}
		if !found {
			reps = append(reps, sd.Source)
		}
	}
	return len(reps)
}

// basicCombination is Level 2: score each stimulus against every matching
// rule and keep the best three interpretations. A score is the rule's
// certainty scaled by the sense's trust and the sensor's own certainty.
func (e *Engine) basicCombination() {
	for _, sd := range e.sensed {
		var found []Candidate
		for _, rule := range e.kb.Matching(sd.Sense, sd.Type) {
			c := Certainty(rule, sd.Value) * sd.Trust * sd.Certainty / 100
			if c <= 0 {
				continue
			}
			if _, i, ok := lo.FindIndexOf(found, func(f Candidate) bool { return f.Name == rule.Event }); ok {
				if c > found[i].Certainty {
					found[i].Certainty = c
				}
				continue
			}
			found = append(found, Candidate{Name: rule.Event, Type: rule.Type, Certainty: c})
		}
		if len(found) == 0 {
			continue
		}
		// Stable so that the first-seen candidate wins ties.
		sort.SliceStable(found, func(i, j int) bool {
			return found[i].Certainty > found[j].Certainty
		})

		rd := ReasonedData{
			Sense:     sd.Sense,
			Type:      sd.Type,
			Intensity: sd.Intensity,
			Source:    sd.Source,
		}
		rd.N = copy(rd.Candidates[:], found)
		e.reasoned = append(e.reasoned, rd)
	}
}

// currentCombination is Level 3: every ranked interpretation becomes a
// candidate event, credited with each expected property that some stimulus
// confirms at the same rank from a consistent source.
func (e *Engine) currentCombination(cmp Comparator) {
	for i, rd := range e.reasoned {
		for rank, cand := range rd.Ranked() {
			expected := e.kb.Expected(cand.Name)
			acc := CombinedReasonedData{
				Name:      cand.Name,
				Intensity: rd.Intensity,
				Expected:  len(expected),
				Rank:      rank,
				Source:    rd.Source,
			}
			total := 0.0
			for _, exp := range expected {
				for j, other := range e.reasoned {
					if rank >= other.N {
						continue
					}
					oc := other.Candidates[rank]
					if oc.Name != cand.Name || other.Type != exp.Type || other.Sense != exp.Sense {
						continue
					}
					if j != i && !cmp.Same(acc.Source, other.Source) {
						continue
					}
					acc.Matched++
					total += oc.Certainty
					acc.Source = acc.Source.merge(other.Source)
					break
				}
			}
			if acc.Expected > 0 {
				acc.Certainty = total / float64(acc.Expected)
			}
			acc.EventNumber = e.eventNumber
			if acc.Certainty > 0 {
				e.candidates = append(e.candidates, acc)
			}
		}
	}
}

// crossCycleCombination is Level X, combining knowledge across cycles.
// It is an extension point and currently does nothing.
func (e *Engine) crossCycleCombination() {}

// selectEvents is Level 4: repeatedly take the most certain candidate and
// drop every candidate sharing its source, up to quota winners.
func selectEvents(cmp Comparator, pool []CombinedReasonedData, quota int) []CombinedReasonedData {
	pool = append([]CombinedReasonedData(nil), pool...)
	var out []CombinedReasonedData
	for len(pool) > 0 && len(out) < quota {
		best := 0
		for i := range pool {
			if pool[i].Certainty > pool[best].Certainty {
				best = i
			}
		}
		winner := pool[best]
		out = append(out, winner)
		pool = lo.Filter(pool, func(c CombinedReasonedData, i int) bool {
			return i != best && !cmp.Same(winner.Source, c.Source)
		})
	}
	return out
}
