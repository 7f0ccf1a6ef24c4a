package perception

import (
	"math"

	"github.com/talgya/crowdsense/internal/knowledge"
)

// Certainty scores how well an observed value fits a rule, 0 to 100.
// Branches are evaluated in order: an exact hit on a zero-width range, the
// acceptable-deviation cutoff, the linear outer band, the tight band.
func Certainty(rule knowledge.EventPropertyKnowledge, observed float64) float64 {
	if rule.Min == rule.Max && observed == rule.Min && observed == rule.Max {
		return 100
	}
	d := math.Abs(rule.Alpha - observed)
	if d >= rule.R {
		return 0
	}
	if rule.Epsilon <= 0 {
		return 0
	}
	var c float64
	if d >= rule.Epsilon {
		c = 70 - ((d-rule.Epsilon)/rule.Epsilon)*70
	} else {
		c = 100 - (d/rule.Epsilon)*30
	}
	return math.Max(0, math.Min(100, c))
}
