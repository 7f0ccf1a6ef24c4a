package agents

import (
	"log/slog"

	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/world"
)

// Perceive is the first AGENT-phase hook. It discards last cycle's
// combination data, resolves vision against snap, stores the perceived
// agents and objects, and collects raw stimuli for CombinePerceptions.
// snap is only read.
func (a *Agent) Perceive(snap world.CellSnapshot) {
	a.engine.Clear()
	a.Memory.Reset(snap.Cycle)

	seen := a.pipe.Resolver.Resolve(a.Vision, a.ID, a.Pose(), snap, a.rng)
	a.Memory.Agents = seen.Agents
	a.Memory.Objects = seen.Objects

	stimuli := a.pipe.Sensor.Sense(snap.Cycle, a.Eye(), seen.Events, snap.Events, a.rng)
	a.engine.Add(stimuli...)
}

// CombinePerceptions is the second AGENT-phase hook. It runs the
// combination levels over this cycle's stimuli and commits the selected
// events to Memory.
func (a *Agent) CombinePerceptions() []perception.CombinedReasonedData {
	selected := a.engine.Combine(a.Eye())
	a.Memory.Events = selected
	for _, ev := range selected {
		a.Memory.Remember(a.Memory.Cycle, ev.Name, ev.Certainty)
	}
	if len(selected) > 0 {
		slog.Debug("agent recognized events",
			"agent", a.ID,
			"cycle", a.Memory.Cycle,
			"count", len(selected),
			"top", selected[0].Name,
		)
	}
	return selected
}
