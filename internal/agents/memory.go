// Agent short-term knowledge: what the agent perceived this cycle, plus a
// bounded stream of the events it recognized over time.
package agents

import (
	"sort"

	"github.com/talgya/crowdsense/internal/perception"
	"github.com/talgya/crowdsense/internal/world"
)

const MaxRecollections = 50

// KnowledgeStore holds the perceived agents, objects and resolved events
// for the current cycle. Perceive clears and refills it every cycle.
type KnowledgeStore struct {
	Cycle   uint64                            `json:"cycle"`
	Agents  []world.AgentState                `json:"agents"`
	Objects []world.ObjectState               `json:"objects"`
	Events  []perception.CombinedReasonedData `json:"events"`

	Recollections []Recollection `json:"recollections,omitempty"`
}

// Recollection records an event the agent recognized in some cycle.
type Recollection struct {
	Cycle     uint64  `json:"cycle"`
	Event     string  `json:"event"`
	Certainty float64 `json:"certainty"` // 0–100
}

// Reset empties the per-cycle sets. Recollections survive.
func (k *KnowledgeStore) Reset(cycle uint64) {
	k.Cycle = cycle
	k.Agents = nil
	k.Objects = nil
	k.Events = nil
}

// Remember appends a recollection. When full, drops the least certain one
// to make room.
func (k *KnowledgeStore) Remember(cycle uint64, event string, certainty float64) {
	r := Recollection{Cycle: cycle, Event: event, Certainty: certainty}

	if len(k.Recollections) < MaxRecollections {
		k.Recollections = append(k.Recollections, r)
		return
	}

	minIdx := 0
	for i := 1; i < len(k.Recollections); i++ {
		if k.Recollections[i].Certainty < k.Recollections[minIdx].Certainty {
			minIdx = i
		}
	}
	if r.Certainty > k.Recollections[minIdx].Certainty {
		k.Recollections[minIdx] = r
	}
}

// Recent returns the most recent n recollections, newest first.
func (k *KnowledgeStore) Recent(n int) []Recollection {
	return topRecollections(k.Recollections, n, func(a, b Recollection) bool {
		return a.Cycle > b.Cycle
	})
}

// Strongest returns the n most certain recollections.
func (k *KnowledgeStore) Strongest(n int) []Recollection {
	return topRecollections(k.Recollections, n, func(a, b Recollection) bool {
		return a.Certainty > b.Certainty
	})
}

// Clone returns a deep copy safe to hand to readers outside the cycle.
func (k *KnowledgeStore) Clone() KnowledgeStore {
	return KnowledgeStore{
		Cycle:         k.Cycle,
		Agents:        append([]world.AgentState(nil), k.Agents...),
		Objects:       append([]world.ObjectState(nil), k.Objects...),
		Events:        append([]perception.CombinedReasonedData(nil), k.Events...),
		Recollections: append([]Recollection(nil), k.Recollections...),
	}
}

func topRecollections(all []Recollection, n int, less func(a, b Recollection) bool) []Recollection {
	if len(all) == 0 || n <= 0 {
		return nil
	}
	sorted := make([]Recollection, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
