// Package knowledge holds an agent's static, learned event-property rules:
// for each event name, which stimuli it produces and how far an observed
// value may stray from the expected one.
package knowledge

import (
	"sort"

	"github.com/talgya/crowdsense/internal/events"
)

// EventPropertyKnowledge is one learned rule for one property of one event.
type EventPropertyKnowledge struct {
	Event   string       `json:"event"`
	Type    string       `json:"type"`
	Sense   events.Sense `json:"sense"`
	Alpha   float64      `json:"alpha"`   // expected mean
	R       float64      `json:"r"`       // acceptable deviation radius
	Epsilon float64      `json:"epsilon"` // tight-tolerance band
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
}

type senseType struct {
	sense events.Sense
	typ   string
}

// Base is an immutable knowledge base. Safe for concurrent reads.
type Base struct {
	byEvent map[string][]EventPropertyKnowledge
	order   []string // event names in load order
	index   map[senseType][]EventPropertyKnowledge
}

// NewBase builds a base from rules. Rule order is preserved within each
// event and within each (sense, type) lookup.
func NewBase(rules []EventPropertyKnowledge) *Base {
	b := &Base{
		byEvent: make(map[string][]EventPropertyKnowledge),
		index:   make(map[senseType][]EventPropertyKnowledge),
	}
	for _, r := range rules {
		if _, ok := b.byEvent[r.Event]; !ok {
			b.order = append(b.order, r.Event)
		}
		b.byEvent[r.Event] = append(b.byEvent[r.Event], r)
		key := senseType{r.Sense, r.Type}
		b.index[key] = append(b.index[key], r)
	}
	return b
}

// Matching returns every rule perceived through sense with the given
// property type, across all events.
func (b *Base) Matching(sense events.Sense, typ string) []EventPropertyKnowledge {
	if b == nil {
		return nil
	}
	return b.index[senseType{sense, typ}]
}

// Expected returns the full set of properties the named event is expected
// to produce.
func (b *Base) Expected(event string) []EventPropertyKnowledge {
	if b == nil {
		return nil
	}
	return b.byEvent[event]
}

// Events returns the known event names in load order.
func (b *Base) Events() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.order...)
}

// Len returns the total number of rules.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, rules := range b.byEvent {
		n += len(rules)
	}
	return n
}

// Types returns the sorted distinct property types known for a sense.
func (b *Base) Types(sense events.Sense) []string {
	if b == nil {
		return nil
	}
	var out []string
	for k := range b.index {
		if k.sense == sense {
			out = append(out, k.typ)
		}
	}
	sort.Strings(out)
	return out
}
