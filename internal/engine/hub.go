package engine

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is how many reports a slow subscriber may lag behind
// before reports are dropped for it.
const subscriberBuffer = 16

// hub fans cycle reports out to subscribers.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan CycleReport
}

// Subscribe returns a channel receiving every subsequent cycle report.
// The channel is closed by Unsubscribe.
func (s *Simulation) Subscribe() (int, <-chan CycleReport) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.nextID++
	ch := make(chan CycleReport, subscriberBuffer)
	s.hub.subs[s.hub.nextID] = ch
	return s.hub.nextID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if ch, ok := s.hub.subs[id]; ok {
		delete(s.hub.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (s *Simulation) Subscribers() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.subs)
}

// broadcast never blocks the cycle: a full subscriber misses the report.
func (h *hub) broadcast(r CycleReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- r:
		default:
			slog.Warn("subscriber lagging, report dropped", "sub_id", id, "cycle", r.Stats.Cycle)
		}
	}
}
