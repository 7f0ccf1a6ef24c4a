package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/crowdsense/internal/engine"
)

const (
	streamWriteWait = 5 * time.Second
	streamPingEvery = 15 * time.Second
	streamReadWait  = 2 * streamPingEvery
)

// StreamMessage is one websocket frame on /api/v1/stream.
type StreamMessage struct {
	Type   string              `json:"type"` // "hello" or "cycle"
	Status *engine.Status      `json:"status,omitempty"`
	Report *engine.CycleReport `json:"report,omitempty"`
}

// handleStream upgrades to a websocket and pushes every cycle report.
// Clients only read; anything they send is discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	n := s.streams.Add(1)
	defer s.streams.Add(-1)
	if s.MaxStreams > 0 && int(n) > s.MaxStreams {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID, "remote", r.RemoteAddr)

	// Reader: keeps pongs flowing and notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	status := s.Sim.Status()
	if err := writeFrame(conn, StreamMessage{Type: "hello", Status: &status}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		select {
		case rep, ok := <-ch:
			if !ok {
				return
			}
			if err := writeFrame(conn, StreamMessage{Type: "cycle", Report: &rep}); err != nil {
				slog.Info("stream client dropped", "sub_id", subID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", subID)
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, m StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(m)
}
