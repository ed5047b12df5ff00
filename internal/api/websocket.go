package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans committed snapshots out to websocket subscribers. Slow subscribers
// only ever see the latest snapshot, and a snapshot older than one already
// broadcast is dropped.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Snapshot]struct{}
	latest      int
	sent        bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Snapshot]struct{})}
}

// Subscribe registers a subscriber. The returned func unregisters it.
func (h *Hub) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
}

func (h *Hub) Broadcast(snapshot Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sent && snapshot.Sequence <= h.latest {
		return
	}
	h.latest, h.sent = snapshot.Sequence, true

	for ch := range h.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// HandleWS streams the current snapshot, then one snapshot per committed mutation.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	state, err := s.ledger.Load(r.Context())
	if err != nil {
		s.logger.Error("load ledger for websocket", "error", err)
		return
	}
	if err := writeSnapshot(conn, newSnapshot(state)); err != nil {
		return
	}

	// drain client frames so close messages are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case snapshot := <-updates:
			if err := writeSnapshot(conn, snapshot); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snapshot)
}
