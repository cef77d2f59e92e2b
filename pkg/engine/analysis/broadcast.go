// Package analysis broadcasts live search updates to connected spectators
// over a websocket, the same "push engine state as it changes" shape as the
// teacher's livechess eboard feed (cmd/livechess-uci), but fanning out from
// one engine to many viewers instead of reading from one physical board
// (spec.md 4.7, "Live Analysis Broadcast").
package analysis

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/uct"
	"github.com/seekerror/logw"
)

// Update is one JSON message pushed to every connected spectator.
type Update struct {
	Move     string  `json:"move"`
	Playouts int64   `json:"playouts"`
	WinRate  float64 `json:"winRate"`
}

// Hub fans out Update messages to every connected websocket client. The zero
// value is not usable; construct with NewHub.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Update
}

// NewHub creates an empty Hub, accepting connections from any origin (a
// spectator page is expected to be served separately and is not same-origin
// with the engine process by default).
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*websocket.Conn]chan Update{},
	}
}

// ServeHTTP upgrades the request to a websocket and registers the connection
// as a spectator until it disconnects or ctx is cancelled.
func (h *Hub) ServeHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logw.Errorf(ctx, "Upgrade failed: %v", err)
		return
	}
	ch := make(chan Update, 16)

	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(u); err != nil {
				logw.Debugf(ctx, "Spectator write failed, dropping: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast pushes u to every connected spectator, dropping it for any client
// whose outbound buffer is full rather than blocking the search loop.
func (h *Hub) Broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- u:
		default:
			// slow client; drop this update for it rather than backpressure the search
		}
	}
}

// Pump reads engine analysis results from results and rebroadcasts each as an
// Update until results closes. layout renders the move vertex for display.
func Pump(h *Hub, layout board.Layout, results <-chan uct.Result) {
	for r := range results {
		h.Broadcast(Update{
			Move:     layout.GTPVertex(r.Move),
			Playouts: r.Playouts,
			WinRate:  r.WinRate,
		})
	}
}
