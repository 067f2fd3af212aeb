// Package wsbroadcast fans scheduler lifecycle and health events out to any
// number of connected WebSocket clients, for a live dashboard.
package wsbroadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	cws "github.com/coder/websocket"

	"github.com/Niraka/nebula/internal/logging"
	"github.com/Niraka/nebula/schedule"
)

// wireEvent is the JSON shape broadcast to every connected client.
type wireEvent struct {
	Kind string `json:"kind"`
}

// Hub accepts WebSocket connections and implements schedule.Listener,
// broadcasting every Event it receives to every currently connected client.
// A client that can't keep up is dropped rather than allowed to slow down
// the scheduler's own goroutine, since OnEvent is called synchronously from
// the loop.
type Hub struct {
	log logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *cws.Conn
	send chan wireEvent
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{log: logging.Noop(), clients: make(map[*client]struct{})}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Option configures a Hub at construction time.
type Option func(*Hub)

// WithLogger attaches a structured logger. Defaults to logging.Noop().
func WithLogger(log logging.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// as a broadcast recipient until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket accept failed", logging.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan wireEvent, 16)}
	h.register(c)
	defer h.unregister(c)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(cws.StatusNormalClosure, "server shutting down")
			return
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			if err := h.write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *cws.Conn, ev wireEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, cws.MessageText, data)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister removes c from the client set and closes its send channel, but
// only if c was still registered: OnEvent may have already dropped and
// closed it from the scheduler's goroutine, and closing an already-closed
// channel panics.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, registered := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if registered {
		close(c.send)
	}
}

// OnEvent implements schedule.Listener. It never blocks: a client whose
// send buffer is full is dropped instead of stalling the scheduler.
func (h *Hub) OnEvent(event schedule.Event) {
	ev := wireEvent{Kind: event.Kind.String()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
