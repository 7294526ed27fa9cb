package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrHandleGone is the transport's "no longer deliverable" signal: the
// handle does not map to a live session in this process. The delivery
// pipeline reacts by pruning the registry row and falling back to the
// notification channel.
var ErrHandleGone = errors.New("session handle gone")

// ErrSessionBusy means the session exists but its outbound buffer is
// full. The delivery is failed without touching the registry.
var ErrSessionBusy = errors.New("session send buffer full")

// Gateway is the in-process half of the connection registry: it maps
// session handles to live WebSocket clients and pushes event payloads to
// them. Which handle belongs to which user is the durable registry's
// business, not the gateway's.
type Gateway struct {
	mu       sync.RWMutex
	sessions map[string]*Client
	logger   *slog.Logger
}

func NewGateway(logger *slog.Logger) *Gateway {
	return &Gateway{
		sessions: make(map[string]*Client),
		logger:   logger,
	}
}

// Attach binds a client session to its handle.
func (g *Gateway) Attach(c *Client) {
	g.mu.Lock()
	g.sessions[c.Handle] = c
	g.mu.Unlock()
}

// Detach removes the session for a handle. The registry row for the user
// is deliberately left in place; it gets replaced on the next reconnect
// or pruned on the next failed delivery.
func (g *Gateway) Detach(handle string) {
	g.mu.Lock()
	if c, ok := g.sessions[handle]; ok {
		delete(g.sessions, handle)
		close(c.send)
	}
	g.mu.Unlock()
}

// Push delivers a payload to the session behind handle. Returns
// ErrHandleGone when no such session lives in this process.
//
// The send attempt runs under the read lock: Detach closes c.send under
// the write lock, and a send racing that close would panic. The send is
// non-blocking, so holding the lock across it is cheap.
func (g *Gateway) Push(ctx context.Context, handle string, payload []byte) error {
	g.mu.RLock()
	c, ok := g.sessions[handle]
	if !ok {
		g.mu.RUnlock()
		return ErrHandleGone
	}

	full := false
	select {
	case c.send <- payload:
	default:
		full = true
	}
	g.mu.RUnlock()

	if full {
		// Slow consumer. Drop the session so its pumps unwind.
		// Detach needs the write lock, hence after the RUnlock.
		g.logger.Warn("dropping slow session", "handle", handle, "user_id", c.UserID)
		g.Detach(handle)
		return ErrSessionBusy
	}
	return nil
}
