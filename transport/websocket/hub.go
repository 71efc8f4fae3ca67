// Package websocket is the transport layer of the relay: it upgrades
// HTTP requests, raises lifecycle events, routes in-band actions and
// implements the delivery gateway over live gorilla connections.
package websocket

import (
	"chat-relay/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// peer wraps one live connection. Gorilla connections support one
// concurrent writer only, so every write goes through the peer mutex.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub maintains the set of live websocket connections indexed by
// connection id and pushes payloads to them. It is the in-process
// equivalent of a management endpoint addressed by connection id.
//
// Hub is safe for concurrent use by multiple goroutines.
type Hub struct {
	log       *slog.Logger
	writeWait time.Duration

	mu    sync.RWMutex
	peers map[string]*peer
}

func NewHub(log *slog.Logger, writeWait time.Duration) *Hub {
	return &Hub{log: log, writeWait: writeWait, peers: make(map[string]*peer)}
}

// Attach makes a connection addressable by id.
func (h *Hub) Attach(connectionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[connectionID] = &peer{conn: conn}
}

// Detach drops the connection from the table. Detaching an unknown id
// is a no-op.
func (h *Hub) Detach(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, connectionID)
}

// Len reports the number of attached connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Push serializes the payload and writes it to the one target
// connection. A single best-effort, at-most-once send: any failure is
// reported as a DeliveryError and never retried here.
func (h *Hub) Push(ctx context.Context, connectionID string, payload any) error {
	h.mu.RLock()
	p, ok := h.peers[connectionID]
	h.mu.RUnlock()
	if !ok {
		return &errors.DeliveryError{ConnectionID: connectionID, Err: errors.ErrUnknownConnection}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return &errors.DeliveryError{ConnectionID: connectionID, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err = p.conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return &errors.DeliveryError{ConnectionID: connectionID, Err: err}
	}
	if err = p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &errors.DeliveryError{ConnectionID: connectionID, Err: err}
	}
	return nil
}
