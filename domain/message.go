// Package domain contains core concepts of the chat relay.
// This file defines Message records and related rules.
// Messages are immutable once appended to the store.
package domain

import (
	"github.com/google/uuid"
)

// DefaultRoom is the single shared room this relay serves.
const DefaultRoom = "general"

// Message represents an immutable chat record.
type Message struct {
	Room      string
	ID        uuid.UUID // unique identifier
	Timestamp int64     // seconds since epoch
	Username  string
	Content   string
}

// DeliveredMessage is the per-recipient view of a message,
// the only shape ever pushed over the wire.
type DeliveredMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Delivery wraps one or more messages for a single push to a connection.
type Delivery struct {
	Messages []DeliveredMessage `json:"messages"`
}
