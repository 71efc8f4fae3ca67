// Package domain contains core concepts of the chat relay.
// This file defines Connection entities and related invariants.
// No transport or storage logic should be added here.
package domain

// Connection associates a live session identifier with the identity
// that authenticated it. A connection exists in the registry if and
// only if it is currently live.
type Connection struct {
	ID       string
	Username string
}
