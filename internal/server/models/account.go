// Package models holds the server-side domain types.
package models

import "time"

// Account is a joined user. Auth is the client-derived auth token; the server
// stores it opaquely and looks accounts up by it.
type Account struct {
	ID        string
	Auth      string
	CreatedAt time.Time
}
