// Package models holds shared domain types used across the service layers.
package models

import "github.com/google/uuid"

// User represents an identity resolved for a request or connection.
// Anonymous spectators get IsAuthenticated == false and a generated ID.
type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// BotMode selects the behavior of a non-human seat.
type BotMode string

const (
	BotPassive    BotMode = "passive"
	BotZombie     BotMode = "zombie"
	BotAggressive BotMode = "aggressive"
)

// Valid reports whether m is a known bot mode.
func (m BotMode) Valid() bool {
	switch m {
	case BotPassive, BotZombie, BotAggressive:
		return true
	}
	return false
}

// PlayerColor is the seat color assigned at join time.
type PlayerColor string

// DefaultColors is the seat color assignment order.
var DefaultColors = []PlayerColor{"red", "blue", "green", "yellow", "purple", "orange"}
