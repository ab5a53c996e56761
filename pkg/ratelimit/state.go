// Package ratelimit backs off from the marketplace after it answers with
// 429 Too Many Requests. The back-off window is persisted in the shared
// store so the CLI and the proxy respect it across processes.
package ratelimit

import (
	"time"
)

// StoreKeyState is the store key holding the serialized State.
const StoreKeyState = "cmfeed:ratelimit:state"

// DefaultBackoff applies when a 429 response carries no usable Retry-After.
const DefaultBackoff = 60 * time.Second

// MaxBackoff caps the window taken from a Retry-After header.
const MaxBackoff = 15 * time.Minute

// State represents the current back-off window.
type State struct {
	// BlockedUntil is the earliest time a new request may be sent.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastStatus is the HTTP status that opened the window.
	LastStatus int `json:"last_status"`

	// LastUpdate is when this state was written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked returns true while now is inside the back-off window.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns the duration until requests are allowed again.
// Returns 0 if the window has already passed.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
