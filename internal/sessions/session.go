package sessions

import "time"

// Handoff is a federated assertion parked under a caller-chosen session id
// until the device polling that id picks it up.
type Handoff struct {
	SessionID string
	Assertion string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (h Handoff) expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && !now.Before(h.ExpiresAt)
}
