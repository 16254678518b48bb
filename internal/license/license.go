// Package license implements Component B: a read-mostly cache for the
// currently active enterprise license, its ed25519 signature verification,
// and renewal against the license server with an on-disk last-good fallback
// so a restart never drops enterprise features before a fresh fetch
// succeeds.
package license

import (
	"errors"
	"fmt"
	"time"
)

// License is the decoded, verified payload served by the license server.
type License struct {
	Subscription     string    `json:"subscription"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	MaxUsers         int       `json:"max_users"`
	MaxLocations     int       `json:"max_locations"`
	MaxUserDevices   int       `json:"max_user_devices"`
	MaxNetworkDevices int      `json:"max_network_devices"`
}

// Expired reports whether the license is no longer valid at t.
func (l *License) Expired(t time.Time) bool {
	return !l.ExpiresAt.After(t)
}

var (
	// ErrMissing means no license has ever been loaded.
	ErrMissing = errors.New("license: no license loaded")
	// ErrExpired means the last-known license's expiry has passed.
	ErrExpired = errors.New("license: expired")
	// ErrInvalid means the license payload failed signature verification.
	ErrInvalid = errors.New("license: signature invalid")
)

// ErrLimitExceeded reports that a free-tier resource count has been
// exceeded without an active enterprise license covering it.
type ErrLimitExceeded struct {
	What string
}

func (e *ErrLimitExceeded) Error() string {
	return fmt.Sprintf("license: free tier limit exceeded: %s", e.What)
}
