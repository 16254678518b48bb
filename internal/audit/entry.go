// Package audit implements Component I: the persistent audit log store the
// event router forwards every LoggerEvent to, plus the paginated query
// contract spec.md §4.I documents for the (out-of-scope) UI, and the
// NDJSON-encoded broadcast bus Component J's activity stream sinks read
// from.
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one persisted audit row, and also the shape serialized onto an
// activity stream sink (spec.md §6 "Activity stream sink" body schema).
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	IP        string         `json:"ip"`
	Device    string         `json:"device"`
	Module    string         `json:"module"`
	Event     string         `json:"event"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MarshalNDJSON encodes the entry as a single terminated NDJSON line.
func (e Entry) MarshalNDJSON() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
