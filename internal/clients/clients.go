// Package clients implements Component E: the in-memory tracker of
// currently connected WireGuard client sessions, keyed by location then
// public key, so the event router and gateway registry can answer "is this
// device currently active" without a database round trip.
package clients

import (
	"errors"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/defguard/defguard-core/pkg/metrics"
)

// ErrClientAlreadyConnected is returned by Connect when a session already
// exists for the given location and public key, per spec.md §4.E
// ("connect... fails with ClientAlreadyConnected if the key is present for
// that location"). The gateway must retry via UpdateStats instead of a
// second Connect for an already-tracked peer.
var ErrClientAlreadyConnected = errors.New("clients: already connected")

// ClientState is one client's last-known session data.
type ClientState struct {
	PublicKey       wgtypes.Key
	Endpoint        netip.AddrPort
	LastHandshake   time.Time
	BytesUploaded   uint64
	BytesDownloaded uint64
}

// Inactive reports whether the client has not handshaked within ttl of now.
func (c *ClientState) Inactive(now time.Time, ttl time.Duration) bool {
	if c.LastHandshake.IsZero() {
		return true
	}
	return now.Sub(c.LastHandshake) > ttl
}

// Map tracks connected clients per location behind a single mutex, per the
// "single lock, no await across critical section" rule: every method here
// takes the lock, mutates a plain map, and returns, never blocking on I/O
// while held.
type Map struct {
	mu   sync.Mutex
	data map[int64]map[wgtypes.Key]*ClientState
}

// NewMap returns an empty client tracker.
func NewMap() *Map {
	return &Map{data: make(map[int64]map[wgtypes.Key]*ClientState)}
}

// Connect records a new session for a device at a location. It fails with
// ErrClientAlreadyConnected if the key is already tracked for that
// location, per spec.md §4.E — a duplicate connect is a protocol violation
// the caller must surface, not an upsert; subsequent stats frames for an
// already-connected peer go through UpdateStats instead.
func (m *Map) Connect(locationID int64, key wgtypes.Key, endpoint netip.AddrPort, at time.Time) error {
	m.mu.Lock()
	loc, ok := m.data[locationID]
	if !ok {
		loc = make(map[wgtypes.Key]*ClientState)
		m.data[locationID] = loc
	}
	if _, existed := loc[key]; existed {
		m.mu.Unlock()
		return ErrClientAlreadyConnected
	}
	loc[key] = &ClientState{PublicKey: key, Endpoint: endpoint, LastHandshake: at}
	m.mu.Unlock()
	metrics.ConnectedClients.WithLabelValues(strconv.FormatInt(locationID, 10)).Inc()
	return nil
}

// UpdateStats folds a stats report into an existing session, if one exists.
// It is a silent no-op for a device that was never Connect()-ed: nothing
// is logged and no error is returned.
func (m *Map) UpdateStats(locationID int64, key wgtypes.Key, handshake time.Time, up, down uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.data[locationID]
	if !ok {
		return
	}
	state, ok := loc[key]
	if !ok {
		return
	}
	state.LastHandshake = handshake
	state.BytesUploaded = up
	state.BytesDownloaded = down
}

// Get returns the tracked state for a device, if any.
func (m *Map) Get(locationID int64, key wgtypes.Key) (*ClientState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.data[locationID]
	if !ok {
		return nil, false
	}
	state, ok := loc[key]
	return state, ok
}

// Disconnect removes a single client session.
func (m *Map) Disconnect(locationID int64, key wgtypes.Key) {
	m.mu.Lock()
	loc, ok := m.data[locationID]
	if !ok {
		m.mu.Unlock()
		return
	}
	_, existed := loc[key]
	delete(loc, key)
	if len(loc) == 0 {
		delete(m.data, locationID)
	}
	m.mu.Unlock()
	if existed {
		metrics.ConnectedClients.WithLabelValues(strconv.FormatInt(locationID, 10)).Dec()
	}
}

// DisconnectInactive removes and returns every client at locationID whose
// last handshake predates now-ttl.
func (m *Map) DisconnectInactive(locationID int64, now time.Time, ttl time.Duration) []*ClientState {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.data[locationID]
	if !ok {
		return nil
	}
	var evicted []*ClientState
	for key, state := range loc {
		if state.Inactive(now, ttl) {
			evicted = append(evicted, state)
			delete(loc, key)
		}
	}
	if len(loc) == 0 {
		delete(m.data, locationID)
	}
	if len(evicted) > 0 {
		metrics.ConnectedClients.WithLabelValues(strconv.FormatInt(locationID, 10)).Sub(float64(len(evicted)))
	}
	return evicted
}

// Locations returns the set of locations currently tracking at least one
// client, used by the sweep scheduler to know which per-location sweep
// goroutines must exist.
func (m *Map) Locations() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.data))
	for id := range m.data {
		out = append(out, id)
	}
	return out
}
