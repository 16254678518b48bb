// Package gateway implements Component F (the gateway registry) and, in
// internal/gateway/rpc, Component G (the bidi gRPC protocol).
package gateway

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/pkg/metrics"
)

// ErrRemoveActive is returned by Registry.Remove when asked to remove a
// gateway that is still connected, per spec.md §4.F.
var ErrRemoveActive = errors.New("gateway: cannot remove a connected gateway")

// ErrNotFound is returned by Registry.Connect when no prior Add has
// registered the gateway, per spec.md §4.F: "connect_gateway — requires a
// prior add_gateway". The original source's GatewayMapError::NotFound
// plays the same role (map.rs's connect_gateway errors when the hostname
// isn't already present in the map).
var ErrNotFound = errors.New("gateway: not found")

// State is one connected (or recently disconnected) gateway's bookkeeping.
type State struct {
	ID             uuid.UUID
	LocationID     int64
	Name           string
	OperatorName   string
	Version        string
	Connected      bool
	ConnectedAt    time.Time
	DisconnectedAt time.Time

	// pendingDisconnect, when non-nil, cancels the deferred disconnect
	// notification scheduled by Registry.Disconnect. A reconnect within the
	// grace window cancels it so a brief network blip never fires a
	// disconnect event, mirroring the teacher's failedHeartbeats counter in
	// store_observer.go — there a peer must fail repeatedly before the
	// cluster acts on it; here a single timer plays the same role.
	pendingDisconnect context.CancelFunc
}

// DisconnectHandler is invoked once a gateway's grace window elapses without
// a reconnect, or (as OnReconnect) when a gateway reconnects after having
// been disconnected at least once before.
type DisconnectHandler func(locationID int64, gatewayName string)

// Registry tracks gateways per location behind a single mutex.
type Registry struct {
	mu           sync.Mutex
	gateways     map[int64]map[string]*State
	GraceWindow  time.Duration
	OnDisconnect DisconnectHandler
	// OnReconnect fires when a gateway connects after a prior disconnect,
	// per spec.md §4.F / testable property 5: a reconnect schedules a
	// reconnect email independent of whether the pending disconnect
	// notification was cancelled.
	OnReconnect DisconnectHandler
}

// NewRegistry returns an empty Registry. graceWindow is how long a gateway
// may be disconnected before OnDisconnect fires; zero selects a 10 second
// default.
func NewRegistry(graceWindow time.Duration, onDisconnect DisconnectHandler) *Registry {
	if graceWindow <= 0 {
		graceWindow = 10 * time.Second
	}
	return &Registry{
		gateways:     make(map[int64]map[string]*State),
		GraceWindow:  graceWindow,
		OnDisconnect: onDisconnect,
	}
}

// Add idempotently creates a gateway's bookkeeping entry on its first
// configuration request, before it has necessarily completed a connect
// handshake, per spec.md §4.F's add_gateway transition.
func (r *Registry) Add(locationID int64, name, operatorName, version string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.gateways[locationID]
	if !ok {
		loc = make(map[string]*State)
		r.gateways[locationID] = loc
	}
	state, ok := loc[name]
	if !ok {
		state = &State{ID: uuid.New(), LocationID: locationID, Name: name, Version: version}
		loc[name] = state
	}
	if operatorName != "" {
		state.OperatorName = operatorName
	}
	return state
}

// Connect marks a previously-added gateway as connected, cancelling any
// pending deferred disconnect notification from a prior flap and firing
// OnReconnect if the gateway had disconnected at least once before. It
// fails with ErrNotFound if no Add has registered this (locationID, name)
// pair yet, per spec.md §4.F: connect_gateway "requires a prior
// add_gateway".
func (r *Registry) Connect(locationID int64, name, version string) (*State, error) {
	r.mu.Lock()
	loc, ok := r.gateways[locationID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	state, ok := loc[name]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if state.pendingDisconnect != nil {
		state.pendingDisconnect()
		state.pendingDisconnect = nil
	}
	isReconnect := !state.DisconnectedAt.IsZero()
	state.Version = version
	state.Connected = true
	state.ConnectedAt = time.Now()
	state.DisconnectedAt = time.Time{}
	r.mu.Unlock()

	metrics.ConnectedGateways.WithLabelValues(strconv.FormatInt(locationID, 10)).Inc()
	if isReconnect && r.OnReconnect != nil {
		r.OnReconnect(locationID, name)
	}
	return state, nil
}

// Remove deletes a gateway's bookkeeping entry, failing with
// ErrRemoveActive if it is currently connected (spec.md §4.F remove_gateway).
func (r *Registry) Remove(locationID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.gateways[locationID]
	if !ok {
		return nil
	}
	state, ok := loc[name]
	if !ok {
		return nil
	}
	if state.Connected {
		return ErrRemoveActive
	}
	if state.pendingDisconnect != nil {
		state.pendingDisconnect()
	}
	delete(loc, name)
	if len(loc) == 0 {
		delete(r.gateways, locationID)
	}
	return nil
}

// Disconnect marks a gateway's stream as ended and schedules a deferred
// disconnect notification after GraceWindow. If the gateway reconnects
// before the window elapses, Connect cancels the notification and it never
// fires.
func (r *Registry) Disconnect(locationID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.gateways[locationID]
	if !ok {
		return
	}
	state, ok := loc[name]
	if !ok {
		return
	}
	state.Connected = false
	state.DisconnectedAt = time.Now()
	metrics.ConnectedGateways.WithLabelValues(strconv.FormatInt(locationID, 10)).Dec()
	if state.pendingDisconnect != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	state.pendingDisconnect = cancel
	log := logging.Component("gateway-registry")
	go func() {
		timer := time.NewTimer(r.GraceWindow)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			log.Debug("gateway reconnected within grace window, suppressing disconnect event", "location_id", locationID, "gateway", name)
			return
		case <-timer.C:
			r.finalizeDisconnect(locationID, name)
		}
	}()
}

// finalizeDisconnect fires the deferred disconnect notification once the
// grace window elapses without a reconnect. Per spec.md §4.F, only
// remove_gateway deletes a GatewayState; a gateway that merely stays
// offline past the grace window remains visible to Get/ListByLocation
// (disconnected_at set, connected == false) until an operator explicitly
// removes it.
func (r *Registry) finalizeDisconnect(locationID int64, name string) {
	r.mu.Lock()
	var shouldNotify bool
	if loc, ok := r.gateways[locationID]; ok {
		if state, ok := loc[name]; ok && !state.Connected {
			state.pendingDisconnect = nil
			shouldNotify = true
		}
	}
	r.mu.Unlock()
	if shouldNotify && r.OnDisconnect != nil {
		r.OnDisconnect(locationID, name)
	}
}

// Get returns the tracked state for a gateway, if any.
func (r *Registry) Get(locationID int64, name string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.gateways[locationID]
	if !ok {
		return nil, false
	}
	state, ok := loc[name]
	return state, ok
}

// ListByLocation returns every known gateway for a location, connected or
// disconnected; a gateway stays listed until Remove drops it.
func (r *Registry) ListByLocation(locationID int64) []*State {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc := r.gateways[locationID]
	out := make([]*State, 0, len(loc))
	for _, s := range loc {
		out = append(out, s)
	}
	return out
}
