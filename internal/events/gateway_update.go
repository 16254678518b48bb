package events

import (
	"sync"

	"github.com/defguard/defguard-core/internal/wireproto"
)

// gatewayKinds is the set of Kinds that are "gateway-affecting" per
// spec.md §4.H (peer add/remove, firewall change, network CRUD) and must
// be forwarded as a wireproto.Update on the broadcast channel.
var gatewayKinds = map[Kind]wireproto.UpdateKind{
	KindNetworkCreated:        wireproto.UpdateKindNetworkCreated,
	KindNetworkModified:       wireproto.UpdateKindNetworkModified,
	KindNetworkDeleted:        wireproto.UpdateKindNetworkDeleted,
	KindDeviceCreated:         wireproto.UpdateKindDeviceCreated,
	KindDeviceModified:        wireproto.UpdateKindDeviceModified,
	KindDeviceDeleted:         wireproto.UpdateKindDeviceDeleted,
	KindFirewallConfigChanged: wireproto.UpdateKindFirewallConfigChanged,
	KindFirewallDisabled:      wireproto.UpdateKindFirewallDisabled,
}

// toGatewayUpdate builds the wireproto.Update a gateway-affecting Event
// translates to, stamping it with clock's next logical timestamp so a
// gateway joining mid-stream can tell its initial configuration push
// already covers everything up to a given point (spec.md §4.G.3).
func toGatewayUpdate(ev Event, clock *wireproto.LogicalClock) *wireproto.Update {
	kind, ok := gatewayKinds[ev.Kind]
	if !ok {
		return nil
	}
	return &wireproto.Update{
		Timestamp:      clock.Next(),
		Kind:           kind,
		NetworkID:      ev.NetworkID,
		DevicePubKey:   ev.DevicePubKey,
		FirewallConfig: ev.FirewallConfig,
	}
}

// GatewayBroadcaster fans incremental wireproto.Update frames out to every
// gateway session subscribed to a network, and implements the
// internal/gateway/rpc.UpdateSource interface the bidi service depends on.
// Each subscriber gets its own buffered channel rather than a shared
// broadcast primitive, since a slow gateway must never block delivery to a
// faster one on the same network.
type GatewayBroadcaster struct {
	mu   sync.Mutex
	subs map[int64]map[int]chan *wireproto.Update
	next int
}

// NewGatewayBroadcaster returns an empty broadcaster.
func NewGatewayBroadcaster() *GatewayBroadcaster {
	return &GatewayBroadcaster{subs: make(map[int64]map[int]chan *wireproto.Update)}
}

// Subscribe registers interest in networkID's incremental updates. The
// returned channel is closed, and the subscription removed, when cancel is
// called.
func (b *GatewayBroadcaster) Subscribe(networkID int64) (<-chan *wireproto.Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byID, ok := b.subs[networkID]
	if !ok {
		byID = make(map[int]chan *wireproto.Update)
		b.subs[networkID] = byID
	}
	id := b.next
	b.next++
	ch := make(chan *wireproto.Update, 64)
	byID[id] = ch
	cancelled := false
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cancelled {
			return
		}
		cancelled = true
		if m, ok := b.subs[networkID]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.subs, networkID)
			}
		}
		close(ch)
	}
	return ch, cancel
}

// Publish forwards upd to every gateway session currently subscribed to
// networkID. A subscriber whose channel is full is skipped rather than
// blocking the router (the router itself has no backpressure budget to
// spend waiting on a single slow gateway).
func (b *GatewayBroadcaster) Publish(networkID int64, upd *wireproto.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[networkID] {
		select {
		case ch <- upd:
		default:
		}
	}
}
