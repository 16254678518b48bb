package wireproto

import "time"

// CoreResponse is a frame sent by the gateway to defguard-core.
type CoreResponse struct {
	ConfigRequest    *ConfigRequest
	StatsUpdate      *StatsUpdate
	UpdatesSubscribe *UpdatesSubscribe
}

// ConfigRequest asks the core to push the full configuration for a network.
type ConfigRequest struct {
	NetworkID int64
}

// UpdatesSubscribe asks the core to start forwarding incremental events for
// a network on this stream.
type UpdatesSubscribe struct {
	NetworkID int64
}

// StatsUpdate is a single WireGuard peer statistics frame.
type StatsUpdate struct {
	PublicKey           string
	Endpoint            string
	LatestHandshakeUnix int64
	Upload              uint64
	Download             uint64
}

// CoreRequest is a frame sent by defguard-core to the gateway.
type CoreRequest struct {
	Configuration *Configuration
	Update        *Update
}

// Configuration is the full, one-shot configuration pushed to a gateway on
// connect: WireGuard interface parameters, the peer list, and the compiled
// firewall (if ACLs are enabled for the network).
type Configuration struct {
	NetworkID         int64
	Name              string
	Address           []string
	Port              uint32
	DNS               []string
	MTU               uint32
	AllowedIPs        []string
	KeepaliveInterval uint32
	Peers             []*Peer
	FirewallConfig    *FirewallConfig
}

// Peer is one WireGuard peer entry in a Configuration.
type Peer struct {
	PublicKey    string
	AllowedIP    string
	PresharedKey string
}

// UpdateKind discriminates the oneof in Update.
type UpdateKind int

const (
	UpdateKindNetworkCreated UpdateKind = iota
	UpdateKindNetworkModified
	UpdateKindNetworkDeleted
	UpdateKindDeviceCreated
	UpdateKindDeviceModified
	UpdateKindDeviceDeleted
	UpdateKindFirewallConfigChanged
	UpdateKindFirewallDisabled
)

// Update is a single incremental event forwarded to a gateway after its
// initial Configuration has been sent. Timestamp is a monotonically
// non-decreasing logical clock so a gateway that reconnects mid-stream can
// tell whether its last-seen state predates this event.
type Update struct {
	Timestamp int64
	Kind      UpdateKind

	NetworkID      int64
	DevicePubKey   string
	FirewallConfig *FirewallConfig
}

// NewLogicalClock returns a monotonic source for Update.Timestamp values,
// seeded from wall-clock time at construction and incremented thereafter so
// concurrent producers never observe two events with the same timestamp.
func NewLogicalClock(start time.Time) *LogicalClock {
	return &LogicalClock{last: start.UnixNano()}
}

// LogicalClock hands out strictly increasing int64 timestamps.
type LogicalClock struct {
	last int64
}

// Next returns a timestamp guaranteed greater than any previously returned.
// Not safe for concurrent use without external synchronization; in this
// module it is called only from the event router's single Run goroutine.
func (c *LogicalClock) Next() int64 {
	c.last++
	return c.last
}
