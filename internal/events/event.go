// Package events implements Component H: the single-writer event router
// that fans typed events in from the API, gRPC, bidi-stream, and internal
// producers out to the audit log, the activity stream reload notifier, the
// WireGuard gateway broadcast channel, and the mail channel.
//
// Events are a flat, tagged struct rather than an open-ended interface
// hierarchy (SPEC_FULL.md §9 "Polymorphic events"), matching the teacher's
// store.observe() switch over a closed set of raft observation types
// (pkg/store/store_observer.go) generalized to four producers instead of
// one.
package events

import (
	"time"

	"github.com/defguard/defguard-core/internal/wireproto"
)

// Producer identifies which of the router's four input queues an Event
// arrived on.
type Producer int

const (
	ProducerAPI Producer = iota
	ProducerGRPC
	ProducerBidi
	ProducerInternal
)

func (p Producer) String() string {
	switch p {
	case ProducerAPI:
		return "api"
	case ProducerGRPC:
		return "grpc"
	case ProducerBidi:
		return "bidi"
	case ProducerInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Kind discriminates the closed set of event variants the router
// understands. Adding a producer of a genuinely new kind of event means
// adding a Kind constant and entries in the lookup tables that classify it
// (moduleEvent, gatewayKinds, mailTemplates, streamConfigKinds), not a new
// interface implementation.
type Kind int

const (
	KindUserCreated Kind = iota
	KindUserModified
	KindUserDeleted
	KindDeviceCreated
	KindDeviceModified
	KindDeviceDeleted
	KindNetworkCreated
	KindNetworkModified
	KindNetworkDeleted
	KindFirewallConfigChanged
	KindFirewallDisabled
	KindGatewayConnected
	KindGatewayDisconnected
	KindGatewayReconnected
	KindClientConnected
	KindClientDisconnected
	KindAuditStreamAdded
	KindAuditStreamModified
	KindAuditStreamRemoved
	KindEnrollmentStarted
	KindPasswordResetRequested
)

// Context carries the "who, when, from where" common to every event,
// matching the context fields spec.md §4.I documents for EventLoggerMessage.
type Context struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	IP        string
	Device    string
}

// Event is one occurrence submitted to the Router by any of the four
// producers. Only the fields relevant to Kind are populated; the rest are
// zero. NetworkID/DevicePubKey/GatewayName/FirewallConfig carry enough of
// the gateway-affecting payload to build a wireproto.Update without the
// router needing to reach back into the store.
type Event struct {
	Producer Producer
	Kind     Kind
	Context  Context

	NetworkID    int64
	DevicePubKey string
	GatewayName  string

	// FirewallConfig is set for KindFirewallConfigChanged.
	FirewallConfig *wireproto.FirewallConfig

	// Metadata is the free-form payload persisted verbatim as the audit
	// row's JSON blob (§4.I); it also becomes the NDJSON "metadata" field
	// for activity stream subscribers.
	Metadata map[string]any
}
