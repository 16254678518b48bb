package events

import (
	"context"
	"time"
)

// LoggerEvent is the persisted-audit-row projection of an Event: Component
// I's indexed columns (timestamp, user, module, event) plus the metadata
// blob, per spec.md §4.I. Kept in this package rather than internal/audit
// so LoggerSink can be declared here without audit importing events and
// events importing audit back.
type LoggerEvent struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	IP        string
	Device    string
	Module    string
	Event     string
	Metadata  map[string]any
}

// LoggerSink persists a LoggerEvent. A failure here is fatal to the router
// (§4.H "Logger-channel errors are fatal").
type LoggerSink interface {
	Append(ctx context.Context, ev LoggerEvent) error
}

// moduleEvent names the (module, event) pair recorded for each Kind,
// mirroring the Defguard/Client/VPN/Enrollment "event families" spec.md
// §4.I describes as a tagged union — here a flat lookup table instead,
// per the "flat LoggerEvent sum" design note.
var moduleEvent = map[Kind][2]string{
	KindUserCreated:            {"defguard", "user_created"},
	KindUserModified:           {"defguard", "user_modified"},
	KindUserDeleted:            {"defguard", "user_deleted"},
	KindDeviceCreated:          {"defguard", "device_created"},
	KindDeviceModified:         {"defguard", "device_modified"},
	KindDeviceDeleted:          {"defguard", "device_deleted"},
	KindNetworkCreated:         {"defguard", "network_created"},
	KindNetworkModified:        {"defguard", "network_modified"},
	KindNetworkDeleted:         {"defguard", "network_deleted"},
	KindFirewallConfigChanged:  {"defguard", "firewall_config_changed"},
	KindFirewallDisabled:       {"defguard", "firewall_disabled"},
	KindGatewayConnected:       {"vpn", "gateway_connected"},
	KindGatewayDisconnected:    {"vpn", "gateway_disconnected"},
	KindGatewayReconnected:     {"vpn", "gateway_reconnected"},
	KindClientConnected:        {"client", "connected"},
	KindClientDisconnected:     {"client", "disconnected"},
	KindAuditStreamAdded:       {"defguard", "audit_stream_added"},
	KindAuditStreamModified:    {"defguard", "audit_stream_modified"},
	KindAuditStreamRemoved:     {"defguard", "audit_stream_removed"},
	KindEnrollmentStarted:      {"enrollment", "started"},
	KindPasswordResetRequested: {"defguard", "password_reset_requested"},
}

// String renders a Kind as its audit event name, falling back to "unknown"
// for a Kind with no registered projection (used by metrics labels).
func (k Kind) String() string {
	if me, ok := moduleEvent[k]; ok {
		return me[0] + "." + me[1]
	}
	return "unknown"
}

// ToLoggerEvent maps ev to its audit-row projection. The second return
// value is false for a Kind the audit log does not record; today every
// Kind maps to exactly one LoggerEvent (spec.md §4.H says "zero or one"),
// but the table leaves room for a future event that is gateway/mail-only.
func ToLoggerEvent(ev Event) (LoggerEvent, bool) {
	me, ok := moduleEvent[ev.Kind]
	if !ok {
		return LoggerEvent{}, false
	}
	return LoggerEvent{
		Timestamp: ev.Context.Timestamp,
		UserID:    ev.Context.UserID,
		Username:  ev.Context.Username,
		IP:        ev.Context.IP,
		Device:    ev.Context.Device,
		Module:    me[0],
		Event:     me[1],
		Metadata:  ev.Metadata,
	}, true
}
