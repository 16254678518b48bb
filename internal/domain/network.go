// Package domain holds the data-model structs spec.md §3 documents for the
// entities the control plane core reads from the store but never owns the
// schema of (Location/WireguardNetwork, Device). They carry
// go-playground/validator tags so a malformed row is rejected before it
// reaches the gateway config push or the ACL compiler, the same boundary
// role the teacher's pkg/mesh.Options.Validate() plays for CLI-provided
// configuration.
package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("dnsaddr", validateDNSAddr)
}

// Location is the control-plane view of a WireguardNetwork: its address
// space, listen parameters, and the gateway-facing knobs that gate ACL
// enforcement and peer liveness tracking.
type Location struct {
	ID                       int64    `validate:"required"`
	Name                     string   `validate:"required"`
	AddressCIDRs             []string `validate:"required,min=1,dive,cidr"`
	ListenPort               uint16   `validate:"required"`
	DNS                      []string `validate:"dive,dnsaddr"`
	MTU                      uint16
	AllowedIPs               []string `validate:"dive,cidr"`
	KeepaliveInterval        int      `validate:"required,gt=0"`
	Endpoint                 string
	PeerDisconnectThreshold  int  `validate:"required,gt=0"`
	ACLEnabled               bool
}

// Validate checks the invariants spec.md §3 documents for Location: a
// non-empty address set, well-formed CIDRs, positive keepalive/threshold,
// and DNS entries that parse as resolver addresses.
func (l *Location) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("location %d: %w", l.ID, err)
	}
	return nil
}

// OwnerKind discriminates whether a Device belongs to a user or to a
// location (a "network device", e.g. a site-to-site peer).
type OwnerKind int

const (
	OwnerUser OwnerKind = iota
	OwnerNetwork
)

// Device is a WireGuard peer identity: a public key, a display name, and
// the owner it belongs to. Per-location IP assignment is modeled
// separately by NetworkAssignment, since one device may be assigned to
// several locations.
type Device struct {
	ID          int64     `validate:"required"`
	Name        string    `validate:"required"`
	OwnerKind   OwnerKind
	OwnerID     int64     `validate:"required"`
	PublicKey   string    `validate:"required,base64,len=44"`
}

// Validate checks the invariants spec.md §3 documents for Device: a unique
// (enforced by the store, not here), base64-encoded 32-byte WireGuard
// public key.
func (d *Device) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("device %d: %w", d.ID, err)
	}
	return nil
}

// NetworkAssignment is one WireguardNetworkDevice row: the IP a device
// holds within a single location.
type NetworkAssignment struct {
	DeviceID    int64  `validate:"required"`
	LocationID  int64  `validate:"required"`
	WireguardIP string `validate:"required,ip"`
}

// Validate checks that WireguardIP parses and lies within one of
// location's address CIDRs, per spec.md §3's Device invariant.
func (a *NetworkAssignment) Validate(location *Location) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("network assignment device=%d location=%d: %w", a.DeviceID, a.LocationID, err)
	}
	if !ipWithinAny(a.WireguardIP, location.AddressCIDRs) {
		return fmt.Errorf("network assignment device=%d location=%d: ip %s is not within any address CIDR", a.DeviceID, a.LocationID, a.WireguardIP)
	}
	return nil
}
