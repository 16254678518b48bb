// Package wireproto holds the Go message types for the gateway bidirectional
// protocol described in gateway.proto. They are hand-authored in the shape
// protoc-gen-go would produce, since this module does not run protoc.
package wireproto

// FirewallPolicy is the default action a gateway takes when no rule in a
// FirewallConfig matches a packet for a given IP family.
type FirewallPolicy int32

const (
	FirewallPolicyAllow FirewallPolicy = 0
	FirewallPolicyDeny  FirewallPolicy = 1
)

func (p FirewallPolicy) String() string {
	if p == FirewallPolicyDeny {
		return "deny"
	}
	return "allow"
}

// FirewallAction is the action a single FirewallRule takes on match.
type FirewallAction int32

const (
	FirewallActionAllow FirewallAction = 0
	FirewallActionDeny  FirewallAction = 1
)

// FirewallConfig is the top-level message a gateway receives, either as part
// of its initial configuration push or as a later FirewallConfigChanged
// update.
type FirewallConfig struct {
	Rules           []*FirewallRule `json:"rules"`
	DefaultPolicyV4 FirewallPolicy  `json:"default_policy_v4"`
	DefaultPolicyV6 FirewallPolicy  `json:"default_policy_v6"`
}

// FirewallRule is the compiled, gateway-ready representation of a single ACL
// rule; one FirewallRule carries both the v4 and the v6 address lists.
type FirewallRule struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	SourceAddrsV4      []*IPAddress `json:"source_addrs_v4,omitempty"`
	SourceAddrsV6      []*IPAddress `json:"source_addrs_v6,omitempty"`
	DestinationAddrsV4 []*IPAddress `json:"destination_addrs_v4,omitempty"`
	DestinationAddrsV6 []*IPAddress `json:"destination_addrs_v6,omitempty"`
	Ports              []*PortRange `json:"ports,omitempty"`
	Protocols          []string     `json:"protocols,omitempty"`
	Action             FirewallAction `json:"action"`
}

// PortRange is an inclusive range of ports; Start == End for a single port.
type PortRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// IPAddress is a tagged union mirroring the `oneof address` in gateway.proto.
// Exactly one of Ip, IPSubnet, or IPRange is non-empty/non-nil.
type IPAddress struct {
	// Ip is a single address ("10.0.0.1" or "::1").
	Ip string `json:"ip,omitempty"`
	// IPSubnet is a CIDR ("10.0.0.0/24").
	IPSubnet string `json:"ip_subnet,omitempty"`
	// IPRange is an explicit inclusive start-end pair that does not align to
	// a CIDR boundary.
	IPRange *IPRange `json:"ip_range,omitempty"`
}

// IPRange is an explicit inclusive address range.
type IPRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Ip constructs a single-address IPAddress.
func Ip(addr string) *IPAddress { return &IPAddress{Ip: addr} }

// Subnet constructs a CIDR IPAddress.
func Subnet(cidr string) *IPAddress { return &IPAddress{IPSubnet: cidr} }

// RangeAddr constructs an explicit-range IPAddress.
func RangeAddr(start, end string) *IPAddress {
	return &IPAddress{IPRange: &IPRange{Start: start, End: end}}
}
