// Package firewall compiles ACL rules and aliases for a single location into
// the gateway-ready wireproto.FirewallConfig. It never touches netfilter or
// any other packet-filtering mechanism itself — it only produces the
// declarative description a gateway later applies.
package firewall

import "time"

// RuleState is the lifecycle state of a Rule or Alias.
type RuleState int

const (
	StateDraft RuleState = iota
	StatePending
	StateApplied
	StateDeleted
)

// PortRange is an inclusive port interval; Start == End for a single port.
type PortRange struct {
	Start, End uint16
}

// IPRangeSpec is an explicit, user-authored inclusive address range (as
// opposed to a CIDR, which is parsed separately).
type IPRangeSpec struct {
	Start, End string
}

// Location is the subset of WireguardNetwork the compiler needs.
type Location struct {
	ID         int64
	Name       string
	ACLEnabled bool
}

// Rule is a single ACL rule attached to (or marked all-networks for) a
// location.
type Rule struct {
	ID      int64
	Name    string
	Expires *time.Time
	Enabled bool
	State   RuleState

	AllNetworks bool
	LocationIDs []int64

	AllowedUsers  []int64
	DeniedUsers   []int64
	AllowedGroups []int64
	DeniedGroups  []int64
	AllowAllUsers bool
	DenyAllUsers  bool

	AllowedDevices []int64
	DeniedDevices  []int64
	// AllowAllDevices/DenyAllDevices mirror AllowAllUsers/DenyAllUsers for
	// network-devices (site-to-site peers owned by a location rather than a
	// user): per spec.md §4.D "compute the effective network-devices
	// analogously", seeding the allow/deny set from every device
	// MembershipResolver.AllNetworkDevices returns for the location instead
	// of requiring every device to be listed explicitly in AllowedDevices.
	AllowAllDevices bool
	DenyAllDevices  bool

	DestinationCIDRs  []string
	DestinationRanges []IPRangeSpec
	// AliasRefs lists every alias referenced by this rule, whether used as a
	// destination alias or a component (filter) alias; the two are told
	// apart by the referenced Alias's Kind.
	AliasRefs []int64

	Ports     []PortRange
	Protocols []string
}

// Effective reports whether the rule contributes to compilation at all:
// enabled, applied, and not expired.
func (r *Rule) Effective(now time.Time) bool {
	if !r.Enabled || r.State != StateApplied {
		return false
	}
	if r.Expires != nil && !r.Expires.After(now) {
		return false
	}
	return true
}

// AppliesTo reports whether the rule is attached to the given location,
// honoring AllNetworks. Per SPEC_FULL.md §6(b), a rule never contributes to
// a location whose ACLs are disabled, even when AllNetworks is set; AppliesTo
// itself does not look at that flag, Compile checks Location.ACLEnabled first.
func (r *Rule) AppliesTo(locationID int64) bool {
	if r.AllNetworks {
		return true
	}
	for _, id := range r.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// AliasKind distinguishes a "destination" alias (merged into a rule's
// destination set) from a "component" alias (an additional filter
// dimension: ports, protocols, and optionally destinations). Compile unions
// a component alias's destinations into the rule's own; it does not
// intersect them or emit separate rules for them.
type AliasKind int

const (
	AliasDestination AliasKind = iota
	AliasComponent
)

// Alias is a named, reusable destination/filter fragment referenced by
// rules.
type Alias struct {
	ID      int64
	Name    string
	Kind    AliasKind
	State   RuleState
	Expires *time.Time

	CIDRs  []string
	Ranges []IPRangeSpec

	Ports     []PortRange
	Protocols []string

	// AliasRefs lists further aliases this one references as additional
	// filter components (an AliasComponent may itself point at other
	// aliases). Cyclic chains are detected before compilation and the
	// offending aliases are skipped; see aliasgraph.go.
	AliasRefs []int64
}

// Effective mirrors Rule.Effective for aliases.
func (a *Alias) Effective(now time.Time) bool {
	if a.State != StateApplied {
		return false
	}
	if a.Expires != nil && !a.Expires.After(now) {
		return false
	}
	return true
}
