package firewall

import (
	"net/netip"
	"sort"
	"time"

	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/internal/rangealgebra"
	"github.com/defguard/defguard-core/internal/wireproto"
)

// CompileInput bundles everything Compile needs for one location.
type CompileInput struct {
	Location Location
	Rules    []*Rule
	Aliases  map[int64]*Alias

	Resolver MembershipResolver

	DefaultPolicyV4 wireproto.FirewallPolicy
	DefaultPolicyV6 wireproto.FirewallPolicy

	Now func() time.Time
}

// Compile turns the rules and aliases attached to a location into the
// gateway-ready FirewallConfig, per SPEC_FULL.md §3.D / §4.D. It returns a
// FirewallConfig with no rules (but correct default policies) when the
// location has ACLs disabled, matching the §6(b) open-question resolution:
// all_networks rules never take effect on an ACL-disabled location.
func Compile(in CompileInput) *wireproto.FirewallConfig {
	cfg := &wireproto.FirewallConfig{
		DefaultPolicyV4: in.DefaultPolicyV4,
		DefaultPolicyV6: in.DefaultPolicyV6,
	}
	if !in.Location.ACLEnabled {
		return cfg
	}

	now := time.Now()
	if in.Now != nil {
		now = in.Now()
	}

	var applicable []*Rule
	for _, r := range in.Rules {
		if r.Effective(now) && r.AppliesTo(in.Location.ID) {
			applicable = append(applicable, r)
		}
	}
	sort.Slice(applicable, func(i, j int) bool { return applicable[i].ID < applicable[j].ID })

	brokenAliases := acyclicAliasRefs(in.Aliases)
	log := logging.Component("firewall")

	for _, r := range applicable {
		if err := r.Validate(); err != nil {
			log.Warn("skipping invalid acl rule", "rule_id", r.ID, "error", err)
			continue
		}
		rule := compileRule(r, in, brokenAliases)
		if rule != nil {
			cfg.Rules = append(cfg.Rules, rule)
		}
	}
	return cfg
}

func compileRule(r *Rule, in CompileInput, brokenAliases map[int64]bool) *wireproto.FirewallRule {
	srcIPs := resolveSources(r, in)
	dstCIDRs, dstRanges, extraPorts, extraProtocols := resolveDestinations(r, in, now(in), brokenAliases)

	srcV4, srcV6 := splitFamily(srcIPs)

	var dstRangesV4, dstRangesV6 []rangealgebra.Range[netip.Addr]
	var dstCIDRRangesV4, dstCIDRRangesV6 []rangealgebra.Range[netip.Addr]

	for _, c := range dstCIDRs {
		rg, err := CIDRToRange(c)
		if err != nil {
			continue
		}
		if rg.Lo.Is4() {
			dstCIDRRangesV4 = append(dstCIDRRangesV4, rg)
		} else {
			dstCIDRRangesV6 = append(dstCIDRRangesV6, rg)
		}
	}
	for _, rs := range dstRanges {
		rg, err := ExplicitRangeToRange(rs)
		if err != nil {
			continue
		}
		if rg.Lo.Is4() {
			dstRangesV4 = append(dstRangesV4, rg)
		} else {
			dstRangesV6 = append(dstRangesV6, rg)
		}
	}

	dstAddrsV4 := CompactAddrs(nil, append(dstCIDRRangesV4, dstRangesV4...))
	dstAddrsV6 := CompactAddrs(nil, append(dstCIDRRangesV6, dstRangesV6...))

	if len(srcV4) == 0 && len(srcV6) == 0 && len(dstAddrsV4) == 0 && len(dstAddrsV6) == 0 {
		return nil
	}

	// ACL rules are always positive grants: AllowedX/DeniedX only shape
	// membership (resolveSources), they never flip a rule into a blocking
	// one. Traffic that matches no rule falls through to the location's
	// default policy instead.
	action := wireproto.FirewallActionAllow

	protocols := mergeProtocols(r.Protocols, extraProtocols)
	ports := mergePorts(r.Ports, extraPorts)

	return &wireproto.FirewallRule{
		ID:                 r.ID,
		Name:               r.Name,
		SourceAddrsV4:      CompactAddrs(srcV4, nil),
		SourceAddrsV6:      CompactAddrs(srcV6, nil),
		DestinationAddrsV4: dstAddrsV4,
		DestinationAddrsV6: dstAddrsV6,
		Ports:              ports,
		Protocols:          protocols,
		Action:             action,
	}
}

func now(in CompileInput) time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

// resolveSources expands a rule's user/group/device selectors into the set
// of device addresses it grants, honoring deny-overrides-allow (§4.D,
// testable property 2): addresses reachable only through a denied user,
// group, or device are removed even if also reachable through an allowed
// path.
func resolveSources(r *Rule, in CompileInput) []netip.Addr {
	allowDevices := map[int64]bool{}
	denyDevices := map[int64]bool{}

	addUsers := func(dst map[int64]bool, userIDs []int64) {
		for _, uid := range userIDs {
			for _, did := range in.Resolver.UserDevices(uid) {
				dst[did] = true
			}
		}
	}

	if r.AllowAllUsers {
		addUsers(allowDevices, in.Resolver.AllUsers())
	}
	addUsers(allowDevices, r.AllowedUsers)
	for _, gid := range r.AllowedGroups {
		addUsers(allowDevices, in.Resolver.GroupMembers(gid))
	}
	for _, did := range r.AllowedDevices {
		allowDevices[did] = true
	}
	if r.AllowAllDevices {
		for _, did := range in.Resolver.AllNetworkDevices(in.Location.ID) {
			allowDevices[did] = true
		}
	}

	if r.DenyAllUsers {
		addUsers(denyDevices, in.Resolver.AllUsers())
	}
	addUsers(denyDevices, r.DeniedUsers)
	for _, gid := range r.DeniedGroups {
		addUsers(denyDevices, in.Resolver.GroupMembers(gid))
	}
	for _, did := range r.DeniedDevices {
		denyDevices[did] = true
	}
	if r.DenyAllDevices {
		for _, did := range in.Resolver.AllNetworkDevices(in.Location.ID) {
			denyDevices[did] = true
		}
	}

	var addrs []netip.Addr
	for did := range allowDevices {
		if denyDevices[did] {
			continue
		}
		addrs = append(addrs, in.Resolver.DeviceIPs(in.Location.ID, did)...)
	}
	return addrs
}

// resolveDestinations merges a rule's own CIDRs/ranges with every
// AliasDestination it references, and folds in the ports/protocols (and,
// per the simplification recorded in DESIGN.md, the CIDRs/ranges) of every
// AliasComponent it references.
func resolveDestinations(r *Rule, in CompileInput, now time.Time, brokenAliases map[int64]bool) (cidrs []string, ranges []IPRangeSpec, extraPorts []PortRange, extraProtocols []string) {
	cidrs = append(cidrs, r.DestinationCIDRs...)
	ranges = append(ranges, r.DestinationRanges...)

	visited := map[int64]bool{}
	var walk func(aliasID int64)
	walk = func(aliasID int64) {
		if visited[aliasID] || brokenAliases[aliasID] {
			return
		}
		visited[aliasID] = true
		alias, ok := in.Aliases[aliasID]
		if !ok || !alias.Effective(now) {
			return
		}
		switch alias.Kind {
		case AliasDestination:
			cidrs = append(cidrs, alias.CIDRs...)
			ranges = append(ranges, alias.Ranges...)
		case AliasComponent:
			cidrs = append(cidrs, alias.CIDRs...)
			ranges = append(ranges, alias.Ranges...)
			extraPorts = append(extraPorts, alias.Ports...)
			extraProtocols = append(extraProtocols, alias.Protocols...)
			for _, ref := range alias.AliasRefs {
				walk(ref)
			}
		}
	}

	for _, aliasID := range r.AliasRefs {
		walk(aliasID)
	}
	return
}

func mergePorts(a, b []PortRange) []*wireproto.PortRange {
	all := append(append([]PortRange{}, a...), b...)
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	var out []*wireproto.PortRange
	for _, p := range all {
		if n := len(out); n > 0 && uint32(p.Start) <= out[n-1].End+1 {
			if uint32(p.End) > out[n-1].End {
				out[n-1].End = uint32(p.End)
			}
			continue
		}
		out = append(out, &wireproto.PortRange{Start: uint32(p.Start), End: uint32(p.End)})
	}
	return out
}

func mergeProtocols(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range append(append([]string{}, a...), b...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
