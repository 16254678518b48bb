package firewall

import (
	"net/netip"
	"testing"
	"time"

	"github.com/defguard/defguard-core/internal/wireproto"
)

// fakeResolver is a tiny in-memory MembershipResolver for compiler tests.
type fakeResolver struct {
	users          []int64
	groups         map[int64][]int64
	devices        map[int64][]int64 // user -> devices
	networkDevices []int64           // site-to-site devices owned by the location itself
	ips            map[int64][]netip.Addr
}

func (f *fakeResolver) AllUsers() []int64              { return f.users }
func (f *fakeResolver) GroupMembers(gid int64) []int64 { return f.groups[gid] }
func (f *fakeResolver) AllNetworkDevices(locationID int64) []int64 {
	return f.networkDevices
}
func (f *fakeResolver) UserDevices(uid int64) []int64 { return f.devices[uid] }
func (f *fakeResolver) DeviceIPs(locationID, deviceID int64) []netip.Addr {
	return f.ips[deviceID]
}

func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestCompileDisabledLocationYieldsNoRules(t *testing.T) {
	loc := Location{ID: 1, Name: "office", ACLEnabled: false}
	rule := &Rule{
		ID: 1, Name: "all-to-all", Enabled: true, State: StateApplied,
		AllNetworks: true, AllowAllUsers: true,
		DestinationCIDRs: []string{"10.0.0.0/24"},
	}
	resolver := &fakeResolver{
		users:   []int64{1},
		devices: map[int64][]int64{1: {10}},
		ips:     map[int64][]netip.Addr{10: {netip.MustParseAddr("10.8.0.2")}},
	}
	cfg := Compile(CompileInput{
		Location: loc,
		Rules:    []*Rule{rule},
		Aliases:  map[int64]*Alias{},
		Resolver: resolver,
		Now:      fixedNow,
	})
	if len(cfg.Rules) != 0 {
		t.Fatalf("expected no rules for ACL-disabled location, got %d", len(cfg.Rules))
	}
}

func TestCompileSkipsDisabledAndExpiredRules(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	expired := fixedNow().Add(-time.Hour)
	rules := []*Rule{
		{ID: 1, Enabled: false, State: StateApplied, AllNetworks: true, AllowAllUsers: true, DestinationCIDRs: []string{"10.0.0.0/24"}},
		{ID: 2, Enabled: true, State: StateApplied, Expires: &expired, AllNetworks: true, AllowAllUsers: true, DestinationCIDRs: []string{"10.0.0.0/24"}},
		{ID: 3, Enabled: true, State: StateDraft, AllNetworks: true, AllowAllUsers: true, DestinationCIDRs: []string{"10.0.0.0/24"}},
	}
	resolver := &fakeResolver{
		users:   []int64{1},
		devices: map[int64][]int64{1: {10}},
		ips:     map[int64][]netip.Addr{10: {netip.MustParseAddr("10.8.0.2")}},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: rules, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 0 {
		t.Fatalf("expected disabled/expired/draft rules excluded, got %d rules", len(cfg.Rules))
	}
}

func TestCompileDeniedOverridesAllowed(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied, AllNetworks: true,
		AllowedUsers: []int64{1, 2},
		DeniedUsers:  []int64{2},
		DestinationCIDRs: []string{"10.0.0.0/24"},
	}
	resolver := &fakeResolver{
		users: []int64{1, 2},
		devices: map[int64][]int64{
			1: {10},
			2: {20},
		},
		ips: map[int64][]netip.Addr{
			10: {netip.MustParseAddr("10.8.0.1")},
			20: {netip.MustParseAddr("10.8.0.2")},
		},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected exactly one compiled rule, got %d", len(cfg.Rules))
	}
	got := cfg.Rules[0]
	if len(got.SourceAddrsV4) != 1 || got.SourceAddrsV4[0].Ip != "10.8.0.1" {
		t.Fatalf("expected only user 1's device address to survive, got %+v", got.SourceAddrsV4)
	}
}

func TestCompileEmitsEmptyDestinationArrayNotOmittedRule(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied, AllNetworks: true,
		AllowedUsers: []int64{1},
		// No destination CIDRs/ranges/aliases of any kind: destination_addrs_v4
		// should come back as an empty slice, not cause the rule to vanish,
		// since the rule still carries a non-empty source set.
	}
	resolver := &fakeResolver{
		devices: map[int64][]int64{1: {10}},
		ips:     map[int64][]netip.Addr{10: {netip.MustParseAddr("10.8.0.1")}},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected one rule with empty destination set, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].DestinationAddrsV4) != 0 {
		t.Fatalf("expected empty destination_addrs_v4, got %+v", cfg.Rules[0].DestinationAddrsV4)
	}
}

func TestCompileMergesAliasPortsAndProtocols(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied, AllNetworks: true,
		AllowedUsers:     []int64{1},
		DestinationCIDRs: []string{"10.0.0.0/30"},
		Ports:            []PortRange{{Start: 80, End: 80}},
		Protocols:        []string{"tcp"},
		AliasRefs:        []int64{1},
	}
	aliases := map[int64]*Alias{
		1: {ID: 1, Kind: AliasComponent, State: StateApplied, Ports: []PortRange{{Start: 443, End: 443}}, Protocols: []string{"udp"}},
	}
	resolver := &fakeResolver{
		devices: map[int64][]int64{1: {10}},
		ips:     map[int64][]netip.Addr{10: {netip.MustParseAddr("10.8.0.1")}},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: aliases, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(cfg.Rules))
	}
	got := cfg.Rules[0]
	if len(got.Protocols) != 2 || got.Protocols[0] != "tcp" || got.Protocols[1] != "udp" {
		t.Fatalf("expected merged+sorted protocols [tcp udp], got %v", got.Protocols)
	}
	wantPorts := []*wireproto.PortRange{{Start: 80, End: 80}, {Start: 443, End: 443}}
	if len(got.Ports) != len(wantPorts) {
		t.Fatalf("expected %d port ranges, got %d: %+v", len(wantPorts), len(got.Ports), got.Ports)
	}
}

func TestCompileRuleNotAttachedToLocationIsExcluded(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied,
		LocationIDs:      []int64{2},
		AllowedUsers:     []int64{1},
		DestinationCIDRs: []string{"10.0.0.0/24"},
	}
	resolver := &fakeResolver{
		devices: map[int64][]int64{1: {10}},
		ips:     map[int64][]netip.Addr{10: {netip.MustParseAddr("10.8.0.1")}},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 0 {
		t.Fatalf("expected rule not attached to this location to be excluded, got %d", len(cfg.Rules))
	}
}

func TestCompileAllowAllDevicesGrantsEveryNetworkDevice(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied, AllNetworks: true,
		AllowAllDevices:  true,
		DestinationCIDRs: []string{"10.0.0.0/24"},
	}
	resolver := &fakeResolver{
		networkDevices: []int64{30, 31},
		ips: map[int64][]netip.Addr{
			30: {netip.MustParseAddr("10.8.0.30")},
			31: {netip.MustParseAddr("10.8.0.31")},
		},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].SourceAddrsV4) != 2 {
		t.Fatalf("expected both network devices' addresses as sources, got %+v", cfg.Rules[0].SourceAddrsV4)
	}
}

func TestCompileDenyAllDevicesRemovesExplicitlyAllowedDevice(t *testing.T) {
	loc := Location{ID: 1, ACLEnabled: true}
	rule := &Rule{
		ID: 1, Enabled: true, State: StateApplied, AllNetworks: true,
		AllowedDevices:   []int64{30},
		DenyAllDevices:   true,
		DestinationCIDRs: []string{"10.0.0.0/24"},
	}
	resolver := &fakeResolver{
		networkDevices: []int64{30},
		ips:            map[int64][]netip.Addr{30: {netip.MustParseAddr("10.8.0.30")}},
	}
	cfg := Compile(CompileInput{Location: loc, Rules: []*Rule{rule}, Aliases: map[int64]*Alias{}, Resolver: resolver, Now: fixedNow})
	if len(cfg.Rules) != 1 {
		t.Fatalf("expected one rule with empty source set, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].SourceAddrsV4) != 0 {
		t.Fatalf("expected DenyAllDevices to override the explicit allow, got %+v", cfg.Rules[0].SourceAddrsV4)
	}
}
