package firewall

import "net/netip"

// MembershipResolver answers the identity questions the compiler needs but
// cannot decide on its own: who is in a group, which devices a user owns,
// and which addresses belong to a user or device. Compile takes this as an
// interface rather than a database handle so it stays pure and testable
// without a live store, mirroring how eval.go in the teacher's networking
// package separates ACL evaluation from peer/group lookups.
type MembershipResolver interface {
	// AllUsers returns every user ID known to the system, used to expand
	// Rule.AllowAllUsers / DenyAllUsers.
	AllUsers() []int64
	// GroupMembers returns the user IDs belonging to a group.
	GroupMembers(groupID int64) []int64
	// AllNetworkDevices returns every site-to-site device ID owned by the
	// given location, used to expand Rule.AllowAllDevices / DenyAllDevices.
	AllNetworkDevices(locationID int64) []int64
	// UserDevices returns the device IDs owned by a user.
	UserDevices(userID int64) []int64
	// DeviceIPs returns the addresses (within the given location) assigned
	// to a device.
	DeviceIPs(locationID int64, deviceID int64) []netip.Addr
}
