// Package counts implements Component C: a read-mostly snapshot of resource
// counts (users, locations, devices) compared against configured free-tier
// limits to decide whether an enterprise license is required.
package counts

import (
	"context"
	"sync/atomic"

	"github.com/defguard/defguard-core/internal/config"
	"github.com/defguard/defguard-core/internal/store"
)

// Snapshot is a point-in-time count of the resources the free tier limits.
type Snapshot struct {
	Users         int
	Locations     int
	UserDevices   int
	NetworkDevices int
}

// Cache holds the latest Snapshot behind an atomic pointer, following the
// same read-mostly pattern as internal/license.Cache.
type Cache struct {
	current atomic.Pointer[Snapshot]
	limits  *config.FreeTierLimitOptions
}

// NewCache constructs a Cache against the given free-tier limits.
func NewCache(limits *config.FreeTierLimitOptions) *Cache {
	c := &Cache{limits: limits}
	c.current.Store(&Snapshot{})
	return c
}

// Update installs a freshly-queried Snapshot.
func (c *Cache) Update(s Snapshot) {
	c.current.Store(&s)
}

// Refresh recomputes the snapshot from the authoritative store, per
// spec.md §4.C's update_counts(db). Callers invoke this after
// create/delete operations on tracked entities and on an hourly timer.
func (c *Cache) Refresh(ctx context.Context, q store.Querier) error {
	row, err := q.CountResources(ctx)
	if err != nil {
		return err
	}
	c.Update(Snapshot{
		Users:          int(row.Users),
		Locations:      int(row.Locations),
		UserDevices:    int(row.UserDevices),
		NetworkDevices: int(row.NetworkDevices),
	})
	return nil
}

// Current returns the latest known Snapshot.
func (c *Cache) Current() Snapshot {
	return *c.current.Load()
}

// NeedsEnterpriseLicense reports whether the current snapshot exceeds any
// configured free-tier limit, in which case the caller must hold a valid
// enterprise license (see internal/license) for the resource in question to
// keep functioning normally.
func (c *Cache) NeedsEnterpriseLicense() bool {
	s := c.Current()
	l := c.limits
	if l == nil {
		return false
	}
	switch {
	case l.MaxUsers > 0 && s.Users > l.MaxUsers:
		return true
	case l.MaxLocations > 0 && s.Locations > l.MaxLocations:
		return true
	case l.MaxUserDevices > 0 && s.UserDevices > l.MaxUserDevices:
		return true
	case l.MaxNetworkDevices > 0 && s.NetworkDevices > l.MaxNetworkDevices:
		return true
	default:
		return false
	}
}
