package license

import (
	"sync/atomic"
	"time"

	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/pkg/metrics"
)

// Cache holds the currently active License behind an atomic pointer so
// readers (the activity stream manager) never block on a mutex, mirroring how the teacher keeps
// read-mostly raft configuration snapshots behind atomic values rather than
// a lock.
type Cache struct {
	current atomic.Pointer[License]
	store   *Store
}

// NewCache constructs a Cache backed by the given on-disk Store. store may
// be nil, in which case the cache holds only in-memory state (used in
// tests).
func NewCache(store *Store) *Cache {
	c := &Cache{store: store}
	if store != nil {
		if l, err := store.Load(); err == nil && l != nil {
			c.current.Store(l)
		}
	}
	return c
}

// Current returns the last-known License, or nil if none has ever loaded.
func (c *Cache) Current() *License {
	return c.current.Load()
}

// Set installs a newly-fetched, already-verified License and persists it as
// the last-known-good copy.
func (c *Cache) Set(l *License) error {
	c.current.Store(l)
	if c.store != nil {
		if err := c.store.Save(l); err != nil {
			logging.Component("license").Warn("persist license cache failed", "error", err)
			return err
		}
	}
	return nil
}

// Validate reports whether the cached license is usable right now: present
// and not expired. Resource-count limits are checked separately by
// internal/counts since they need live counts this package has no access
// to.
func (c *Cache) Validate(now time.Time) error {
	l := c.current.Load()
	if l == nil {
		metrics.LicenseValidations.WithLabelValues("missing").Inc()
		return ErrMissing
	}
	if l.Expired(now) {
		metrics.LicenseValidations.WithLabelValues("expired").Inc()
		return ErrExpired
	}
	metrics.LicenseValidations.WithLabelValues("ok").Inc()
	return nil
}

// IsEnterpriseEnabled is a convenience wrapper used by gating call sites
// (activity stream reload) that only care
// whether there is currently a valid license at all.
func (c *Cache) IsEnterpriseEnabled() bool {
	return c.Validate(time.Now()) == nil
}
