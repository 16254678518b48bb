package gateway

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// IncompatibleGateway is one rejected connection attempt, surfaced to the
// admin UI instead of merely being dropped silently. Grounded on the
// original implementation's client_version.rs, which keeps such attempts
// visible rather than only logging them (SPEC_FULL.md §4).
type IncompatibleGateway struct {
	LocationID int64
	Name       string
	Version    string
	SeenAt     time.Time
}

// IncompatibleRegistry tracks gateways that attempted to connect with a
// version below the configured minimum.
type IncompatibleRegistry struct {
	mu      sync.Mutex
	entries map[string]*IncompatibleGateway
}

// NewIncompatibleRegistry returns an empty registry.
func NewIncompatibleRegistry() *IncompatibleRegistry {
	return &IncompatibleRegistry{entries: make(map[string]*IncompatibleGateway)}
}

// Record notes a rejected connection attempt.
func (r *IncompatibleRegistry) Record(locationID int64, name, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(locationID, name)
	r.entries[key] = &IncompatibleGateway{
		LocationID: locationID,
		Name:       name,
		Version:    version,
		SeenAt:     time.Now(),
	}
}

// Clear removes an entry once a gateway with a compatible version connects,
// since it is no longer meaningfully "incompatible".
func (r *IncompatibleRegistry) Clear(locationID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, registryKey(locationID, name))
}

// List returns every currently-tracked incompatible gateway.
func (r *IncompatibleRegistry) List() []*IncompatibleGateway {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*IncompatibleGateway, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

func registryKey(locationID int64, name string) string {
	return strconv.FormatInt(locationID, 10) + "/" + name
}

// MeetsMinVersion reports whether version is >= min, comparing dotted
// numeric components ("1.2.3"); a version that fails to parse is treated as
// incompatible. This is a hand-rolled numeric compare rather than
// golang.org/x/mod/semver since gateway versions are not guaranteed to
// carry the "v" prefix semver.Compare requires and the only comparison
// needed is a simple "at least this floor".
func MeetsMinVersion(version, min string) bool {
	v, err1 := parseVersion(version)
	m, err2 := parseVersion(min)
	if err1 != nil || err2 != nil {
		return false
	}
	for i := 0; i < len(v) || i < len(m); i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(m) {
			b = m[i]
		}
		if a != b {
			return a > b
		}
	}
	return true
}

func parseVersion(s string) ([]int, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
