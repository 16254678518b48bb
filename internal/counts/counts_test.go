package counts

import (
	"testing"

	"github.com/defguard/defguard-core/internal/config"
)

func TestNeedsEnterpriseLicense(t *testing.T) {
	limits := &config.FreeTierLimitOptions{MaxUsers: 10, MaxLocations: 1, MaxUserDevices: 20, MaxNetworkDevices: 20}
	c := NewCache(limits)

	if c.NeedsEnterpriseLicense() {
		t.Fatal("empty snapshot should not need a license")
	}

	c.Update(Snapshot{Users: 11})
	if !c.NeedsEnterpriseLicense() {
		t.Fatal("exceeding MaxUsers should require a license")
	}
}

func TestEnterpriseSettingsGate(t *testing.T) {
	s := EnterpriseSettings{DisableAllTraffic: true}
	if s.Gate(false, false) {
		t.Fatal("DisableAllTraffic with no valid license should block even when no limit is exceeded")
	}
	if !s.Gate(true, false) {
		t.Fatal("a valid license should keep traffic enabled under DisableAllTraffic")
	}

	s2 := EnterpriseSettings{}
	if s2.Gate(false, true) {
		t.Fatal("needing a license without one should gate off")
	}
	if !s2.Gate(true, true) {
		t.Fatal("needing a license with one present should gate on")
	}
}
