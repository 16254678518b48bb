package gateway

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestConnectThenDisconnectFiresAfterGraceWindow(t *testing.T) {
	var fired atomic.Bool
	r := NewRegistry(30*time.Millisecond, func(locationID int64, name string) {
		fired.Store(true)
	})
	r.Add(1, "gw-1", "", "1.2.0")
	if _, err := r.Connect(1, "gw-1", "1.2.0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Disconnect(1, "gw-1")

	time.Sleep(10 * time.Millisecond)
	if fired.Load() {
		t.Fatal("disconnect fired before grace window elapsed")
	}
	time.Sleep(50 * time.Millisecond)
	if !fired.Load() {
		t.Fatal("expected disconnect to fire after grace window")
	}
	// per spec.md §4.F, only remove_gateway deletes a GatewayState; staying
	// offline past the grace window must not remove it from the registry.
	state, ok := r.Get(1, "gw-1")
	if !ok {
		t.Fatal("expected gateway to remain in registry after finalized disconnect")
	}
	if state.Connected {
		t.Fatal("expected gateway to be marked disconnected")
	}
}

func TestReconnectWithinGraceWindowSuppressesDisconnect(t *testing.T) {
	var fired atomic.Bool
	r := NewRegistry(50*time.Millisecond, func(locationID int64, name string) {
		fired.Store(true)
	})
	r.Add(1, "gw-1", "", "1.2.0")
	if _, err := r.Connect(1, "gw-1", "1.2.0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Disconnect(1, "gw-1")
	time.Sleep(10 * time.Millisecond)
	if _, err := r.Connect(1, "gw-1", "1.2.0"); err != nil {
		t.Fatalf("unexpected error on reconnect: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Fatal("reconnect within grace window should suppress the disconnect notification")
	}
	state, ok := r.Get(1, "gw-1")
	if !ok || !state.Connected {
		t.Fatal("expected gateway to remain connected after reconnect")
	}
}

func TestConnectWithoutAddFails(t *testing.T) {
	r := NewRegistry(time.Second, nil)
	if _, err := r.Connect(1, "gw-1", "1.2.0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMeetsMinVersion(t *testing.T) {
	cases := []struct {
		version, min string
		want         bool
	}{
		{"1.2.3", "1.0.0", true},
		{"1.0.0", "1.2.3", false},
		{"1.2.3", "1.2.3", true},
		{"2.0.0", "1.9.9", true},
		{"garbage", "1.0.0", false},
	}
	for _, c := range cases {
		if got := MeetsMinVersion(c.version, c.min); got != c.want {
			t.Errorf("MeetsMinVersion(%q, %q) = %v, want %v", c.version, c.min, got, c.want)
		}
	}
}
