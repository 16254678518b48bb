package clients

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

func mustKey(t *testing.T) wgtypes.Key {
	t.Helper()
	k, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	return k.PublicKey()
}

func TestConnectGetDisconnect(t *testing.T) {
	m := NewMap()
	key := mustKey(t)
	ep := netip.MustParseAddrPort("10.0.0.5:51820")
	now := time.Now()

	if err := m.Connect(1, key, ep, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, ok := m.Get(1, key)
	if !ok || state.Endpoint != ep {
		t.Fatalf("expected connected client, got %+v ok=%v", state, ok)
	}

	m.Disconnect(1, key)
	if _, ok := m.Get(1, key); ok {
		t.Fatal("expected client removed after Disconnect")
	}
}

func TestConnectAlreadyConnectedFails(t *testing.T) {
	m := NewMap()
	key := mustKey(t)
	now := time.Now()

	if err := m.Connect(1, key, netip.AddrPort{}, now); err != nil {
		t.Fatalf("unexpected error on first connect: %v", err)
	}
	if err := m.Connect(1, key, netip.AddrPort{}, now); !errors.Is(err, ErrClientAlreadyConnected) {
		t.Fatalf("expected ErrClientAlreadyConnected, got %v", err)
	}
	// the original session must survive the rejected duplicate connect.
	if _, ok := m.Get(1, key); !ok {
		t.Fatal("expected original session to remain after duplicate connect")
	}
}

func TestDisconnectInactive(t *testing.T) {
	m := NewMap()
	active := mustKey(t)
	stale := mustKey(t)
	now := time.Now()

	if err := m.Connect(1, active, netip.AddrPort{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Connect(1, stale, netip.AddrPort{}, now.Add(-time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evicted := m.DisconnectInactive(1, now, time.Minute)
	if len(evicted) != 1 || evicted[0].PublicKey != stale {
		t.Fatalf("expected only the stale client evicted, got %+v", evicted)
	}
	if _, ok := m.Get(1, active); !ok {
		t.Fatal("active client should remain")
	}
	if _, ok := m.Get(1, stale); ok {
		t.Fatal("stale client should be gone")
	}
}
