package activitystream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/defguard/defguard-core/internal/audit"
)

type fakeConfigSource struct {
	mu      sync.Mutex
	streams []StreamConfig
}

func (f *fakeConfigSource) ListStreams(ctx context.Context) ([]StreamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StreamConfig(nil), f.streams...), nil
}

type fakeLicenseGate struct {
	enabled atomic.Bool
}

func (f *fakeLicenseGate) IsEnterpriseEnabled() bool { return f.enabled.Load() }

func TestManagerSpawnsSinkWhenEnterpriseEnabled(t *testing.T) {
	var received int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/x-ndjson" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		atomic.AddInt32(&received, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gate := &fakeLicenseGate{}
	gate.enabled.Store(true)
	cfgSource := &fakeConfigSource{streams: []StreamConfig{{Name: "s1", Kind: SinkVectorHTTP, URL: srv.URL}}}
	bus := audit.NewBus(8)
	reload := make(chan struct{}, 1)

	mgr := &Manager{Config: cfgSource, License: gate, Bus: bus, ReloadSignal: reload, CheckInterval: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if bus.SubscriberCount() == 0 {
		t.Fatal("expected a sink to subscribe to the bus")
	}

	bus.Publish([]byte(`{"event":"test"}` + "\n"))

	deadline = time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&received) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&received) == 0 {
		t.Fatal("sink never received the published entry")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestManagerStopsSinksWhenEnterpriseDisabled(t *testing.T) {
	gate := &fakeLicenseGate{}
	gate.enabled.Store(false)
	cfgSource := &fakeConfigSource{streams: []StreamConfig{{Name: "s1", Kind: SinkVectorHTTP, URL: "http://example.invalid"}}}
	bus := audit.NewBus(8)
	reload := make(chan struct{}, 1)

	mgr := &Manager{Config: cfgSource, License: gate, Bus: bus, ReloadSignal: reload, CheckInterval: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if bus.SubscriberCount() != 0 {
		t.Fatal("expected no sinks while enterprise is disabled")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}
