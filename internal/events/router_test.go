package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/defguard/defguard-core/internal/mail"
)

type fakeLogger struct {
	mu   sync.Mutex
	got  []LoggerEvent
	fail error
}

func (f *fakeLogger) Append(ctx context.Context, ev LoggerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, ev)
	return nil
}

type fakeMail struct {
	mu  sync.Mutex
	got []mail.Message
}

func (f *fakeMail) Send(ctx context.Context, m mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, m)
	return nil
}

func TestRouterPersistsAndForwards(t *testing.T) {
	logger := &fakeLogger{}
	mailSink := &fakeMail{}
	gw := NewGatewayBroadcaster()
	r := NewRouter(4, logger, mailSink, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	ch, unsub := gw.Subscribe(42)
	defer unsub()

	r.API <- Event{Kind: KindFirewallConfigChanged, NetworkID: 42, Context: Context{Timestamp: time.Now(), Username: "alice"}}
	r.Internal <- Event{Kind: KindGatewayDisconnected, Context: Context{Timestamp: time.Now(), Username: "alice"}}

	select {
	case upd := <-ch:
		if upd.NetworkID != 42 {
			t.Fatalf("expected network 42, got %d", upd.NetworkID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for gateway update")
	}

	deadline := time.After(time.Second)
	for {
		logger.mu.Lock()
		n := len(logger.got)
		logger.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 2 logger events, got %d", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	mailSink.mu.Lock()
	defer mailSink.mu.Unlock()
	if len(mailSink.got) != 1 || mailSink.got[0].Template != mail.TemplateGatewayDisconnected {
		t.Fatalf("expected one gateway-disconnected mail, got %+v", mailSink.got)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRouterFatalOnLoggerFailure(t *testing.T) {
	logger := &fakeLogger{fail: errors.New("db down")}
	r := NewRouter(1, logger, nil, nil)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.API <- Event{Kind: KindUserCreated, Context: Context{Timestamp: time.Now()}}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected router to stop with an error")
		}
	case <-time.After(time.Second):
		t.Fatal("router did not stop after logger failure")
	}
}

func TestRouterFatalOnChannelClose(t *testing.T) {
	logger := &fakeLogger{}
	r := NewRouter(0, logger, nil, nil)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	close(r.API)
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from closed input channel")
		}
	case <-time.After(time.Second):
		t.Fatal("router did not stop after channel close")
	}
}
