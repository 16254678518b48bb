package audit

import (
	"context"
	"testing"
	"time"

	"github.com/defguard/defguard-core/internal/events"
	"github.com/defguard/defguard-core/internal/store"
)

type fakeQuerier struct {
	rows []store.AuditEventRow
}

func (f *fakeQuerier) InsertAuditEvent(ctx context.Context, p store.InsertAuditEventParams) error {
	f.rows = append(f.rows, store.AuditEventRow{
		Timestamp: p.Timestamp, UserID: p.UserID, Username: p.Username,
		IP: p.IP, Device: p.Device, Module: p.Module, Event: p.Event, Metadata: p.Metadata,
	})
	return nil
}

func (f *fakeQuerier) ListAuditEvents(ctx context.Context, p store.ListAuditEventsParams) ([]store.AuditEventRow, int64, error) {
	return f.rows, int64(len(f.rows)), nil
}

func (f *fakeQuerier) CountResources(ctx context.Context) (store.CountsRow, error) {
	return store.CountsRow{}, nil
}

func (f *fakeQuerier) ListActivityStreams(ctx context.Context) ([]store.ActivityStreamRow, error) {
	return nil, nil
}

var _ store.Querier = (*fakeQuerier)(nil)

func TestStoreAppendAndQuery(t *testing.T) {
	q := &fakeQuerier{}
	bus := NewBus(4)
	s := NewStore(q, bus)

	data, lagged, unsub := bus.Subscribe()
	defer unsub()

	err := s.Append(context.Background(), events.LoggerEvent{
		Timestamp: time.Now(), Username: "alice", Module: "defguard", Event: "user_created",
		Metadata: map[string]any{"foo": "bar"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case line := <-data:
		if len(line) == 0 {
			t.Fatal("expected non-empty NDJSON line")
		}
	case <-lagged:
		t.Fatal("unexpected lag signal")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bus publish")
	}

	page, err := s.Query(context.Background(), Filter{PageSize: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Username != "alice" {
		t.Fatalf("unexpected query result: %+v", page.Data)
	}
	if page.Pagination.TotalItems != 1 {
		t.Fatalf("expected 1 total item, got %d", page.Pagination.TotalItems)
	}
}

func TestDescribeFallback(t *testing.T) {
	e := Entry{Module: "unknown", Event: "thing"}
	if got := Describe(e); got != "unknown: thing" {
		t.Fatalf("unexpected fallback description: %q", got)
	}
	e2 := Entry{Module: "defguard", Event: "user_created", Username: "bob"}
	if got := Describe(e2); got != "bob created a user" {
		t.Fatalf("unexpected description: %q", got)
	}
}
