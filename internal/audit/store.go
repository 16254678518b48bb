package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/defguard/defguard-core/internal/events"
	"github.com/defguard/defguard-core/internal/store"
)

// SortKey is a query sort column, per spec.md §4.I.
type SortKey int

const (
	SortTimestamp SortKey = iota
	SortUsername
	SortEvent
	SortModule
	SortDevice
)

func (k SortKey) column() string {
	switch k {
	case SortUsername:
		return "username"
	case SortEvent:
		return "event"
	case SortModule:
		return "module"
	case SortDevice:
		return "device"
	default:
		return "timestamp"
	}
}

// SortOrder is ascending or descending.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// Filter is the audit query's filter/sort/page parameters, per spec.md
// §4.I and §6's `/api/v1/audit` contract.
type Filter struct {
	From, Until time.Time
	Modules     []string
	Events      []string
	SortBy      SortKey
	SortOrder   SortOrder
	Page        int
	PageSize    int
}

// Pagination mirrors the response envelope spec.md §4.I/§6 document.
type Pagination struct {
	CurrentPage int
	PageSize    int
	TotalItems  int64
	TotalPages  int
	NextPage    *int
}

// Page is one page of query results.
type Page struct {
	Data       []Entry
	Pagination Pagination
}

// Store is Component I: it persists every LoggerEvent the router forwards
// and answers the paginated query the (out-of-scope) UI issues, while also
// publishing each entry onto Bus for Component J's sinks.
type Store struct {
	q   store.Querier
	Bus *Bus
}

// NewStore wraps q. bus may be nil, in which case no activity stream
// broadcast occurs (tests, or a deployment with no configured sinks).
func NewStore(q store.Querier, bus *Bus) *Store {
	return &Store{q: q, Bus: bus}
}

// Append persists ev and, if a Bus is configured, publishes its NDJSON
// projection to every subscribed activity stream sink. It implements
// events.LoggerSink, so a failure here is propagated as a fatal error by
// the Router (§4.H).
func (s *Store) Append(ctx context.Context, ev events.LoggerEvent) error {
	metaJSON, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	err = s.q.InsertAuditEvent(ctx, store.InsertAuditEventParams{
		Timestamp: ev.Timestamp,
		UserID:    ev.UserID,
		Username:  ev.Username,
		IP:        ev.IP,
		Device:    ev.Device,
		Module:    ev.Module,
		Event:     ev.Event,
		Metadata:  metaJSON,
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	if s.Bus != nil {
		entry := Entry{
			Timestamp: ev.Timestamp,
			UserID:    ev.UserID,
			Username:  ev.Username,
			IP:        ev.IP,
			Device:    ev.Device,
			Module:    ev.Module,
			Event:     ev.Event,
			Metadata:  ev.Metadata,
		}
		if line, err := entry.MarshalNDJSON(); err == nil {
			s.Bus.Publish(line)
		}
	}
	return nil
}

// Query answers a paginated, filtered audit read.
func (s *Store) Query(ctx context.Context, f Filter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	until := f.Until
	if until.IsZero() {
		until = time.Now()
	}

	rows, total, err := s.q.ListAuditEvents(ctx, store.ListAuditEventsParams{
		From:           f.From,
		Until:          until,
		Modules:        f.Modules,
		Events:         f.Events,
		SortColumn:     f.SortBy.column(),
		SortDescending: f.SortOrder == SortDescending,
		Limit:          int32(pageSize),
		Offset:         int32((page - 1) * pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		var meta map[string]any
		if len(r.Metadata) > 0 {
			_ = json.Unmarshal(r.Metadata, &meta)
		}
		entries = append(entries, Entry{
			Timestamp: r.Timestamp,
			UserID:    r.UserID,
			Username:  r.Username,
			IP:        r.IP,
			Device:    r.Device,
			Module:    r.Module,
			Event:     r.Event,
			Metadata:  meta,
		})
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	var next *int
	if page < totalPages {
		n := page + 1
		next = &n
	}
	return &Page{
		Data: entries,
		Pagination: Pagination{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  totalPages,
			NextPage:    next,
		},
	}, nil
}

var _ events.LoggerSink = (*Store)(nil)
