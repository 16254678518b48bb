package store

import (
	"context"
	"time"
)

// InsertAuditEventParams is the sqlc-generated-looking parameter struct for
// the audit event insert query (spec.md §4.I: "a single row with a
// serialized JSON metadata blob and indexed columns timestamp, user_id,
// module, event").
type InsertAuditEventParams struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	IP        string
	Device    string
	Module    string
	Event     string
	Metadata  []byte
}

// ListAuditEventsParams is the paginated/filtered audit query contract
// spec.md §4.I documents for the UI: filters plus a sort key/direction.
type ListAuditEventsParams struct {
	From, Until    time.Time
	Modules        []string
	Events         []string
	SortColumn     string
	SortDescending bool
	Limit, Offset  int32
}

// AuditEventRow is one row ListAuditEvents returns.
type AuditEventRow struct {
	Timestamp time.Time
	UserID    int64
	Username  string
	IP        string
	Device    string
	Module    string
	Event     string
	Metadata  []byte
}

// CountsRow is Component C's raw snapshot query result.
type CountsRow struct {
	Users          int64
	Locations      int64
	UserDevices    int64
	NetworkDevices int64
}

// ActivityStreamRow is one configured activity stream sink, as read from
// the enterprise-gated activity_stream table (§4.J).
type ActivityStreamRow struct {
	Name       string
	Kind       string
	URL        string
	Username   string
	Password   string
	TLSCertPEM []byte
}

// Querier is the sqlc-style interface every component in this module
// depends on instead of a concrete *pgxpool.Pool, so tests can substitute
// an in-memory fake the way the teacher's storage.Storage interface lets
// pkg/meshdb substitute storage.NewTestStorage() for a live backend.
type Querier interface {
	InsertAuditEvent(ctx context.Context, p InsertAuditEventParams) error
	ListAuditEvents(ctx context.Context, p ListAuditEventsParams) ([]AuditEventRow, int64, error)
	CountResources(ctx context.Context) (CountsRow, error)
	ListActivityStreams(ctx context.Context) ([]ActivityStreamRow, error)
}
