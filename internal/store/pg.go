package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedSortColumns whitelists the audit query's sortable columns so
// SortColumn can be interpolated into the ORDER BY clause without opening
// a SQL injection hole — pgx's query parameters cannot bind identifiers,
// only values, so this is the standard mitigation for a caller-selected
// column name.
var allowedSortColumns = map[string]string{
	"timestamp": "timestamp",
	"username":  "username",
	"event":     "event",
	"module":    "module",
	"device":    "device",
}

// PGQuerier implements Querier against a live Postgres pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps an already-opened pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) InsertAuditEvent(ctx context.Context, p InsertAuditEventParams) error {
	const stmt = `
		INSERT INTO audit_event (timestamp, user_id, username, ip, device, module, event, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.pool.Exec(ctx, stmt, p.Timestamp, p.UserID, p.Username, p.IP, p.Device, p.Module, p.Event, p.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit_event: %w", err)
	}
	return nil
}

func (q *PGQuerier) ListAuditEvents(ctx context.Context, p ListAuditEventsParams) ([]AuditEventRow, int64, error) {
	column, ok := allowedSortColumns[p.SortColumn]
	if !ok {
		column = "timestamp"
	}
	direction := "ASC"
	if p.SortDescending {
		direction = "DESC"
	}

	where := []string{"timestamp >= $1", "timestamp <= $2"}
	args := []any{p.From, p.Until}
	if len(p.Modules) > 0 {
		args = append(args, p.Modules)
		where = append(where, fmt.Sprintf("module = ANY($%d)", len(args)))
	}
	if len(p.Events) > 0 {
		args = append(args, p.Events)
		where = append(where, fmt.Sprintf("event = ANY($%d)", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	countStmt := fmt.Sprintf(`SELECT count(*) FROM audit_event WHERE %s`, whereClause)
	var total int64
	if err := q.pool.QueryRow(ctx, countStmt, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit_event: %w", err)
	}

	args = append(args, p.Limit, p.Offset)
	listStmt := fmt.Sprintf(`
		SELECT timestamp, user_id, username, ip, device, module, event, metadata
		FROM audit_event
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`, whereClause, column, direction, len(args)-1, len(args))

	rows, err := q.pool.Query(ctx, listStmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit_event: %w", err)
	}
	defer rows.Close()

	var out []AuditEventRow
	for rows.Next() {
		var r AuditEventRow
		if err := rows.Scan(&r.Timestamp, &r.UserID, &r.Username, &r.IP, &r.Device, &r.Module, &r.Event, &r.Metadata); err != nil {
			return nil, 0, fmt.Errorf("scan audit_event: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit_event: %w", err)
	}
	return out, total, nil
}

func (q *PGQuerier) CountResources(ctx context.Context) (CountsRow, error) {
	const stmt = `
		SELECT
			(SELECT count(*) FROM "user"),
			(SELECT count(*) FROM wireguard_network),
			(SELECT count(*) FROM device WHERE user_id IS NOT NULL),
			(SELECT count(*) FROM device WHERE network_id IS NOT NULL)`
	var row CountsRow
	err := q.pool.QueryRow(ctx, stmt).Scan(&row.Users, &row.Locations, &row.UserDevices, &row.NetworkDevices)
	if err != nil {
		return CountsRow{}, fmt.Errorf("count resources: %w", err)
	}
	return row, nil
}

func (q *PGQuerier) ListActivityStreams(ctx context.Context) ([]ActivityStreamRow, error) {
	const stmt = `SELECT name, kind, url, username, password, tls_cert FROM activity_stream`
	rows, err := q.pool.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list activity_stream: %w", err)
	}
	defer rows.Close()

	var out []ActivityStreamRow
	for rows.Next() {
		var r ActivityStreamRow
		if err := rows.Scan(&r.Name, &r.Kind, &r.URL, &r.Username, &r.Password, &r.TLSCertPEM); err != nil {
			return nil, fmt.Errorf("scan activity_stream: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity_stream: %w", err)
	}
	return out, nil
}

var _ Querier = (*PGQuerier)(nil)
