package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ActivityLog is a row of the activity_logs table.
type ActivityLog struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	UserName  *string
	Role      *string
	Action    string
	Details   *string
	CreatedAt time.Time
}

// InsertActivityLogParams carries a new activity entry.
type InsertActivityLogParams struct {
	UserID   *uuid.UUID
	UserName *string
	Role     *string
	Action   string
	Details  *string
}

// DomainEvent is a row of the domain_events table.
type DomainEvent struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     json.RawMessage
	OccurredAt  time.Time
}

const activityColumns = `id, user_id, user_name, role, action, details, created_at`

func scanActivity(row pgx.Row) (ActivityLog, error) {
	var a ActivityLog
	err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Role, &a.Action, &a.Details, &a.CreatedAt)
	return a, err
}

// InsertActivityLog records an activity entry.
func (q *Queries) InsertActivityLog(ctx context.Context, arg InsertActivityLogParams) (ActivityLog, error) {
	a, err := scanActivity(q.db.QueryRow(ctx, `INSERT INTO activity_logs (user_id, user_name, role, action, details)
VALUES ($1, $2, $3, $4, $5) RETURNING `+activityColumns, arg.UserID, arg.UserName, arg.Role, arg.Action, arg.Details))
	return a, wrapErr("insert activity log", err)
}

// ListActivityLogs returns entries newest first, optionally for a single user.
func (q *Queries) ListActivityLogs(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]ActivityLog, error) {
	limit, offset = clampLimit(limit, offset)
	var (
		rows pgx.Rows
		err  error
	)
	if userID != nil {
		rows, err = q.db.Query(ctx, `SELECT `+activityColumns+` FROM activity_logs WHERE user_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, *userID, limit, offset)
	} else {
		rows, err = q.db.Query(ctx, `SELECT `+activityColumns+` FROM activity_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, wrapErr("list activity logs", err)
	}
	defer rows.Close()
	out := make([]ActivityLog, 0, limit)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, wrapErr("list activity logs", err)
		}
		out = append(out, a)
	}
	return out, wrapErr("list activity logs", rows.Err())
}

// CountActivityLogs counts entries, optionally for a single user.
func (q *Queries) CountActivityLogs(ctx context.Context, userID *uuid.UUID) (int64, error) {
	var total int64
	var err error
	if userID != nil {
		err = q.db.QueryRow(ctx, `SELECT COUNT(*) FROM activity_logs WHERE user_id = $1`, *userID).Scan(&total)
	} else {
		err = q.db.QueryRow(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&total)
	}
	return total, wrapErr("count activity logs", err)
}

// InsertDomainEvent appends an event to the outbox table.
func (q *Queries) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (DomainEvent, error) {
	var ev DomainEvent
	err := q.db.QueryRow(ctx, `INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3) RETURNING id, topic, aggregate_id, payload, occurred_at`, topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, wrapErr("insert domain event", err)
}
