package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/tokobaju-api/internal/store"
)

// Action labels recorded by the API.
const (
	ActionRegister     = "Register"
	ActionLogin        = "Login"
	ActionCreateOrder  = "Create Order"
	ActionUpdateStatus = "Update Order Status"
	ActionTopUp        = "Wallet Top Up"
)

// Entry is a single activity to record.
type Entry struct {
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
	Role     string `json:"role,omitempty"`
	Action   string `json:"action"`
	Details  string `json:"details,omitempty"`
}

// Log is the API view of a recorded activity.
type Log struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	UserName  *string   `json:"userName"`
	Role      *string   `json:"role"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder accepts activity entries. Service records synchronously and
// Enqueuer defers to the worker.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Store is the persistence required by Service.
type Store interface {
	InsertActivityLog(ctx context.Context, arg store.InsertActivityLogParams) (store.ActivityLog, error)
	ListActivityLogs(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]store.ActivityLog, error)
	CountActivityLogs(ctx context.Context, userID *uuid.UUID) (int64, error)
}

// Service writes and reads the activity log.
type Service struct {
	Store Store
}

// Record persists e. Entries without an action are rejected.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if s == nil || s.Store == nil {
		return errors.New("activity: store not configured")
	}
	action := strings.TrimSpace(e.Action)
	if action == "" {
		return errors.New("activity: action is required")
	}
	params := store.InsertActivityLogParams{
		Action:   action,
		UserName: optional(e.UserName),
		Role:     optional(e.Role),
		Details:  optional(e.Details),
	}
	if id, err := uuid.Parse(strings.TrimSpace(e.UserID)); err == nil {
		params.UserID = &id
	}
	_, err := s.Store.InsertActivityLog(ctx, params)
	return err
}

// List returns a page of logs newest first and the total count. A nil userID lists everyone.
func (s *Service) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]Log, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("activity: store not configured")
	}
	rows, err := s.Store.ListActivityLogs(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountActivityLogs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLog(row))
	}
	return out, total, nil
}

func toLog(row store.ActivityLog) Log {
	l := Log{
		ID:        row.ID.String(),
		UserName:  row.UserName,
		Role:      row.Role,
		Action:    row.Action,
		Details:   row.Details,
		Timestamp: row.CreatedAt,
	}
	if row.UserID != nil {
		id := row.UserID.String()
		l.UserID = &id
	}
	return l
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
