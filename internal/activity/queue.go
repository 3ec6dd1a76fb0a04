package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/events"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

// TypeRecord is the asynq task type carrying an Entry.
const TypeRecord = "activity:record"

// NewRecordTask encodes e as an asynq task.
func NewRecordTask(e Entry) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("activity: encode task: %w", err)
	}
	return asynq.NewTask(TypeRecord, payload, asynq.MaxRetry(5)), nil
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer records activity asynchronously through the task queue, falling
// back to Fallback when enqueueing fails.
type Enqueuer struct {
	Client   TaskEnqueuer
	Queue    string
	Fallback Recorder
	Logger   zerolog.Logger
}

// Record enqueues e.
func (q Enqueuer) Record(ctx context.Context, e Entry) error {
	task, err := NewRecordTask(e)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if q.Queue != "" {
		opts = append(opts, asynq.Queue(q.Queue))
	}
	if q.Client == nil {
		err = errors.New("queue client not configured")
	} else if _, err = q.Client.EnqueueContext(ctx, task, opts...); err == nil {
		return nil
	}
	q.Logger.Warn().Err(err).Str("action", e.Action).Msg("activity enqueue failed")
	if q.Fallback == nil {
		return fmt.Errorf("activity: enqueue: %w", err)
	}
	return q.Fallback.Record(ctx, e)
}

// TaskHandler persists queued entries in the worker.
type TaskHandler struct {
	Recorder Recorder
}

// ProcessTask implements asynq.Handler.
func (h TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Entry
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("activity: decode task: %v: %w", err, asynq.SkipRetry)
	}
	return h.Recorder.Record(ctx, e)
}

// StatusNotifier records order status changes emitted on the event bus.
func StatusNotifier(rec Recorder) events.Notifier {
	return events.NotifierFunc(func(ctx context.Context, ev store.DomainEvent) error {
		if ev.Topic != events.TopicOrderStatusChanged {
			return nil
		}
		var payload struct {
			Status  string `json:"status"`
			ActorID string `json:"actorId"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("activity: decode event: %w", err)
		}
		return rec.Record(ctx, Entry{
			UserID:  payload.ActorID,
			Role:    common.RoleAdmin,
			Action:  ActionUpdateStatus,
			Details: fmt.Sprintf("Order %s set to %s", ev.AggregateID, payload.Status),
		})
	})
}
