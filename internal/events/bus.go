package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/tokobaju-api/internal/store"
)

// EventStore persists domain events.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (store.DomainEvent, error)
}

// Notifier reacts to a persisted event, e.g. by enqueueing background work.
type Notifier interface {
	Notify(ctx context.Context, event store.DomainEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event store.DomainEvent) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event store.DomainEvent) error { return f(ctx, event) }

// Bus persists domain events and fans them out to notifiers. Notifier
// failures are joined and returned alongside the stored event.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (store.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return store.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return store.DomainEvent{}, errors.New("events: topic is required")
	}
	if aggregateID == uuid.Nil {
		return store.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return store.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return store.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, n := range b.Notifiers {
		if n == nil {
			continue
		}
		if notifyErr := n.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notify %s: %w", topic, notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		return json.Marshal(v)
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), raw...), nil
}
