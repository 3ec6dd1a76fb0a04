package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/events"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

type stubStore struct {
	topic   string
	payload []byte
	err     error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (store.DomainEvent, error) {
	if s.err != nil {
		return store.DomainEvent{}, s.err
	}
	s.topic = topic
	s.payload = payload
	return store.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	st := &stubStore{}
	var seen []store.DomainEvent
	bus := events.Bus{
		Store: st,
		Notifiers: []events.Notifier{events.NotifierFunc(func(_ context.Context, ev store.DomainEvent) error {
			seen = append(seen, ev)
			return nil
		})},
	}

	orderID := uuid.New()
	ev, err := bus.Emit(context.Background(), events.TopicOrderCreated, orderID, map[string]any{"totalAmount": 191500})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, st.topic)
	require.JSONEq(t, `{"totalAmount":191500}`, string(st.payload))
	require.Len(t, seen, 1)
	require.Equal(t, ev.ID, seen[0].ID)
	require.Equal(t, orderID, seen[0].AggregateID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &decoded))
	require.EqualValues(t, 191500, decoded["totalAmount"])
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	boom := errors.New("queue down")
	bus := events.Bus{
		Store: &stubStore{},
		Notifiers: []events.Notifier{
			events.NotifierFunc(func(context.Context, store.DomainEvent) error { return boom }),
			nil,
		},
	}
	ev, err := bus.Emit(context.Background(), events.TopicOrderStatusChanged, uuid.New(), nil)
	require.ErrorIs(t, err, boom)
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.JSONEq(t, `{}`, string(ev.Payload))
}

func TestEmitRejectsBadInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), " ", uuid.New(), nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicOrderCreated, uuid.Nil, nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicOrderCreated, uuid.New(), []byte("{bad"))
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(context.Background(), events.TopicOrderCreated, uuid.New(), nil)
	require.Error(t, err)
}

func TestEmitStoreFailure(t *testing.T) {
	bus := events.Bus{Store: &stubStore{err: errors.New("db down")}}
	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, uuid.New(), nil)
	require.ErrorContains(t, err, "persist event")
}
