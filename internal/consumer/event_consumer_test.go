package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/ticketing-service/internal/models"
)

// --- Fakes ---

type mockSyncer struct {
	syncFn func(ctx context.Context, event *models.Event) error
}

func (m *mockSyncer) SyncEvent(ctx context.Context, event *models.Event) error {
	return m.syncFn(ctx, event)
}

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records map[uint64]*ackRecord
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{records: map[uint64]*ackRecord{}}
}

func (f *fakeAcknowledger) record(tag uint64) *ackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[tag]
	if !ok {
		r = &ackRecord{}
		f.records[tag] = r
	}
	return r
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.record(tag).acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	r := f.record(tag)
	r.nacked, r.requeue = true, requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		RoutingKey:   "event.updated",
		Body:         []byte(body),
	}
}

const eventBody = `{"id":"0f8fad5b-d9cb-469f-a165-70867728950e","name":"Golang Workshop","starts_at":"2027-02-20T17:00:00Z","total_tickets":50}`

// --- Tests ---

func TestHandleMessage_AcksOnSuccess(t *testing.T) {
	var synced *models.Event
	ec := NewEventConsumer(&mockSyncer{
		syncFn: func(ctx context.Context, event *models.Event) error {
			synced = event
			return nil
		},
	})
	ack := newFakeAcknowledger()

	ec.handleMessage(context.Background(), delivery(ack, 1, eventBody))

	require.NotNil(t, synced)
	assert.Equal(t, "Golang Workshop", synced.Name)
	assert.Equal(t, 50, synced.TotalTickets)
	assert.True(t, ack.record(1).acked)
}

func TestHandleMessage_BadJSONIsDeadLettered(t *testing.T) {
	ec := NewEventConsumer(&mockSyncer{
		syncFn: func(ctx context.Context, event *models.Event) error {
			t.Fatal("sync must not run for an undecodable body")
			return nil
		},
	})
	ack := newFakeAcknowledger()

	ec.handleMessage(context.Background(), delivery(ack, 7, `{not json`))

	r := ack.record(7)
	assert.True(t, r.nacked)
	assert.False(t, r.requeue)
}

func TestHandleMessage_ErrorRouting(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		requeue bool
	}{
		{"invalid event", models.ErrInvalidEvent, false},
		{"capacity below sold", models.ErrCapacityBelowSold, false},
		{"storage conflict", models.ErrConflict, true},
		{"database down", errors.New("connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ec := NewEventConsumer(&mockSyncer{
				syncFn: func(ctx context.Context, event *models.Event) error {
					return tc.err
				},
			})
			ack := newFakeAcknowledger()

			ec.handleMessage(context.Background(), delivery(ack, 3, eventBody))

			r := ack.record(3)
			assert.False(t, r.acked)
			assert.True(t, r.nacked)
			assert.Equal(t, tc.requeue, r.requeue)
		})
	}
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	ec := NewEventConsumer(&mockSyncer{
		syncFn: func(ctx context.Context, event *models.Event) error { return nil },
	})
	ack := newFakeAcknowledger()
	msgs := make(chan amqp.Delivery, 2)
	msgs <- delivery(ack, 1, eventBody)
	msgs <- delivery(ack, 2, eventBody)
	close(msgs)

	err := ec.Run(context.Background(), msgs)

	assert.NoError(t, err)
	assert.True(t, ack.record(1).acked)
	assert.True(t, ack.record(2).acked)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ec := NewEventConsumer(&mockSyncer{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ec.Run(ctx, make(chan amqp.Delivery)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
