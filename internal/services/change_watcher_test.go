package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order_manager/internal/changefeed"
	"order_manager/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedSource plays one session per Listen call.
type scriptedSource struct {
	sessions [][]changefeed.Change
	calls    int
	cancel   context.CancelFunc
}

func (s *scriptedSource) Listen(ctx context.Context, handle func(changefeed.Change)) error {
	if s.calls >= len(s.sessions) {
		s.cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	session := s.sessions[s.calls]
	s.calls++
	for _, c := range session {
		handle(c)
	}
	return errors.New("connection reset")
}

func TestChangeWatcherBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	change := changefeed.Change{Op: changefeed.OpDelete, ID: uuid.New(), CreatedBy: uuid.New()}
	source := &scriptedSource{
		sessions: [][]changefeed.Change{nil, nil, {change}, nil, nil, nil, nil, nil, nil, nil},
		cancel:   cancel,
	}
	emitter := &recordingEmitter{}
	w := NewChangeWatcher(source, newFakeOrders(), NewFanout(emitter, nil, zap.NewNop()), 10*time.Second, zap.NewNop())

	var waits []time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	w.Run(ctx)

	assert.Equal(t, []time.Duration{
		10 * time.Second,
		20 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		time.Minute,
		time.Minute,
		time.Minute,
		time.Minute,
		time.Minute,
	}, waits)
	require.Len(t, emitter.events, 1)
}

func TestChangeWatcherStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &scriptedSource{sessions: [][]changefeed.Change{nil, nil, nil}, cancel: cancel}
	w := NewChangeWatcher(source, newFakeOrders(), NewFanout(nil, nil, zap.NewNop()), time.Second, zap.NewNop())
	w.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	w.Run(ctx)
	assert.Equal(t, 1, source.calls)
}

func TestChangeWatcherHandle(t *testing.T) {
	orders := newFakeOrders()
	creator, assignee := uuid.New(), uuid.New()
	stored := orders.put(&models.Order{OrderID: "PMTO0042", Customername: "Acme", CreatedBy: creator, AssignedTo: &assignee})

	emitter := &recordingEmitter{}
	w := NewChangeWatcher(nil, orders, NewFanout(emitter, nil, zap.NewNop()), 0, zap.NewNop())

	w.Handle(context.Background(), changefeed.Change{Op: changefeed.OpUpdate, ID: stored.ID, CreatedBy: creator, AssignedTo: &assignee})
	w.Handle(context.Background(), changefeed.Change{Op: changefeed.OpDelete, ID: uuid.New(), CreatedBy: creator})

	require.Len(t, emitter.events, 2)
	assert.Equal(t, EventOrderUpdate, emitter.events[0].Event)
	assert.ElementsMatch(t, []string{UserRoom(creator), UserRoom(assignee)}, emitter.events[0].Rooms)

	var evt OrderEvent
	require.NoError(t, json.Unmarshal(emitter.events[0].Data, &evt))
	assert.Equal(t, "update", evt.OperationType)
	assert.Equal(t, "PMTO0042", evt.OrderID)
	require.NotNil(t, evt.FullDocument)

	var deleted OrderEvent
	require.NoError(t, json.Unmarshal(emitter.events[1].Data, &deleted))
	assert.Equal(t, "delete", deleted.OperationType)
	assert.Nil(t, deleted.FullDocument)
	assert.Equal(t, []string{UserRoom(creator)}, emitter.events[1].Rooms)
}

type flakySequence struct{ err error }

func (s flakySequence) NextOrderSequence(context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 7, nil
}

func TestOrderIDGenerator(t *testing.T) {
	g := NewOrderIDGenerator(flakySequence{}, "PMTO", zap.NewNop())
	id, err := g.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PMTO0007", id)

	fallback := NewOrderIDGenerator(flakySequence{err: errors.New("no redis")}, "PMTO", zap.NewNop()).(*sequenceOrderIDs)
	fallback.now = func() time.Time { return time.UnixMilli(1700000000123) }
	id, err = fallback.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PMTO1700000000123", id)

	none := NewOrderIDGenerator(nil, "X", zap.NewNop()).(*sequenceOrderIDs)
	none.now = fallback.now
	id, _ = none.Next(context.Background())
	assert.Equal(t, "X1700000000123", id)
}
