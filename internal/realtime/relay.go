package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"order_manager/internal/restart"

	"go.uber.org/zap"
)

const maxRelayBackoff = time.Minute

// PubSub is the slice of the redis client the relay needs.
type PubSub interface {
	PublishJSON(ctx context.Context, channel string, value interface{}) error
	Subscribe(ctx context.Context, channel string, handle func(payload []byte)) error
}

type envelope struct {
	Rooms []string        `json:"rooms"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisRelay fans events out through a redis channel so that every instance
// delivers them to its own local hub.
type RedisRelay struct {
	ps      PubSub
	channel string
	hub     *Hub
	log     *zap.Logger
	retry   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error

	delivered atomic.Int64
}

func NewRedisRelay(ps PubSub, channel string, hub *Hub, log *zap.Logger) *RedisRelay {
	return &RedisRelay{ps: ps, channel: channel, hub: hub, log: log, retry: time.Second, sleep: restart.SleepCtx}
}

func (r *RedisRelay) Emit(ctx context.Context, rooms []string, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return r.ps.PublishJSON(ctx, r.channel, envelope{Rooms: rooms, Event: event, Data: data})
}

// Run delivers relayed events to the local hub until ctx is done. A dropped
// subscription is reopened with the same backoff as the change watcher.
func (r *RedisRelay) Run(ctx context.Context) error {
	policy := restart.Policy{
		Base:  r.retry,
		Max:   maxRelayBackoff,
		Sleep: r.sleep,
		OnRestart: func(wait time.Duration, err error) {
			r.log.Error("realtime subscription lost, resubscribing",
				zap.String("channel", r.channel), zap.Duration("retry_in", wait), zap.Error(err))
		},
	}
	return policy.Run(ctx, func(ctx context.Context) (bool, error) {
		before := r.delivered.Load()
		err := r.ps.Subscribe(ctx, r.channel, r.deliver)
		return r.delivered.Load() > before, err
	})
}

func (r *RedisRelay) deliver(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn("discarding malformed realtime envelope", zap.Error(err))
		return
	}
	r.delivered.Add(1)
	r.hub.EmitToRooms(env.Rooms, Event{Name: env.Event, Data: env.Data})
}
