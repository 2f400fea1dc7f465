package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer writes order lifecycle events to a kafka topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *zap.Logger
}

// LifecycleEvent is the record written for every fanned-out order event.
type LifecycleEvent struct {
	Event     string          `json:"event"`
	Rooms     []string        `json:"rooms"`
	Data      json.RawMessage `json:"data"`
	EmittedAt time.Time       `json:"emittedAt"`
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("kafka producer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &Producer{writer: w, topic: topic, log: log}
}

// Emit publishes one lifecycle event keyed by key, normally the order id.
func (p *Producer) Emit(ctx context.Context, key string, rooms []string, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(LifecycleEvent{Event: event, Rooms: rooms, Data: data, EmittedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish lifecycle event",
			zap.String("event", event), zap.String("key", key), zap.String("topic", p.topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	p.log.Info("closing kafka writer", zap.String("topic", p.topic))
	return p.writer.Close()
}
