package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OrderIDGenerator issues the human-facing order number.
type OrderIDGenerator interface {
	Next(ctx context.Context) (string, error)
}

// Sequence is a shared monotonically increasing counter.
type Sequence interface {
	NextOrderSequence(ctx context.Context) (int64, error)
}

type sequenceOrderIDs struct {
	seq    Sequence
	prefix string
	now    func() time.Time
	log    *zap.Logger
}

// NewOrderIDGenerator numbers orders from seq. With a nil seq, or when the
// counter is unreachable, the number falls back to a millisecond timestamp.
func NewOrderIDGenerator(seq Sequence, prefix string, log *zap.Logger) OrderIDGenerator {
	return &sequenceOrderIDs{seq: seq, prefix: prefix, now: time.Now, log: log}
}

func (g *sequenceOrderIDs) Next(ctx context.Context) (string, error) {
	if g.seq != nil {
		n, err := g.seq.NextOrderSequence(ctx)
		if err == nil {
			return fmt.Sprintf("%s%04d", g.prefix, n), nil
		}
		g.log.Warn("order sequence unavailable, using timestamp id", zap.Error(err))
	}
	return fmt.Sprintf("%s%d", g.prefix, g.now().UnixMilli()), nil
}
