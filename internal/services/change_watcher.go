package services

import (
	"context"
	"time"

	"order_manager/internal/changefeed"
	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/restart"

	"go.uber.org/zap"
)

const maxWatchBackoff = time.Minute

// ChangeSource streams order changes until it fails or ctx ends.
type ChangeSource interface {
	Listen(ctx context.Context, handle func(changefeed.Change)) error
}

// ChangeWatcher republishes every change seen on the database feed as an
// orderUpdate to the creator and assignee rooms. It runs alongside the
// request path so that writes made by other tools reach clients too.
type ChangeWatcher struct {
	source ChangeSource
	orders repository.OrderRepository
	fanout *Fanout
	retry  time.Duration
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewChangeWatcher(source ChangeSource, orders repository.OrderRepository, fanout *Fanout, retry time.Duration, log *zap.Logger) *ChangeWatcher {
	if retry <= 0 {
		retry = time.Second
	}
	return &ChangeWatcher{
		source: source,
		orders: orders,
		fanout: fanout,
		retry:  retry,
		log:    log,
		sleep:  restart.SleepCtx,
	}
}

// Run keeps the feed open until ctx is done. After a failure it reconnects,
// doubling the wait each time up to a minute; a session that delivered at
// least one change resets the wait.
func (w *ChangeWatcher) Run(ctx context.Context) {
	policy := restart.Policy{
		Base:  w.retry,
		Max:   maxWatchBackoff,
		Sleep: w.sleep,
		OnRestart: func(wait time.Duration, err error) {
			w.log.Error("change feed failed, restarting", zap.Duration("retry_in", wait), zap.Error(err))
		},
	}
	_ = policy.Run(ctx, func(ctx context.Context) (bool, error) {
		delivered := false
		err := w.source.Listen(ctx, func(c changefeed.Change) {
			delivered = true
			w.Handle(ctx, c)
		})
		return delivered, err
	})
	w.log.Info("change watcher stopped")
}

// Handle emits one orderUpdate for a change. The current document is
// attached when it can still be loaded.
func (w *ChangeWatcher) Handle(ctx context.Context, c changefeed.Change) {
	stub := &models.Order{ID: c.ID, CreatedBy: c.CreatedBy, AssignedTo: c.AssignedTo}
	rooms := ComputeChannels(stub, ChangeFeed)

	evt := OrderEvent{
		OperationType: c.Op,
		ID:            c.ID,
		CreatedBy:     c.CreatedBy,
		AssignedTo:    c.AssignedTo,
		Timestamp:     time.Now().UTC(),
	}
	if c.Op != changefeed.OpDelete {
		if order, err := w.orders.GetByID(ctx, c.ID); err == nil {
			evt.OrderID = order.OrderID
			evt.Customername = order.Customername
			evt.FullDocument = order
		} else {
			w.log.Debug("change feed order not loadable", zap.String("id", c.ID.String()), zap.Error(err))
		}
	}
	w.fanout.Publish(ctx, c.ID.String(), rooms, EventOrderUpdate, evt)
}
