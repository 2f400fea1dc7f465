package services

import (
	"context"
	"sort"
	"time"

	"order_manager/internal/models"
	"order_manager/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventNewOrder     = "newOrder"
	EventOrderUpdate  = "orderUpdate"
	EventDeleteOrder  = "deleteOrder"
	EventNotification = "notification"

	AdminsRoom = "admins"
)

// ChangeKind says where an order change came from.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeEdit   ChangeKind = "edit"
	ChangeDelete ChangeKind = "delete"
	// ChangeFeed is a change observed on the database feed.
	ChangeFeed ChangeKind = "feed"
)

func UserRoom(id uuid.UUID) string {
	return "user:" + id.String()
}

// ComputeChannels returns the rooms an order change must reach: the creator,
// the assignee if any, and the admins for creates and edits. The result is
// sorted and holds no duplicates.
func ComputeChannels(o *models.Order, kind ChangeKind) []string {
	set := map[string]struct{}{
		UserRoom(o.CreatedBy): {},
	}
	if o.AssignedTo != nil && *o.AssignedTo != uuid.Nil {
		set[UserRoom(*o.AssignedTo)] = struct{}{}
	}
	if kind == ChangeCreate || kind == ChangeEdit {
		set[AdminsRoom] = struct{}{}
	}
	rooms := make([]string, 0, len(set))
	for r := range set {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	return rooms
}

// JoinRooms lists the rooms a connected user subscribes to.
func JoinRooms(u *models.User) []string {
	rooms := []string{UserRoom(u.ID)}
	if u.AssignedToLeader != nil && *u.AssignedToLeader != uuid.Nil && *u.AssignedToLeader != u.ID {
		rooms = append(rooms, UserRoom(*u.AssignedToLeader))
	}
	if u.IsAdmin() {
		rooms = append(rooms, AdminsRoom)
	}
	return rooms
}

// OrderEvent is the payload of newOrder, orderUpdate and deleteOrder.
type OrderEvent struct {
	OperationType string        `json:"operationType"`
	ID            uuid.UUID     `json:"_id"`
	OrderID       string        `json:"orderId,omitempty"`
	Customername  string        `json:"customername,omitempty"`
	CreatedBy     uuid.UUID     `json:"createdBy"`
	AssignedTo    *uuid.UUID    `json:"assignedTo,omitempty"`
	FullDocument  *models.Order `json:"fullDocument,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// EventSink receives a copy of every fanned-out event.
type EventSink interface {
	Emit(ctx context.Context, key string, rooms []string, event string, payload interface{}) error
}

// Fanout publishes order events. Failures are logged, never returned, so a
// committed write is never reported as failed because delivery broke.
type Fanout struct {
	emitter realtime.Emitter
	sink    EventSink
	log     *zap.Logger
}

// NewFanout accepts a nil sink when no event stream is configured.
func NewFanout(emitter realtime.Emitter, sink EventSink, log *zap.Logger) *Fanout {
	return &Fanout{emitter: emitter, sink: sink, log: log}
}

// Publish emits one event to all rooms in a single call.
func (f *Fanout) Publish(ctx context.Context, key string, rooms []string, event string, payload interface{}) {
	if f.emitter != nil {
		if err := f.emitter.Emit(ctx, rooms, event, payload); err != nil {
			f.log.Warn("realtime emit failed", zap.String("event", event), zap.Strings("rooms", rooms), zap.Error(err))
		}
	}
	if f.sink != nil {
		if err := f.sink.Emit(ctx, key, rooms, event, payload); err != nil {
			f.log.Warn("event sink emit failed", zap.String("event", event), zap.Error(err))
		}
	}
}

// OrderChanged sends the domain event and, when n is set, the notification
// event to the rooms derived from the order.
func (f *Fanout) OrderChanged(ctx context.Context, kind ChangeKind, o *models.Order, n *models.Notification) {
	rooms := ComputeChannels(o, kind)
	evt := OrderEvent{
		ID:           o.ID,
		OrderID:      o.OrderID,
		Customername: o.Customername,
		CreatedBy:    o.CreatedBy,
		AssignedTo:   o.AssignedTo,
		Timestamp:    time.Now().UTC(),
	}

	var name string
	switch kind {
	case ChangeCreate:
		name, evt.OperationType, evt.FullDocument = EventNewOrder, "insert", o
	case ChangeDelete:
		name, evt.OperationType = EventDeleteOrder, "delete"
	default:
		name, evt.OperationType, evt.FullDocument = EventOrderUpdate, "update", o
	}

	f.Publish(ctx, o.ID.String(), rooms, name, evt)
	if n != nil {
		f.Publish(ctx, o.ID.String(), rooms, EventNotification, n)
	}
}
