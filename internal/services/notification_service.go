package services

import (
	"context"
	"fmt"
	"time"

	"order_manager/internal/models"
	"order_manager/internal/repository"
)

const defaultNotificationLimit = 50

type NotificationService interface {
	List(ctx context.Context, actor *models.User, limit int) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, actor *models.User) (int64, error)
	ClearAll(ctx context.Context, actor *models.User) (int64, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	scoper Scoper
}

func NewNotificationService(repo repository.NotificationRepository, scoper Scoper) NotificationService {
	return &notificationService{repo: repo, scoper: scoper}
}

func (s *notificationService) List(ctx context.Context, actor *models.User, limit int) ([]models.Notification, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.repo.List(ctx, scope.NotificationUsers(), limit)
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor *models.User) (int64, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkRead(ctx, scope.NotificationUsers())
}

func (s *notificationService) ClearAll(ctx context.Context, actor *models.User) (int64, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return 0, err
	}
	return s.repo.Clear(ctx, scope.NotificationUsers())
}

// newNotification builds the record stored for an order lifecycle event.
// It is filed under the order's owner and assignee, not the actor.
func newNotification(verb string, actor *models.User, o *models.Order, at time.Time) *models.Notification {
	customer := o.Customername
	if customer == "" {
		customer = "unknown customer"
	}
	owner := o.CreatedBy
	n := &models.Notification{
		Message:   fmt.Sprintf("Order %s for %s %s by %s", o.OrderID, customer, verb, actor.Username),
		Timestamp: at,
		Role:      models.NotificationRoleAll,
		UserID:    &owner,
		OrderID:   o.OrderID,
	}
	if o.AssignedTo != nil {
		assignee := *o.AssignedTo
		n.AssignedTo = &assignee
	}
	return n
}
