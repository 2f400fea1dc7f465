package repository

import (
	"context"

	"order_manager/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository persists lifecycle notifications. A nil userIDs
// slice means "every notification"; otherwise only rows whose owner or
// assignee is in the slice are touched.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userIDs []uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userIDs []uuid.UUID) (int64, error)
	Clear(ctx context.Context, userIDs []uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) List(ctx context.Context, userIDs []uuid.UUID, limit int) ([]models.Notification, error) {
	var out []models.Notification
	q := scoped(r.db.WithContext(ctx), userIDs).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userIDs []uuid.UUID) (int64, error) {
	res := scoped(r.db.WithContext(ctx).Model(&models.Notification{}), userIDs).
		Where("is_read = ?", false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) Clear(ctx context.Context, userIDs []uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx)
	if userIDs == nil {
		// gorm refuses a DELETE without conditions.
		q = q.Where("1 = 1")
	}
	res := scoped(q, userIDs).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func scoped(db *gorm.DB, userIDs []uuid.UUID) *gorm.DB {
	if userIDs == nil {
		return db
	}
	return db.Where("user_id IN ? OR assigned_to IN ?", userIDs, userIDs)
}
