package repository

import (
	"context"

	"order_manager/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateBatch(ctx context.Context, orders []models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Find(ctx context.Context, filter clause.Expression) ([]models.Order, error)
	Count(ctx context.Context, filter clause.Expression) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) CreateBatch(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(orders, 100).Error
}

// GetByID loads one order with its owner and assignee.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Assignee").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Find returns the orders matching filter, newest first. A nil filter matches everything.
func (r *orderRepository) Find(ctx context.Context, filter clause.Expression) ([]models.Order, error) {
	var orders []models.Order
	err := where(r.db.WithContext(ctx), filter).
		Preload("Owner").
		Preload("Assignee").
		Order("so_date DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Count(ctx context.Context, filter clause.Expression) (int64, error) {
	var total int64
	err := where(r.db.WithContext(ctx).Model(&models.Order{}), filter).Count(&total).Error
	return total, err
}

// UpdateFields writes the given columns in one statement.
func (r *orderRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func where(db *gorm.DB, filter clause.Expression) *gorm.DB {
	if filter == nil {
		return db
	}
	return db.Clauses(clause.Where{Exprs: []clause.Expression{filter}})
}
