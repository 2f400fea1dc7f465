package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories so that a service can run several writes in
// one database transaction.
type Store interface {
	Orders() OrderRepository
	Notifications() NotificationRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db            *gorm.DB
	orders        OrderRepository
	notifications NotificationRepository
	users         UserRepository
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:            db,
		orders:        NewOrderRepository(db),
		notifications: NewNotificationRepository(db),
		users:         NewUserRepository(db),
	}
}

func (s *gormStore) Orders() OrderRepository               { return s.orders }
func (s *gormStore) Notifications() NotificationRepository { return s.notifications }
func (s *gormStore) Users() UserRepository                 { return s.users }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
