package migrations

import (
	"context"
	"errors"
	"fmt"

	"order_manager/internal/changefeed"
	"order_manager/internal/database"
	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Admin is the account seeded on an empty database.
type Admin struct {
	Username string
	Email    string
	Password string
}

// RunMigrations creates the tables, installs the orders change trigger and
// seeds the first SuperAdmin.
func RunMigrations(ctx context.Context, db *gorm.DB, feedChannel string, admin Admin, log *zap.Logger) error {
	log.Info("Running database migrations")

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	if err := InstallChangeTrigger(ctx, db, feedChannel); err != nil {
		return err
	}

	if err := createDefaultData(ctx, db, admin, log); err != nil {
		log.Warn("Failed to create default data", zap.Error(err))
	}

	log.Info("Database migrations completed")
	return nil
}

// InstallChangeTrigger makes the orders table publish its changes on channel.
func InstallChangeTrigger(ctx context.Context, db *gorm.DB, channel string) error {
	for _, stmt := range changefeed.TriggerStatements(channel) {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func createDefaultData(ctx context.Context, db *gorm.DB, admin Admin, log *zap.Logger) error {
	return SeedAdmin(ctx, services.NewUserService(repository.NewUserRepository(db)), admin, log)
}

// SeedAdmin creates the SuperAdmin when it is missing and checks that the
// configured password opens the account. A stale password on an existing
// account is only logged.
func SeedAdmin(ctx context.Context, users services.UserService, admin Admin, log *zap.Logger) error {
	existing, err := users.GetUserByUsername(ctx, admin.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if existing == nil {
		superAdmin := &models.User{
			Username: admin.Username,
			Email:    admin.Email,
			Role:     models.RoleSuperAdmin,
			IsActive: true,
		}
		if err := users.CreateUser(ctx, superAdmin, admin.Password); err != nil {
			return err
		}
		log.Info("Super admin user created", zap.String("username", admin.Username))
	} else {
		log.Info("Super admin user already exists", zap.String("username", admin.Username))
	}

	_, err = users.VerifyPassword(ctx, admin.Username, admin.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials) && existing != nil:
		log.Warn("Configured admin password does not match the stored account", zap.String("username", admin.Username))
		return nil
	case err != nil:
		return fmt.Errorf("failed to verify super admin credentials: %w", err)
	}
	return nil
}
