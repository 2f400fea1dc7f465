package main

import (
	"context"
	"fmt"
	"time"

	"order_manager/internal/config"
	"order_manager/internal/database"
	"order_manager/internal/logger"
	"order_manager/internal/migrations"
	"order_manager/internal/repository"
	"order_manager/internal/services"

	"go.uber.org/zap"
)

func main() {
	fmt.Println("Initializing database...")

	cfg := config.Load()
	log := logger.Initialize(cfg.AppEnv)
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	admin := migrations.Admin{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
	if err := migrations.RunMigrations(ctx, db, cfg.ChangeFeedChannel, admin, log); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	users, err := services.NewUserService(repository.NewUserRepository(db)).GetAllUsers(ctx)
	if err != nil {
		log.Fatal("Failed to list users", zap.Error(err))
	}

	fmt.Println("Database initialization completed successfully!")
	fmt.Printf("Users: %d\n", len(users))
	fmt.Printf("Change feed channel: %s\n", cfg.ChangeFeedChannel)
	fmt.Printf("Admin username: %s\n", cfg.AdminUsername)
}
