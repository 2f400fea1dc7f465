package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order_manager/internal/changefeed"
	"order_manager/internal/config"
	"order_manager/internal/database"
	"order_manager/internal/handlers"
	"order_manager/internal/kafka"
	"order_manager/internal/logger"
	"order_manager/internal/migrations"
	"order_manager/internal/realtime"
	"order_manager/internal/redis"
	"order_manager/internal/repository"
	"order_manager/internal/services"
	"order_manager/pkg/mailer"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.Initialize(cfg.AppEnv)
	defer log.Sync()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	admin := migrations.Admin{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
	if err := migrations.RunMigrations(ctx, db, cfg.ChangeFeedChannel, admin, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal("Failed to create upload directory", zap.String("dir", cfg.UploadDir), zap.Error(err))
	}

	hub := realtime.NewHub(log)
	var emitter realtime.Emitter = hub
	var sequence services.Sequence

	if cfg.RedisEnabled() {
		redisClient, err := redis.Initialize(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		relay := realtime.NewRedisRelay(redisClient, cfg.RealtimeChannel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("realtime relay stopped", zap.Error(err))
			}
		}()
		emitter = relay
		sequence = redisClient
	} else {
		log.Warn("REDIS_URL not set; realtime events stay on this instance and order ids use timestamps")
	}

	var sink services.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer producer.Close()
		sink = producer
	}

	var mail services.Mailer
	if cfg.EmailEnabled() {
		mail = mailer.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	}

	// Repositories
	store := repository.NewStore(db)

	// Services
	userService := services.NewUserService(store.Users())
	scoper := services.NewScoper(store.Users())
	orderIDs := services.NewOrderIDGenerator(sequence, cfg.OrderIDPrefix, log)
	fanout := services.NewFanout(emitter, sink, log)
	orderService := services.NewOrderService(store, scoper, orderIDs, services.NewEmailService(mail), fanout, log)
	bulkService := services.NewBulkService(store, scoper, orderIDs, fanout, log)
	notificationService := services.NewNotificationService(store.Notifications(), scoper)

	watcher := services.NewChangeWatcher(
		changefeed.NewListener(cfg.DatabaseURL, cfg.ChangeFeedChannel, log),
		store.Orders(),
		fanout,
		time.Duration(cfg.ChangeFeedRetrySeconds)*time.Second,
		log,
	)
	go watcher.Run(ctx)

	// Handlers
	apiHandler := handlers.NewAPIHandler(sqlDB)
	orderHandler := handlers.NewOrderHandler(orderService, cfg.UploadDir, cfg.MaxUploadMB)
	bulkHandler := handlers.NewBulkHandler(bulkService, cfg.MaxUploadMB)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, userService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", apiHandler.Health)
	router.Static("/uploads", cfg.UploadDir)

	rt := router.Group("/api/realtime")
	{
		rt.GET("/events", realtimeHandler.Events)
		rt.POST("/join", realtimeHandler.Join)
	}

	api := router.Group("/api")
	api.Use(handlers.ActorMiddleware(userService))
	{
		api.POST("/orders", orderHandler.CreateOrder)
		api.GET("/orders", orderHandler.ListOrders)
		api.POST("/orders/import", bulkHandler.Import)
		api.GET("/orders/export", bulkHandler.Export)
		api.GET("/orders/workflow", apiHandler.Queues)
		api.GET("/orders/workflow/:queue", orderHandler.WorkflowOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
		api.PUT("/orders/:id", orderHandler.EditOrder)
		api.DELETE("/orders/:id", orderHandler.DeleteOrder)

		api.GET("/dashboard/counts", orderHandler.DashboardCounts)

		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/mark-read", notificationHandler.MarkRead)
		api.DELETE("/notifications", notificationHandler.Clear)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
