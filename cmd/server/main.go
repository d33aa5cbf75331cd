package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/internal/api/handlers"
	"github.com/knaveofdiamonds/tablefit/internal/cache"
	"github.com/knaveofdiamonds/tablefit/internal/websocket"
	"github.com/knaveofdiamonds/tablefit/pkg/config"
	"github.com/knaveofdiamonds/tablefit/pkg/database"
	"github.com/knaveofdiamonds/tablefit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	structuredLogger := logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("tablefit")
	log.WithFields(logrus.Fields{"environment": cfg.Env, "port": cfg.Port}).Info("starting tablefit")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	scheduleCache := cache.New(redisClient, log)
	catalogRepo := database.NewCatalogRepository(db)
	scheduleRunRepo := database.NewScheduleRunRepository(db)

	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	scheduleHandler := handlers.NewScheduleHandler(scheduleCache, wsHub, catalogRepo, scheduleRunRepo, handlers.ScheduleConfig{
		SolverMaxNodes:    cfg.SolverMaxNodes,
		SolverTimeout:     cfg.SolverTimeout,
		DefaultTableLimit: cfg.DefaultTableLimit,
		CacheTTL:          cfg.ScheduleCacheTTL,
	}, structuredLogger.WithField("component", "schedule_handler"))
	healthHandler := handlers.NewHealthHandler(db, redisClient, structuredLogger.WithField("component", "health_handler"))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/schedule", scheduleHandler.PostSchedule)
		apiV1.GET("/schedule/cache-status", scheduleHandler.GetCacheStatus)
	}

	router.GET("/ws/schedule-progress/:run_id", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", healthHandler.GetMetrics)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("tablefit listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down tablefit...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Info("tablefit exited")
}
