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
	"github.com/joho/godotenv"
	"github.com/stwalsh4118/orchard/internal/cache"
	"github.com/stwalsh4118/orchard/internal/config"
	"github.com/stwalsh4118/orchard/internal/database"
	"github.com/stwalsh4118/orchard/internal/handlers"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/middleware"
	"github.com/stwalsh4118/orchard/internal/repository"
	"github.com/stwalsh4118/orchard/internal/satellite"
	"github.com/stwalsh4118/orchard/internal/services"
	"github.com/stwalsh4118/orchard/internal/session"
	"github.com/stwalsh4118/orchard/internal/viewport"
)

const (
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 10 * time.Second
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env)
	log.Info("Starting Orchard API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStart()

	db, err := database.NewPostgresPool(startCtx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	if err := db.EnsureSchema(startCtx); err != nil {
		log.Fatal("Failed to prepare database schema", err, nil)
	}
	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	m := metrics.New()

	// Export cache: LRU always, Redis when enabled.
	var remote cache.Remote
	var cachePinger handlers.Pinger
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedis(startCtx, cfg.Redis.Addr,
			cache.WithPoolSize(cfg.Redis.PoolSize),
			cache.WithDialTimeout(startupTimeout/2),
		)
		if err != nil {
			log.Fatal("Failed to connect to redis", err, map[string]interface{}{
				"addr": cfg.Redis.Addr,
			})
		}
		defer func() { _ = rdb.Close() }()
		remote, cachePinger = rdb, rdb
		log.Info("Export cache backed by redis", map[string]interface{}{
			"addr": cfg.Redis.Addr,
			"ttl":  cfg.Redis.TTL.String(),
		})
	}
	exportCache, err := cache.NewExportCache(cfg.Export.CacheEntries, remote, cfg.Redis.TTL, log)
	if err != nil {
		log.Fatal("Failed to create export cache", err, nil)
	}

	// Satellite refresh: Kafka when enabled, log only otherwise.
	var publisher satellite.Publisher = satellite.LogPublisher{Log: log}
	if cfg.Kafka.Enabled {
		kafka, err := satellite.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.RefreshTopic)
		if err != nil {
			log.Fatal("Failed to connect to kafka", err, map[string]interface{}{
				"brokers": cfg.Kafka.Brokers,
			})
		}
		publisher = kafka
	}
	refresh := satellite.NewScheduler(cfg.Editor.RefreshDelay, publisher, log, m)

	parcelRepo := repository.NewParcelRepository(db)
	parcelService := services.NewParcelService(parcelRepo, log)
	exportService := services.NewExportService(parcelService, exportCache, m, log, cfg.Export.PreviewDPI)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware order: RequestID -> Logger -> Recovery -> Metrics -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/health/ready", "/metrics"))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	healthHandler := handlers.NewHealthHandler(db, cachePinger, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/api/v1/info", healthHandler.Info)

	sessionCtx, endSessions := context.WithCancel(context.Background())
	defer endSessions()

	parcelHandler := handlers.NewParcelHandler(parcelService, exportService)
	editHandler := handlers.NewEditHandler(sessionCtx, parcelHandler, session.Deps{
		Parcels: parcelService,
		Refresh: refresh,
		Metrics: m,
		Log:     log,
	}, session.Options{
		Viewport: viewport.Options{
			Padding: cfg.Editor.FitPadding,
			MaxZoom: cfg.Editor.MaxZoom,
			Epsilon: cfg.Editor.BoundsEpsilon,
		},
		FrameInterval: cfg.Editor.FrameInterval,
	}, cfg.CORS.Origins)

	v1 := router.Group("/api/v1")
	{
		parcels := v1.Group("/parcels")
		{
			parcels.POST("", parcelHandler.Create)
			parcels.GET("", parcelHandler.List)
			parcels.GET("/:id", parcelHandler.Get)
			parcels.PUT("/:id", parcelHandler.Update)
			parcels.DELETE("/:id", parcelHandler.Delete)
			parcels.POST("/:id/contains", parcelHandler.Contains)
			parcels.GET("/:id/export.pdf", parcelHandler.ExportPDF)
			parcels.GET("/:id/preview.png", parcelHandler.Preview)
			parcels.GET("/:id/edit", editHandler.Edit)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	// Websocket connections are hijacked and not covered by Shutdown. End
	// the sessions, let them write their queued edits, then stop the
	// refresh scheduler they feed.
	endSessions()
	editHandler.Wait()
	refresh.Close()
	if err := publisher.Close(); err != nil {
		log.Error("Failed to close satellite publisher", err, nil)
	}

	log.Info("Server exited", nil)
}
