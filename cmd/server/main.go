package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/api"
	"github.com/shivamkjha23-afk/ATR2026/internal/config"
	"github.com/shivamkjha23-afk/ATR2026/internal/core"
	"github.com/shivamkjha23-afk/ATR2026/internal/db"
	"github.com/shivamkjha23-afk/ATR2026/internal/images"
	"github.com/shivamkjha23-afk/ATR2026/internal/middleware"
	atrsync "github.com/shivamkjha23-afk/ATR2026/internal/sync"
)

func main() {
	// In production the environment is set directly; .env is a dev nicety.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file loaded:", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	cache, err := core.NewCache(cfg.CacheDir)
	if err != nil {
		logger.Fatal("failed to initialize local cache", zap.Error(err))
	}

	bus := core.NewBus()
	store, err := core.NewStore(cache, bus, logger)
	if err != nil {
		logger.Fatal("failed to initialize runtime database", zap.Error(err))
	}

	// Cloud replication. Failure to reach the cloud at startup is fatal only
	// for missing credentials; transient errors degrade to local-only and
	// are retried by the poll loop.
	var (
		engine     *atrsync.Engine
		authClient *auth.Client
	)
	if cfg.SyncEnabled {
		initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
		clients, err := db.InitFirebase(initCtx, cfg)
		cancelInit()
		if err != nil {
			logger.Fatal("failed to initialize Firebase Admin SDK", zap.Error(err))
		}
		defer clients.Close()
		authClient = clients.Auth

		remote, err := db.NewFirestoreChunkStore(clients.Firestore, cfg.SyncDocID, cfg.SyncMaxBatchOps)
		if err != nil {
			logger.Fatal("failed to initialize remote store", zap.Error(err))
		}
		engine, err = atrsync.New(store, remote, cfg.SyncChunkBudget, cfg.SyncPollInterval, logger)
		if err != nil {
			logger.Fatal("failed to initialize replication engine", zap.Error(err))
		}
		engine.Start(context.Background())
		defer engine.Stop()
		logger.Info("cloud replication started",
			zap.String("doc_id", cfg.SyncDocID),
			zap.Duration("poll_interval", cfg.SyncPollInterval))
	} else {
		store.ReportSync(false, "cloud sync is disabled; running local-only")
	}

	uploader := images.NewUploader(store, cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, logger)

	if strings.ToLower(cfg.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.ClientURL))

	var syncer api.Syncer
	if engine != nil {
		syncer = engine
	}
	api.SetupRoutes(router, logger, store, uploader, syncer, authClient, cfg.ClientURL)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("addr", httpServer.Addr), zap.String("gin_mode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}
