package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/app"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/database"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/migrations"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 0. Load config & initialize logger
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Info().Str("environment", cfg.Env).Str("store", cfg.StoreDriver).Msg("Starting Sociofy messaging server...")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Connect databases
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("🔄 Running database migrations...")
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}
	if err := migrations.NewMigrator(db).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Info().Msg("✅ Database migrations complete")

	// 2. Wire the messaging core
	rdb := database.NewRedis(ctx, cfg)
	a := app.New(cfg, db, messageStore(ctx, cfg, db), rdb)
	go a.Run(ctx)

	// 3. Start server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("🛑 Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close Redis client")
	}

	logger.Info().Msg("✅ Server exited gracefully")
}

// messageStore picks the durable message record for cfg.StoreDriver.
func messageStore(ctx context.Context, cfg *config.Config, db *gorm.DB) store.MessageStore {
	if cfg.StoreDriver != "mongo" {
		return store.NewGormMessageStore(db)
	}
	mdb, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	s := store.NewMongoMessageStore(mdb)
	if err := s.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create message indexes")
	}
	return s
}
