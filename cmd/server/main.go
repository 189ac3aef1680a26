// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andresuchdata/orderplan/internal/api"
	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/repository/memory"
	"github.com/andresuchdata/orderplan/internal/repository/postgres"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/andresuchdata/orderplan/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}

	ctx := context.Background()

	repos, closeRepos, err := openRepositories(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open repositories")
	}
	defer closeRepos()

	stockCache, historyCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize cache")
	}

	archive, err := openArchive(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize object storage")
	}

	services := api.NewServices(repos, stockCache, historyCache, archive, cfg.Engine)
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	if cfg.Server.MaxUploadMB > 0 {
		router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("db_driver", cfg.Database.Driver).
			Bool("cache", cfg.Cache.Enabled).
			Bool("archive", archive.Enabled()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// openRepositories selects the repository driver. Postgres applies the
// embedded schema on start.
func openRepositories(ctx context.Context, cfg *config.DatabaseConfig) (*repository.Set, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		logger.Log.Warn().Msg("Using in-memory repositories, data is lost on restart")
		return memory.NewSet(), func() {}, nil
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewSet(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openArchive(ctx context.Context, cfg config.StorageConfig) (*storage.Archive, error) {
	backend, err := storage.New(cfg)
	if err != nil {
		return nil, err
	}
	if mc, ok := backend.(*storage.MinioClient); ok {
		if err := mc.EnsureBucket(ctx, cfg.Region); err != nil {
			return nil, err
		}
	}
	return storage.NewArchive(backend, cfg.Prefix), nil
}
