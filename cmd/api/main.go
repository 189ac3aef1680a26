// cmd/api/main.go runs the Google Drive import sidecar.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/drive"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/repository/postgres"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/andresuchdata/orderplan/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)
	ctx := context.Background()

	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	repos := postgres.NewSet(db)

	stockCache, historyCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	backend, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	mappings := service.NewMappingService(repos.Mappings, cfg.Engine.ConflictPolicy)
	stock := service.NewStockService(
		repos.GlobalStock,
		repos.Stores,
		mappings,
		history.NewRecorder(repos.History),
		stockCache,
		historyCache,
		storage.NewArchive(backend, cfg.Storage.Prefix),
	)

	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, drive.NewImporter(driveService, stock), cfg.Drive.FolderID)
	driveHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	logger.Log.Info().Str("addr", addr).Msg("Drive sidecar starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatal().Err(err).Msg("Drive sidecar stopped")
	}
}
