// cmd/process/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/orderplan/internal/api"
	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository/postgres"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/andresuchdata/orderplan/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "process",
		Usage:     "Compute an order workbook for a store from a local stock file",
		ArgsUsage: "<stock file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Usage: "Store name or id", Required: true},
			&cli.BoolFlag{Name: "global", Usage: "Use the latest global stock upload instead of a file"},
			&cli.StringSliceFlag{Name: "filter", Usage: "Filter expression, may be repeated"},
			&cli.StringFlag{Name: "seller-request", Usage: "File with seller requested products, one per line"},
			&cli.StringFlag{Name: "out", Usage: "Output directory", Value: "."},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("process failed")
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)

	if !strings.EqualFold(cfg.Database.Driver, "postgres") {
		return fmt.Errorf("offline processing needs DB_DRIVER=postgres, got %q", cfg.Database.Driver)
	}
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	backend, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	noop := cache.NewNoop()
	services := api.NewServices(postgres.NewSet(db), noop, noop, storage.NewArchive(backend, cfg.Storage.Prefix), cfg.Engine)

	store, err := resolveStore(c, services, c.String("store"))
	if err != nil {
		return err
	}

	req := service.ProcessRequest{
		StoreID:           store.ID,
		UseGlobalStock:    c.Bool("global"),
		FilterExpressions: c.StringSlice("filter"),
	}
	if !req.UseGlobalStock {
		path := c.Args().First()
		if path == "" {
			return fmt.Errorf("a stock file is required unless --global is set")
		}
		if req.File, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		req.Filename = filepath.Base(path)
	}
	if path := c.String("seller-request"); path != "" {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read seller request: %w", err)
		}
		req.SellerRequest = string(text)
	}

	result, err := services.Process.Process(c.Context, req)
	if err != nil {
		return err
	}

	outPath := filepath.Join(c.String("out"), result.Filename)
	if err := os.WriteFile(outPath, result.Workbook, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	logger.Log.Info().
		Str("store", store.Name).
		Str("order_id", result.Order.ID).
		Int("items", len(result.Order.Items)).
		Str("path", outPath).
		Msg("Order written")
	return nil
}

// resolveStore accepts either a store id or an exact store name.
func resolveStore(c *cli.Context, services *api.Services, ref string) (*domain.Store, error) {
	if store, err := services.Stores.GetStore(c.Context, ref); err == nil {
		return store, nil
	}
	stores, err := services.Stores.ListStores(c.Context)
	if err != nil {
		return nil, err
	}
	for i := range stores {
		if stores[i].Name == ref {
			return &stores[i], nil
		}
	}
	return nil, fmt.Errorf("store %q: %w", ref, domain.ErrNotFound)
}
