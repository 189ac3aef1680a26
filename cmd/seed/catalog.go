package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/orderplan/internal/api"
	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository/postgres"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/urfave/cli/v2"
)

// seedRow is one "name;a|b|c" line.
type seedRow struct {
	Name  string
	Items []string
}

// readSeedRows reads a semicolon separated file with a header row.
func readSeedRows(r io.Reader) ([]seedRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []seedRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		row := seedRow{Name: name}
		if len(record) > 1 {
			for _, item := range strings.Split(record[1], "|") {
				if item = strings.TrimSpace(item); item != "" {
					row.Items = append(row.Items, item)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readSeedFile(path string) ([]seedRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	return readSeedRows(file)
}

func servicesFrom(c *cli.Context, policy string) (*api.Services, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	engine := config.DefaultEngine()
	if policy != "" {
		engine.ConflictPolicy = policy
	}
	noop := cache.NewNoop()
	return api.NewServices(postgres.NewSet(db), noop, noop, storage.NewArchive(nil, ""), engine), nil
}

func seedStores(c *cli.Context) error {
	rows, err := readSeedFile(c.String("file"))
	if err != nil {
		return err
	}
	services, err := servicesFrom(c, "")
	if err != nil {
		return err
	}

	existing, err := services.Stores.ListStores(c.Context)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, st := range existing {
		known[st.Name] = true
	}

	created := 0
	for _, row := range rows {
		if known[row.Name] {
			log.Printf("Store %q already exists, skipping", row.Name)
			continue
		}
		if _, err := services.Stores.CreateStore(c.Context, service.StoreInput{Name: row.Name, Aliases: row.Items}); err != nil {
			return fmt.Errorf("failed to create store %q: %w", row.Name, err)
		}
		known[row.Name] = true
		created++
	}

	log.Printf("Successfully seeded stores (%d created)\n", created)
	return nil
}

func seedLimits(c *cli.Context) error {
	text, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read limits file: %w", err)
	}
	services, err := servicesFrom(c, "")
	if err != nil {
		return err
	}

	store, err := findStore(c, services, c.String("store"))
	if err != nil {
		return err
	}

	limits, err := services.Stores.AddLimits(c.Context, store.ID, service.AddLimitsInput{
		Text:       string(text),
		ApplyToAll: c.Bool("apply-to-all"),
	})
	var broadcastErr *domain.BroadcastError
	if errors.As(err, &broadcastErr) {
		log.Printf("Limits saved for %q but broadcast was partial: %v", store.Name, broadcastErr)
	} else if err != nil {
		return err
	}

	log.Printf("Store %q now has %d limits\n", store.Name, len(limits))
	return nil
}

func findStore(c *cli.Context, services *api.Services, name string) (*domain.Store, error) {
	stores, err := services.Stores.ListStores(c.Context)
	if err != nil {
		return nil, err
	}
	for i := range stores {
		if stores[i].Name == name {
			return &stores[i], nil
		}
	}
	return nil, fmt.Errorf("store %q: %w", name, domain.ErrNotFound)
}

func seedMappings(c *cli.Context) error {
	rows, err := readSeedFile(c.String("file"))
	if err != nil {
		return err
	}
	services, err := servicesFrom(c, c.String("policy"))
	if err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := services.Mappings.Create(c.Context, service.MappingInput{MainProduct: row.Name, Synonyms: row.Items}); err != nil {
			return fmt.Errorf("failed to create mapping %q: %w", row.Name, err)
		}
	}

	log.Printf("Successfully seeded product_mappings (%d records)\n", len(rows))
	return nil
}

func seedGlobalStock(c *cli.Context) error {
	path := c.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	stockDate, err := service.ParseStockDate(c.String("stock-date"), time.Now())
	if err != nil {
		return err
	}
	services, err := servicesFrom(c, "")
	if err != nil {
		return err
	}

	result, err := services.Stock.Upload(c.Context, filepath.Base(path), data, stockDate)
	if err != nil {
		return err
	}

	log.Printf("Uploaded global stock version %d: %d products, stores found %v, %d history entries\n",
		result.Version, result.ProductsCount, result.StoresFound, result.EntriesCreated)
	return nil
}
