package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/ingest"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const historyWorkers = 4

// UploadResult summarizes a global stock upload.
type UploadResult struct {
	ID             string    `json:"id"`
	Version        int64     `json:"version"`
	StockDate      time.Time `json:"stock_date"`
	ProductsCount  int       `json:"products_count"`
	StoreColumns   []string  `json:"store_columns"`
	StoresFound    []string  `json:"stores_found"`
	EntriesCreated int       `json:"entries_created"`
}

type StockService struct {
	repo         repository.GlobalStockRepository
	stores       repository.StoreRepository
	mappings     *MappingService
	recorder     *history.Recorder
	cache        cache.GlobalStockCache
	historyCache cache.HistoryCache
	archive      *storage.Archive
	now          func() time.Time
}

func NewStockService(
	repo repository.GlobalStockRepository,
	stores repository.StoreRepository,
	mappings *MappingService,
	recorder *history.Recorder,
	stockCache cache.GlobalStockCache,
	historyCache cache.HistoryCache,
	archive *storage.Archive,
) *StockService {
	if stockCache == nil {
		stockCache = cache.NewNoop()
	}
	if historyCache == nil {
		historyCache = cache.NewNoop()
	}
	return &StockService{
		repo:         repo,
		stores:       stores,
		mappings:     mappings,
		recorder:     recorder,
		cache:        stockCache,
		historyCache: historyCache,
		archive:      archive,
		now:          time.Now,
	}
}

// ParseStockDate accepts YYYY-MM-DD or RFC 3339. An empty value means now.
func ParseStockDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: stock_date %q is not a date", domain.ErrInvalidInput, raw)
}

// Upload parses a global stock matrix, makes it the latest snapshot and
// records a history point at stockDate for every store whose name or alias
// heads a column. A parse failure writes nothing.
func (s *StockService) Upload(ctx context.Context, filename string, data []byte, stockDate time.Time) (*UploadResult, error) {
	matrix, err := ingest.ParseGlobalFile(filename, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if stockDate.IsZero() {
		stockDate = s.now().UTC()
	}

	upload := &domain.GlobalStockUpload{
		StockDate:    stockDate,
		StoreColumns: matrix.StoreColumns,
		Data:         matrix.Data,
	}
	if err := s.repo.SaveGlobalStock(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to save global stock: %w", err)
	}
	if err := s.cache.SetLatest(ctx, upload); err != nil {
		log.Warn().Err(err).Msg("global stock: cache set latest failed")
	}
	if _, err := s.archive.SaveGlobalStock(ctx, upload.ID, filename, data); err != nil {
		log.Warn().Err(err).Str("upload_id", upload.ID).Msg("global stock: archive failed")
	}

	found, entries, err := s.recordHistory(ctx, upload)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("upload_id", upload.ID).
		Int("products", len(upload.Data)).
		Strs("stores_found", found).
		Int("entries", entries).
		Msg("global stock uploaded")

	return &UploadResult{
		ID:             upload.ID,
		Version:        upload.Version,
		StockDate:      upload.StockDate,
		ProductsCount:  len(upload.Data),
		StoreColumns:   upload.StoreColumns,
		StoresFound:    found,
		EntriesCreated: entries,
	}, nil
}

// recordHistory writes the column of every matching store concurrently.
func (s *StockService) recordHistory(ctx context.Context, upload *domain.GlobalStockUpload) ([]string, int, error) {
	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		return nil, 0, err
	}
	resolver, err := s.mappings.Resolver(ctx)
	if err != nil {
		return nil, 0, err
	}

	var (
		mu      sync.Mutex
		found   = make([]string, 0)
		entries int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyWorkers)
	for _, st := range stores {
		column, ok := ingest.FindStoreColumn(upload.StoreColumns, append([]string{st.Name}, st.Aliases...)...)
		if !ok {
			continue
		}
		found = append(found, column)

		g.Go(func() error {
			batch := history.BeginAt(st.ID, upload.StockDate)
			batch.ObserveStock(resolver.Resolve(upload.Column(column)))
			if err := s.recorder.Commit(gctx, batch); err != nil {
				return fmt.Errorf("store %q: %w", st.Name, err)
			}
			if err := s.historyCache.InvalidateStore(gctx, st.ID); err != nil {
				log.Warn().Err(err).Str("store_id", st.ID).Msg("global stock: cache invalidate failed")
			}
			mu.Lock()
			entries += len(batch.Points())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return found, entries, nil
}

// Latest returns the newest upload, served from cache when possible.
func (s *StockService) Latest(ctx context.Context) (*domain.GlobalStockUpload, error) {
	if upload, ok, err := s.cache.GetLatest(ctx); err == nil && ok {
		return upload, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("global stock: cache get latest failed")
	}

	upload, err := s.repo.LatestGlobalStock(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetLatest(ctx, upload); err != nil {
		log.Warn().Err(err).Msg("global stock: cache set latest failed")
	}
	return upload, nil
}

func (s *StockService) History(ctx context.Context) ([]domain.GlobalStockInfo, error) {
	return s.repo.ListGlobalStock(ctx)
}

func (s *StockService) Get(ctx context.Context, id string) (*domain.GlobalStockUpload, error) {
	return s.repo.GetGlobalStock(ctx, id)
}
