package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/ingest"
	"github.com/andresuchdata/orderplan/internal/novelty"
	"github.com/andresuchdata/orderplan/internal/repository"
)

// NoveltyReport is the novelty list of one store.
type NoveltyReport struct {
	StoreName   string           `json:"store_name"`
	NewProducts []domain.Novelty `json:"new_products"`
	TotalCount  int              `json:"total_count"`
	Message     string           `json:"message,omitempty"`
}

type NoveltyService struct {
	stores        repository.StoreRepository
	limits        repository.LimitRepository
	blacklist     repository.BlacklistRepository
	stock         *StockService
	store         *StoreService
	detector      novelty.Detector
	catalogColumn string
}

func NewNoveltyService(repos *repository.Set, stock *StockService, store *StoreService, engine config.EngineConfig) *NoveltyService {
	return &NoveltyService{
		stores:        repos.Stores,
		limits:        repos.Limits,
		blacklist:     repos.Blacklist,
		stock:         stock,
		store:         store,
		detector:      novelty.Detector{MinQuantity: engine.CatalogMinStock},
		catalogColumn: engine.CatalogColumn,
	}
}

// List compares the catalog column of the latest global stock with the
// store's limits and blacklist.
func (s *NoveltyService) List(ctx context.Context, storeID string) (*NoveltyReport, error) {
	store, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	result := &NoveltyReport{StoreName: store.Name, NewProducts: []domain.Novelty{}}

	upload, err := s.stock.Latest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		result.Message = "no global stock uploaded"
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	column, ok := ingest.FindStoreColumn(upload.StoreColumns, s.catalogColumn)
	if !ok {
		result.Message = fmt.Sprintf("global stock has no %q column", s.catalogColumn)
		return result, nil
	}

	limits, err := s.limits.ListLimits(ctx, storeID)
	if err != nil {
		return nil, err
	}
	blacklist, err := s.blacklist.ListBlacklist(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if found := s.detector.Detect(upload.Column(column), limits, blacklist); found != nil {
		result.NewProducts = found
	}
	result.TotalCount = len(result.NewProducts)
	return result, nil
}

// Accept stores a limit for the product in this store only.
func (s *NoveltyService) Accept(ctx context.Context, storeID, product string, limit int) ([]domain.Limit, error) {
	return s.store.UpdateLimit(ctx, storeID, product, limit)
}

// Reject hides the product from this store's novelties.
func (s *NoveltyService) Reject(ctx context.Context, storeID, product string) error {
	product = strings.TrimSpace(product)
	if product == "" {
		return fmt.Errorf("%w: product is required", domain.ErrInvalidInput)
	}
	return s.blacklist.AddToBlacklist(ctx, storeID, product)
}

func (s *NoveltyService) Blacklist(ctx context.Context, storeID string) ([]domain.BlacklistEntry, error) {
	return s.blacklist.ListBlacklist(ctx, storeID)
}

func (s *NoveltyService) Unblacklist(ctx context.Context, storeID, product string) error {
	return s.blacklist.RemoveFromBlacklist(ctx, storeID, product)
}
