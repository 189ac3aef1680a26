package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/ingest"
	"github.com/andresuchdata/orderplan/internal/order"
	"github.com/andresuchdata/orderplan/internal/report"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/rs/zerolog/log"
)

// StockRow is one pasted or JSON supplied stock line.
type StockRow struct {
	Product string  `json:"product"`
	Stock   float64 `json:"stock"`
}

// ProcessRequest describes one order computation. Exactly one stock
// source is used: File, UseGlobalStock, or Rows/Text.
type ProcessRequest struct {
	StoreID           string
	Filename          string
	File              []byte
	Rows              []StockRow
	Text              string
	UseGlobalStock    bool
	FilterExpressions []string
	FilterIDs         []string
	SellerRequest     string
}

// ProcessResult is a persisted order and its rendered workbook.
type ProcessResult struct {
	Order    *domain.Order
	Workbook []byte
	Filename string
}

type ProcessService struct {
	stores       repository.StoreRepository
	limits       repository.LimitRepository
	orders       repository.OrderRepository
	mappings     *MappingService
	filters      *FilterService
	stock        *StockService
	recorder     *history.Recorder
	historyCache cache.HistoryCache
	builder      *report.Builder
	archive      *storage.Archive
	calc         order.Calculator
	engine       config.EngineConfig
}

func NewProcessService(
	repos *repository.Set,
	mappings *MappingService,
	filters *FilterService,
	stock *StockService,
	recorder *history.Recorder,
	historyCache cache.HistoryCache,
	archive *storage.Archive,
	engine config.EngineConfig,
) *ProcessService {
	if historyCache == nil {
		historyCache = cache.NewNoop()
	}
	return &ProcessService{
		stores:       repos.Stores,
		limits:       repos.Limits,
		orders:       repos.Orders,
		mappings:     mappings,
		filters:      filters,
		stock:        stock,
		recorder:     recorder,
		historyCache: historyCache,
		builder:      report.NewBuilder(engine.OrderSheetName, engine.OrderColumnLabel),
		archive:      archive,
		calc:         order.Calculator{Fuzzy: engine.FuzzyMatch},
		engine:       engine,
	}
}

// Process runs ingestion, synonym resolution, calculation, filtering and
// rendering for one store, then stores the order and its history. Nothing
// is written when filters or ingestion fail. Ingested stock is recorded
// even when no order comes out of it.
func (s *ProcessService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	store, err := s.stores.GetStore(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	filters, err := s.filters.Compile(ctx, req.FilterExpressions, req.FilterIDs)
	if err != nil {
		return nil, err
	}

	source, stock, catalog, err := s.loadStock(ctx, store, req)
	if err != nil {
		return nil, err
	}

	resolver, err := s.mappings.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	if stock != nil {
		stock = resolver.Resolve(stock)
	}

	limits, err := s.limits.ListLimits(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	// a store missing from the global upload has no stock to compare with
	var rows []domain.OrderRow
	if stock != nil {
		rows = s.calc.Calculate(limits, stock)
	}
	if catalog != nil {
		before := len(rows)
		rows = s.calc.Available(rows, resolver.Resolve(catalog), s.engine.WarehouseReserve)
		if removed := before - len(rows); removed > 0 {
			log.Info().Int("removed", removed).Str("catalog", s.engine.CatalogColumn).Msg("process: products unavailable in warehouse")
		}
	}
	rows = order.DropZero(rows)
	rows = filters.Apply(rows)

	seller := order.SellerLines(req.SellerRequest)
	if len(rows) == 0 && len(seller) == 0 {
		batch := s.recorder.Begin(store.ID)
		batch.ObserveStock(stock)
		if err := s.recorder.Commit(ctx, batch); err != nil {
			return nil, err
		}
		s.invalidateHistory(ctx, store.ID)
		return nil, fmt.Errorf("%w: nothing to order for %q", domain.ErrEmptyInput, store.Name)
	}

	items := order.Items(rows, seller)
	workbook, err := s.builder.Build(store.Name, items)
	if err != nil {
		return nil, fmt.Errorf("failed to render order: %w", err)
	}

	o := &domain.Order{
		StoreID:       store.ID,
		StoreName:     store.Name,
		Source:        source,
		SellerRequest: strings.TrimSpace(req.SellerRequest),
		Items:         items,
	}
	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	batch := history.BeginAt(store.ID, o.CreatedAt)
	batch.ObserveStock(stock)
	batch.ObserveOrders(rows)
	if err := s.recorder.Commit(ctx, batch); err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx, store.ID)
	if _, err := s.archive.SaveOrder(ctx, store.ID, o.ID, workbook); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("process: archive failed")
	}

	log.Info().
		Str("store_id", store.ID).
		Str("order_id", o.ID).
		Str("source", source).
		Int("rows", len(rows)).
		Int("seller_lines", len(seller)).
		Msg("order created")

	return &ProcessResult{Order: o, Workbook: workbook, Filename: report.Filename(store.Name)}, nil
}

func (s *ProcessService) invalidateHistory(ctx context.Context, storeID string) {
	if err := s.historyCache.InvalidateStore(ctx, storeID); err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Msg("process: cache invalidate failed")
	}
}

// loadStock returns the order source, the raw stock of the store and, for
// global processing, the warehouse catalog column when present. Stock is nil
// when the global upload has no column for the store.
func (s *ProcessService) loadStock(ctx context.Context, store *domain.Store, req ProcessRequest) (string, domain.StockMap, domain.StockMap, error) {
	switch {
	case req.File != nil:
		stock, err := ingest.ParseStoreFile(req.Filename, bytes.NewReader(req.File))
		return domain.SourceFile, stock, nil, err

	case req.UseGlobalStock:
		upload, err := s.stock.Latest(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, nil, fmt.Errorf("%w: no global stock uploaded", domain.ErrEmptyInput)
		}
		if err != nil {
			return "", nil, nil, err
		}
		var stock domain.StockMap
		if column, ok := ingest.FindStoreColumn(upload.StoreColumns, append([]string{store.Name}, store.Aliases...)...); ok {
			stock = upload.Column(column)
		} else {
			log.Warn().Str("store", store.Name).Msg("process: store has no column in global stock, skipping calculation")
		}
		var catalog domain.StockMap
		if column, ok := ingest.FindStoreColumn(upload.StoreColumns, s.engine.CatalogColumn); ok {
			catalog = upload.Column(column)
		}
		return domain.SourceGlobal, stock, catalog, nil

	case len(req.Rows) > 0:
		stock := rowsToStock(req.Rows)
		if len(stock) == 0 {
			return "", nil, nil, fmt.Errorf("stock rows: %w", domain.ErrEmptyInput)
		}
		return domain.SourceText, stock, nil, nil

	default:
		stock, err := ingest.ParseText(req.Text)
		return domain.SourceText, stock, nil, err
	}
}

// rowsToStock sums repeated products and clamps negative stock to 0.
func rowsToStock(rows []StockRow) domain.StockMap {
	stock := make(domain.StockMap, len(rows))
	for _, r := range rows {
		product := strings.TrimSpace(r.Product)
		if product == "" {
			continue
		}
		qty := r.Stock
		if qty < 0 || qty != qty {
			qty = 0
		}
		stock[product] += qty
	}
	return stock
}
