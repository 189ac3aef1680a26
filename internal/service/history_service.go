package service

import (
	"context"
	"strings"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/rs/zerolog/log"
)

type HistoryService struct {
	stores   repository.StoreRepository
	recorder *history.Recorder
	cache    cache.HistoryCache
}

func NewHistoryService(stores repository.StoreRepository, recorder *history.Recorder, historyCache cache.HistoryCache) *HistoryService {
	if historyCache == nil {
		historyCache = cache.NewNoop()
	}
	return &HistoryService{stores: stores, recorder: recorder, cache: historyCache}
}

// Summary lists the latest stock, order and change of every product the
// store observed within period.
func (s *HistoryService) Summary(ctx context.Context, storeID, rawPeriod string) ([]domain.ProductSummary, error) {
	period, err := domain.ParsePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}
	if _, err := s.stores.GetStore(ctx, storeID); err != nil {
		return nil, err
	}

	if summary, ok, err := s.cache.GetSummary(ctx, storeID, period); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("history: cache get summary failed")
	}

	summary, err := s.recorder.Summary(ctx, storeID, period)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSummary(ctx, storeID, period, summary); err != nil {
		log.Warn().Err(err).Msg("history: cache set summary failed")
	}
	return summary, nil
}

// Series returns the chart points of one product.
func (s *HistoryService) Series(ctx context.Context, storeID, product, rawPeriod string) (*domain.ProductSeries, error) {
	period, err := domain.ParsePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}
	if _, err := s.stores.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.recorder.Series(ctx, storeID, strings.TrimSpace(product), period)
}
