package service

import (
	"context"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/report"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/rs/zerolog/log"
)

type OrderService struct {
	orders  repository.OrderRepository
	stores  repository.StoreRepository
	builder *report.Builder
	archive *storage.Archive
}

func NewOrderService(orders repository.OrderRepository, stores repository.StoreRepository, archive *storage.Archive, engine config.EngineConfig) *OrderService {
	return &OrderService{
		orders:  orders,
		stores:  stores,
		builder: report.NewBuilder(engine.OrderSheetName, engine.OrderColumnLabel),
		archive: archive,
	}
}

// List returns the store's orders, newest first.
func (s *OrderService) List(ctx context.Context, storeID string) ([]domain.OrderSummary, error) {
	return s.orders.ListOrders(ctx, storeID)
}

func (s *OrderService) Get(ctx context.Context, storeID, orderID string) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, storeID, orderID)
}

// Download returns the archived workbook of an order, or renders it again
// from the stored items under the store's current name.
func (s *OrderService) Download(ctx context.Context, storeID, orderID string) ([]byte, string, error) {
	o, err := s.orders.GetOrder(ctx, storeID, orderID)
	if err != nil {
		return nil, "", err
	}

	name := o.StoreName
	if store, err := s.stores.GetStore(ctx, storeID); err == nil {
		name = store.Name
	}

	if name == o.StoreName {
		data, ok, err := s.archive.LoadOrder(ctx, storeID, orderID)
		if err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("orders: archived workbook unavailable")
		} else if ok {
			return data, report.Filename(name), nil
		}
	}

	data, err := s.builder.Build(name, o.Items)
	if err != nil {
		return nil, "", err
	}
	return data, report.Filename(name), nil
}
