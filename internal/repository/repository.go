// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
)

// StoreRepository persists stores. DeleteStore cascades to limits, orders,
// history and blacklist.
type StoreRepository interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id string) (*domain.Store, error)
	CreateStore(ctx context.Context, store *domain.Store, copyFromID string) error
	UpdateStore(ctx context.Context, store *domain.Store) error
	DeleteStore(ctx context.Context, id string) error
}

// LimitRepository persists per-store limits in insertion order.
type LimitRepository interface {
	ListLimits(ctx context.Context, storeID string) ([]domain.Limit, error)
	UpsertLimits(ctx context.Context, storeID string, limits []domain.LimitInput) error
	InsertLimitIfAbsent(ctx context.Context, storeID string, limit domain.LimitInput) (bool, error)
	// RenameLimit also moves the product's history points and blacklist
	// entry of that store to the new name.
	RenameLimit(ctx context.Context, storeID, oldName, newName string) error
	DeleteLimit(ctx context.Context, storeID, product string) error
}

type MappingRepository interface {
	ListMappings(ctx context.Context) ([]domain.ProductMapping, error)
	GetMapping(ctx context.Context, id string) (*domain.ProductMapping, error)
	CreateMapping(ctx context.Context, mapping *domain.ProductMapping) error
	UpdateMapping(ctx context.Context, mapping *domain.ProductMapping) error
	DeleteMapping(ctx context.Context, id string) error
}

type FilterRepository interface {
	ListFilters(ctx context.Context) ([]domain.FilterExpression, error)
	GetFilter(ctx context.Context, id string) (*domain.FilterExpression, error)
	CreateFilter(ctx context.Context, filter *domain.FilterExpression) error
	DeleteFilter(ctx context.Context, id string) error
}

// OrderRepository is append-only.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	ListOrders(ctx context.Context, storeID string) ([]domain.OrderSummary, error)
	GetOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error)
}

type BlacklistRepository interface {
	ListBlacklist(ctx context.Context, storeID string) ([]domain.BlacklistEntry, error)
	AddToBlacklist(ctx context.Context, storeID, product string) error
	RemoveFromBlacklist(ctx context.Context, storeID, product string) error
}

// HistoryRepository is append-only. ListHistory returns points recorded at
// or after since in ascending order; an empty product selects every
// product of the store.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, points []domain.HistoryPoint) error
	ListHistory(ctx context.Context, storeID, product string, since time.Time) ([]domain.HistoryPoint, error)
}

// GlobalStockRepository keeps every upload; the one with the highest
// version is the latest.
type GlobalStockRepository interface {
	SaveGlobalStock(ctx context.Context, upload *domain.GlobalStockUpload) error
	LatestGlobalStock(ctx context.Context) (*domain.GlobalStockUpload, error)
	GetGlobalStock(ctx context.Context, id string) (*domain.GlobalStockUpload, error)
	ListGlobalStock(ctx context.Context) ([]domain.GlobalStockInfo, error)
}

// Set groups the repositories backed by one storage driver.
type Set struct {
	Stores      StoreRepository
	Limits      LimitRepository
	Mappings    MappingRepository
	Filters     FilterRepository
	Orders      OrderRepository
	Blacklist   BlacklistRepository
	History     HistoryRepository
	GlobalStock GlobalStockRepository
}
