// internal/domain/models.go
package domain

import "time"

// Store represents a store whose stock is replenished against its limits
type Store struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Aliases   []string  `json:"aliases" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Limit is the desired stock level of a product at a store
type Limit struct {
	StoreID string `json:"store_id" db:"store_id"`
	Product string `json:"product" db:"product"`
	Limit   int    `json:"limit" db:"qty_limit"`
}

// LimitInput is a product/limit pair supplied by a caller before validation
type LimitInput struct {
	Product string `json:"product"`
	Limit   int    `json:"limit"`
}

// ProductMapping merges product name variants into MainProduct
type ProductMapping struct {
	ID          string    `json:"id" db:"id"`
	MainProduct string    `json:"main_product" db:"main_product"`
	Synonyms    []string  `json:"synonyms" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StockMap maps a product name to an observed quantity
type StockMap map[string]float64

// GlobalStockUpload is one multi-store stock matrix. Data is keyed by
// product, then by store column.
type GlobalStockUpload struct {
	ID           string                        `json:"id" db:"id"`
	Version      int64                         `json:"version" db:"version"`
	UploadedAt   time.Time                     `json:"uploaded_at" db:"uploaded_at"`
	StockDate    time.Time                     `json:"stock_date" db:"stock_date"`
	StoreColumns []string                      `json:"store_columns" db:"-"`
	Data         map[string]map[string]float64 `json:"data" db:"-"`
}

// GlobalStockInfo describes an upload without its data
type GlobalStockInfo struct {
	ID            string    `json:"id" db:"id"`
	Version       int64     `json:"version" db:"version"`
	UploadedAt    time.Time `json:"uploaded_at" db:"uploaded_at"`
	StockDate     time.Time `json:"stock_date" db:"stock_date"`
	StoreColumns  []string  `json:"store_columns" db:"-"`
	ProductsCount int       `json:"products_count" db:"products_count"`
}

// Info strips the data matrix from the upload.
func (u *GlobalStockUpload) Info() GlobalStockInfo {
	return GlobalStockInfo{
		ID:            u.ID,
		Version:       u.Version,
		UploadedAt:    u.UploadedAt,
		StockDate:     u.StockDate,
		StoreColumns:  u.StoreColumns,
		ProductsCount: len(u.Data),
	}
}

// Column extracts the quantities of a single store column.
func (u *GlobalStockUpload) Column(column string) StockMap {
	stock := make(StockMap)
	for product, byColumn := range u.Data {
		if qty, ok := byColumn[column]; ok {
			stock[product] = qty
		}
	}
	return stock
}

// FilterExpression is a saved row predicate over Лимиты, Остаток and Заказ
type FilterExpression struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Expression string    `json:"expression" db:"expression"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// OrderRow is one computed line of an order before filtering
type OrderRow struct {
	Product string  `json:"product"`
	Stock   float64 `json:"stock"`
	Limit   int     `json:"limit"`
	Order   int     `json:"order"`
}

// OrderItem is a persisted order line
type OrderItem struct {
	Product         string  `json:"product" db:"product"`
	Stock           float64 `json:"stock" db:"stock"`
	Limit           int     `json:"limit" db:"qty_limit"`
	Quantity        int     `json:"order" db:"quantity"`
	IsSellerRequest bool    `json:"is_seller_request" db:"is_seller_request"`
}

// Order is an immutable record of a generated order
type Order struct {
	ID            string      `json:"id" db:"id"`
	StoreID       string      `json:"store_id" db:"store_id"`
	StoreName     string      `json:"store_name" db:"store_name"`
	Source        string      `json:"source" db:"source"`
	SellerRequest string      `json:"seller_request" db:"seller_request"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	Items         []OrderItem `json:"items" db:"-"`
}

// OrderSummary is an order listing entry
type OrderSummary struct {
	ID         string    `json:"id" db:"id"`
	StoreID    string    `json:"store_id" db:"store_id"`
	Source     string    `json:"source" db:"source"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ItemsCount int       `json:"items_count" db:"items_count"`
}

// Order sources
const (
	SourceFile   = "file"
	SourceText   = "text"
	SourceGlobal = "global"
)

// BlacklistEntry hides a product from novelty detection for a store
type BlacklistEntry struct {
	StoreID   string    `json:"store_id" db:"store_id"`
	Product   string    `json:"product" db:"product"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HistoryPoint is an observation of a product at a store. Stock or Order is
// nil when that side was not observed at RecordedAt.
type HistoryPoint struct {
	StoreID    string    `json:"store_id" db:"store_id"`
	Product    string    `json:"product" db:"product"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Stock      *float64  `json:"stock" db:"stock"`
	Order      *int      `json:"order" db:"order_qty"`
}

// ProductSummary is the list view of a product's recent history
type ProductSummary struct {
	Product     string    `json:"product"`
	Stock       *float64  `json:"stock"`
	Order       *int      `json:"order"`
	Change      *float64  `json:"change"`
	LastUpdated time.Time `json:"last_updated"`
}

// ProductSeries is the chart view of a product's history
type ProductSeries struct {
	Product string        `json:"product"`
	Period  Period        `json:"period"`
	Stock   []SeriesPoint `json:"stock"`
	Orders  []SeriesPoint `json:"orders"`
}

type SeriesPoint struct {
	RecordedAt time.Time `json:"recorded_at"`
	Value      float64   `json:"value"`
}

// Novelty is a catalog product the store has not configured
type Novelty struct {
	Product      string  `json:"product"`
	Quantity     float64 `json:"electro_stock"`
	CurrentLimit *int    `json:"current_limit"`
}
