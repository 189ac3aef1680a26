// Package history records and queries per-store product time series.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository"
)

// Recorder appends history points and answers period queries.
type Recorder struct {
	repo repository.HistoryRepository
	now  func() time.Time
}

func NewRecorder(repo repository.HistoryRepository) *Recorder {
	return NewRecorderWithClock(repo, time.Now)
}

func NewRecorderWithClock(repo repository.HistoryRepository, clock func() time.Time) *Recorder {
	return &Recorder{repo: repo, now: clock}
}

// Batch collects observations sharing one timestamp so that the stock and
// order of a product land in the same point.
type Batch struct {
	storeID string
	at      time.Time
	points  map[string]*domain.HistoryPoint
	order   []string
}

// Begin starts a batch stamped with the current time.
func (r *Recorder) Begin(storeID string) *Batch {
	return BeginAt(storeID, r.now())
}

// BeginAt starts a batch stamped with at.
func BeginAt(storeID string, at time.Time) *Batch {
	return &Batch{storeID: storeID, at: at.UTC(), points: make(map[string]*domain.HistoryPoint)}
}

func (b *Batch) point(product string) *domain.HistoryPoint {
	p, ok := b.points[product]
	if !ok {
		p = &domain.HistoryPoint{StoreID: b.storeID, Product: product, RecordedAt: b.at}
		b.points[product] = p
		b.order = append(b.order, product)
	}
	return p
}

// ObserveStock records the stock of every product in stock.
func (b *Batch) ObserveStock(stock domain.StockMap) {
	names := make([]string, 0, len(stock))
	for name := range stock {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		qty := stock[name]
		b.point(name).Stock = &qty
	}
}

// ObserveOrders merges computed order quantities into the batch. A row
// whose product has no stock observation contributes its matched stock.
func (b *Batch) ObserveOrders(rows []domain.OrderRow) {
	for _, row := range rows {
		p := b.point(row.Product)
		qty := row.Order
		p.Order = &qty
		if p.Stock == nil {
			stock := row.Stock
			p.Stock = &stock
		}
	}
}

// Points returns the batch contents in observation order.
func (b *Batch) Points() []domain.HistoryPoint {
	out := make([]domain.HistoryPoint, 0, len(b.order))
	for _, product := range b.order {
		out = append(out, *b.points[product])
	}
	return out
}

// Commit appends the batch. An empty batch is a no-op.
func (r *Recorder) Commit(ctx context.Context, b *Batch) error {
	points := b.Points()
	if len(points) == 0 {
		return nil
	}
	if err := r.repo.AppendHistory(ctx, points); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Series returns the stock and order points of product within period,
// ascending by time.
func (r *Recorder) Series(ctx context.Context, storeID, product string, period domain.Period) (*domain.ProductSeries, error) {
	points, err := r.repo.ListHistory(ctx, storeID, product, period.Since(r.now()))
	if err != nil {
		return nil, err
	}
	series := &domain.ProductSeries{
		Product: product,
		Period:  period,
		Stock:   []domain.SeriesPoint{},
		Orders:  []domain.SeriesPoint{},
	}
	for _, p := range points {
		if p.Stock != nil {
			series.Stock = append(series.Stock, domain.SeriesPoint{RecordedAt: p.RecordedAt, Value: *p.Stock})
		}
		if p.Order != nil {
			series.Orders = append(series.Orders, domain.SeriesPoint{RecordedAt: p.RecordedAt, Value: float64(*p.Order)})
		}
	}
	return series, nil
}

// Summary returns, per product seen within period, the latest stock and
// order, the change against the previous stock point and the last
// observation time, sorted by product.
func (r *Recorder) Summary(ctx context.Context, storeID string, period domain.Period) ([]domain.ProductSummary, error) {
	points, err := r.repo.ListHistory(ctx, storeID, "", period.Since(r.now()))
	if err != nil {
		return nil, err
	}
	return Summarize(points), nil
}

// Summarize folds ascending points into per-product summaries.
func Summarize(points []domain.HistoryPoint) []domain.ProductSummary {
	type acc struct {
		summary   domain.ProductSummary
		prevStock *float64
	}
	byProduct := make(map[string]*acc)
	for _, p := range points {
		a, ok := byProduct[p.Product]
		if !ok {
			a = &acc{summary: domain.ProductSummary{Product: p.Product}}
			byProduct[p.Product] = a
		}
		if p.Stock != nil {
			a.prevStock = a.summary.Stock
			stock := *p.Stock
			a.summary.Stock = &stock
		}
		if p.Order != nil {
			order := *p.Order
			a.summary.Order = &order
		}
		if !p.RecordedAt.Before(a.summary.LastUpdated) {
			a.summary.LastUpdated = p.RecordedAt
		}
	}

	out := make([]domain.ProductSummary, 0, len(byProduct))
	for _, a := range byProduct {
		s := a.summary
		if s.Stock != nil && a.prevStock != nil {
			change := *s.Stock - *a.prevStock
			s.Change = &change
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}
