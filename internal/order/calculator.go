// Package order computes replenishment quantities from stock and limits.
package order

import (
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/match"
)

// Quantity is the shortfall of stock against limit, never negative.
// Fractional stock is rounded down before subtracting.
func Quantity(limit int, stock float64) int {
	q := limit - int(math.Floor(stock))
	if q < 0 {
		return 0
	}
	return q
}

// Calculator matches stock names to limit products.
type Calculator struct {
	Fuzzy bool
}

// Calculate returns one row per limit, in limit order. Stock entries are
// matched to limits by exact, then normalized and optionally token
// comparison; several entries matching one limit are summed. A limit with
// no matching stock uses stock 0. Stock without a limit produces no row.
func (c Calculator) Calculate(limits []domain.Limit, stock domain.StockMap) []domain.OrderRow {
	products := make([]string, 0, len(limits))
	for _, l := range limits {
		products = append(products, l.Product)
	}
	matched := c.sumByProduct(products, stock)

	rows := make([]domain.OrderRow, 0, len(limits))
	for _, l := range limits {
		s := matched[l.Product]
		rows = append(rows, domain.OrderRow{
			Product: l.Product,
			Stock:   s,
			Limit:   l.Limit,
			Order:   Quantity(l.Limit, s),
		})
	}
	return rows
}

// Available keeps the rows whose product has more than reserve units in
// the warehouse catalog. Catalog names are matched like stock names.
func (c Calculator) Available(rows []domain.OrderRow, catalog domain.StockMap, reserve float64) []domain.OrderRow {
	products := make([]string, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.Product)
	}
	available := c.sumByProduct(products, catalog)

	out := make([]domain.OrderRow, 0, len(rows))
	for _, r := range rows {
		if available[r.Product]-reserve > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (c Calculator) sumByProduct(products []string, stock domain.StockMap) map[string]float64 {
	index := match.NewIndex(products, c.Fuzzy)

	// sorted so that float sums do not depend on map order
	names := make([]string, 0, len(stock))
	for name := range stock {
		names = append(names, name)
	}
	sort.Strings(names)

	matched := make(map[string]float64, len(products))
	for _, name := range names {
		if product, ok := index.Resolve(name); ok {
			matched[product] += stock[name]
		}
	}
	return matched
}

// DropZero removes rows with nothing to order.
func DropZero(rows []domain.OrderRow) []domain.OrderRow {
	out := make([]domain.OrderRow, 0, len(rows))
	for _, r := range rows {
		if r.Order > 0 {
			out = append(out, r)
		}
	}
	return out
}

// SellerLines splits a seller request into product lines, trimmed, blank
// lines removed, in input order.
func SellerLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Items turns computed rows and seller lines into order items. Seller
// lines come last and carry no quantities.
func Items(rows []domain.OrderRow, seller []string) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(rows)+len(seller))
	for _, r := range rows {
		items = append(items, domain.OrderItem{
			Product:  r.Product,
			Stock:    r.Stock,
			Limit:    r.Limit,
			Quantity: r.Order,
		})
	}
	for _, line := range seller {
		items = append(items, domain.OrderItem{Product: line, IsSellerRequest: true})
	}
	return items
}
