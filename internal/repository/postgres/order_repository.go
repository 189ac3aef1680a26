package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type orderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, store_id, store_name, source, seller_request, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, order.StoreID, order.StoreName, order.Source, order.SellerRequest, order.CreatedAt)
		if err != nil {
			return translate(err, "order", order.ID)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (order_id, line_no, product, stock, qty_limit, quantity, is_seller_request)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, item := range order.Items {
			if _, err := stmt.ExecContext(ctx, order.ID, i, item.Product, item.Stock, item.Limit, item.Quantity, item.IsSellerRequest); err != nil {
				return fmt.Errorf("failed to insert order item %q: %w", item.Product, err)
			}
		}
		return nil
	})
}

func (r *orderRepository) ListOrders(ctx context.Context, storeID string) ([]domain.OrderSummary, error) {
	if err := storeExists(ctx, r.db, storeID); err != nil {
		return nil, err
	}

	orders := make([]domain.OrderSummary, 0)
	err := sqlx.SelectContext(ctx, r.db, &orders, `
		SELECT o.id, o.store_id, o.source, o.created_at, COUNT(i.line_no) AS items_count
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.store_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.id DESC
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := sqlx.GetContext(ctx, r.db, &order, `
		SELECT id, store_id, store_name, source, seller_request, created_at
		FROM orders
		WHERE store_id = $1 AND id = $2
	`, storeID, orderID)
	if err != nil {
		return nil, translate(err, "order", orderID)
	}

	order.Items = make([]domain.OrderItem, 0)
	err = sqlx.SelectContext(ctx, r.db, &order.Items, `
		SELECT product, stock, qty_limit, quantity, is_seller_request
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return &order, nil
}
