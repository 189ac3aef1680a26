package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/jmoiron/sqlx"
)

type historyRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendHistory(ctx context.Context, points []domain.HistoryPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO history (store_id, product, recorded_at, stock, order_qty)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.StoreID, p.Product, p.RecordedAt, p.Stock, p.Order); err != nil {
				return translate(err, "history point", p.Product)
			}
		}
		return nil
	})
}

func (r *historyRepository) ListHistory(ctx context.Context, storeID, product string, since time.Time) ([]domain.HistoryPoint, error) {
	points := make([]domain.HistoryPoint, 0)
	err := sqlx.SelectContext(ctx, r.db, &points, `
		SELECT store_id, product, recorded_at, stock, order_qty
		FROM history
		WHERE store_id = $1
		  AND ($2 = '' OR product = $2)
		  AND recorded_at >= $3
		ORDER BY recorded_at, id
	`, storeID, product, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return points, nil
}

type blacklistRepository struct {
	db *DB
}

func NewBlacklistRepository(db *DB) *blacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) ListBlacklist(ctx context.Context, storeID string) ([]domain.BlacklistEntry, error) {
	if err := storeExists(ctx, r.db, storeID); err != nil {
		return nil, err
	}
	entries := make([]domain.BlacklistEntry, 0)
	err := sqlx.SelectContext(ctx, r.db, &entries, `
		SELECT store_id, product, created_at
		FROM blacklist
		WHERE store_id = $1
		ORDER BY created_at, product
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklist: %w", err)
	}
	return entries, nil
}

func (r *blacklistRepository) AddToBlacklist(ctx context.Context, storeID, product string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blacklist (store_id, product, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (store_id, product) DO NOTHING
	`, storeID, product)
	return translate(err, "blacklist entry", product)
}

func (r *blacklistRepository) RemoveFromBlacklist(ctx context.Context, storeID, product string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blacklist WHERE store_id = $1 AND product = $2`, storeID, product)
	if err != nil {
		return fmt.Errorf("failed to remove blacklist entry %q: %w", product, err)
	}
	return expectAffected(res, "blacklist entry", product)
}
