package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/jmoiron/sqlx"
)

type limitRepository struct {
	db *DB
}

func NewLimitRepository(db *DB) *limitRepository {
	return &limitRepository{db: db}
}

func (r *limitRepository) ListLimits(ctx context.Context, storeID string) ([]domain.Limit, error) {
	if err := storeExists(ctx, r.db, storeID); err != nil {
		return nil, err
	}

	limits := make([]domain.Limit, 0)
	err := sqlx.SelectContext(ctx, r.db, &limits, `
		SELECT store_id, product, qty_limit
		FROM limits
		WHERE store_id = $1
		ORDER BY position
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}
	return limits, nil
}

// UpsertLimits keeps the position of existing products so the insertion
// order survives updates.
func (r *limitRepository) UpsertLimits(ctx context.Context, storeID string, limits []domain.LimitInput) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := storeExists(ctx, tx, storeID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO limits (store_id, product, qty_limit)
			VALUES ($1, $2, $3)
			ON CONFLICT (store_id, product)
			DO UPDATE SET qty_limit = EXCLUDED.qty_limit
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, l := range limits {
			if _, err := stmt.ExecContext(ctx, storeID, l.Product, l.Limit); err != nil {
				return fmt.Errorf("failed to upsert limit %q: %w", l.Product, err)
			}
		}
		return nil
	})
}

func (r *limitRepository) InsertLimitIfAbsent(ctx context.Context, storeID string, limit domain.LimitInput) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO limits (store_id, product, qty_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_id, product) DO NOTHING
	`, storeID, limit.Product, limit.Limit)
	if err != nil {
		return false, translate(err, "limit", limit.Product)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *limitRepository) RenameLimit(ctx context.Context, storeID, oldName, newName string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := storeExists(ctx, tx, storeID); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM limits WHERE store_id = $1 AND product = $2)`,
			storeID, oldName).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up limit: %w", err)
		}
		if !exists {
			return fmt.Errorf("limit %q: %w", oldName, domain.ErrNotFound)
		}
		if oldName == newName {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE limits SET product = $3 WHERE store_id = $1 AND product = $2`,
			storeID, oldName, newName); err != nil {
			return translate(err, "limit", newName)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE history SET product = $3 WHERE store_id = $1 AND product = $2`,
			storeID, oldName, newName); err != nil {
			return fmt.Errorf("failed to rename history: %w", err)
		}
		// A blacklist entry already present under the new name wins.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM blacklist
			WHERE store_id = $1 AND product = $2
			  AND EXISTS (SELECT 1 FROM blacklist WHERE store_id = $1 AND product = $3)
		`, storeID, oldName, newName); err != nil {
			return fmt.Errorf("failed to merge blacklist: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE blacklist SET product = $3 WHERE store_id = $1 AND product = $2`,
			storeID, oldName, newName); err != nil {
			return fmt.Errorf("failed to rename blacklist: %w", err)
		}
		return nil
	})
}

func (r *limitRepository) DeleteLimit(ctx context.Context, storeID, product string) error {
	if err := storeExists(ctx, r.db, storeID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM limits WHERE store_id = $1 AND product = $2`, storeID, product)
	if err != nil {
		return fmt.Errorf("failed to delete limit %q: %w", product, err)
	}
	return expectAffected(res, "limit", product)
}
