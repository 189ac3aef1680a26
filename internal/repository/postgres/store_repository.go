package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type storeRepository struct {
	db *DB
}

func NewStoreRepository(db *DB) *storeRepository {
	return &storeRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStore(row scanner) (domain.Store, error) {
	var st domain.Store
	var aliases pq.StringArray
	if err := row.Scan(&st.ID, &st.Name, &aliases, &st.CreatedAt); err != nil {
		return st, err
	}
	st.Aliases = []string(aliases)
	if st.Aliases == nil {
		st.Aliases = []string{}
	}
	return st, nil
}

func (r *storeRepository) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, aliases, created_at FROM stores ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

func (r *storeRepository) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, aliases, created_at FROM stores WHERE id = $1`, id)
	st, err := scanStore(row)
	if err != nil {
		return nil, translate(err, "store", id)
	}
	return &st, nil
}

func (r *storeRepository) CreateStore(ctx context.Context, store *domain.Store, copyFromID string) error {
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = time.Now().UTC()
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if copyFromID != "" {
			if err := storeExists(ctx, tx, copyFromID); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO stores (id, name, aliases, created_at) VALUES ($1, $2, $3, $4)`,
			store.ID, store.Name, pq.Array(nonNil(store.Aliases)), store.CreatedAt)
		if err != nil {
			return translate(err, "store", store.ID)
		}

		if copyFromID == "" {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO limits (store_id, product, qty_limit)
			SELECT $1, product, qty_limit FROM limits
			WHERE store_id = $2
			ORDER BY position
		`, store.ID, copyFromID)
		if err != nil {
			return fmt.Errorf("failed to copy limits from %q: %w", copyFromID, err)
		}
		return nil
	})
}

func (r *storeRepository) UpdateStore(ctx context.Context, store *domain.Store) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE stores SET name = $2, aliases = $3 WHERE id = $1 RETURNING created_at`,
		store.ID, store.Name, pq.Array(nonNil(store.Aliases)))
	if err := row.Scan(&store.CreatedAt); err != nil {
		return translate(err, "store", store.ID)
	}
	return nil
}

// DeleteStore relies on ON DELETE CASCADE for limits, orders, history and
// blacklist rows.
func (r *storeRepository) DeleteStore(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store %q: %w", id, err)
	}
	return expectAffected(res, "store", id)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
