package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type mappingRepository struct {
	db *DB
}

func NewMappingRepository(db *DB) *mappingRepository {
	return &mappingRepository{db: db}
}

func scanMapping(row scanner) (domain.ProductMapping, error) {
	var m domain.ProductMapping
	var synonyms pq.StringArray
	if err := row.Scan(&m.ID, &m.MainProduct, &synonyms, &m.CreatedAt); err != nil {
		return m, err
	}
	m.Synonyms = nonNil([]string(synonyms))
	return m, nil
}

func (r *mappingRepository) ListMappings(ctx context.Context) ([]domain.ProductMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, main_product, synonyms, created_at FROM product_mappings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]domain.ProductMapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (r *mappingRepository) GetMapping(ctx context.Context, id string) (*domain.ProductMapping, error) {
	m, err := scanMapping(r.db.QueryRowContext(ctx,
		`SELECT id, main_product, synonyms, created_at FROM product_mappings WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "mapping", id)
	}
	return &m, nil
}

func (r *mappingRepository) CreateMapping(ctx context.Context, mapping *domain.ProductMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO product_mappings (id, main_product, synonyms, created_at) VALUES ($1, $2, $3, $4)`,
		mapping.ID, mapping.MainProduct, pq.Array(nonNil(mapping.Synonyms)), mapping.CreatedAt)
	return translate(err, "mapping", mapping.MainProduct)
}

func (r *mappingRepository) UpdateMapping(ctx context.Context, mapping *domain.ProductMapping) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE product_mappings SET main_product = $2, synonyms = $3 WHERE id = $1 RETURNING created_at`,
		mapping.ID, mapping.MainProduct, pq.Array(nonNil(mapping.Synonyms)))
	return translate(row.Scan(&mapping.CreatedAt), "mapping", mapping.ID)
}

func (r *mappingRepository) DeleteMapping(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping %q: %w", id, err)
	}
	return expectAffected(res, "mapping", id)
}

type filterRepository struct {
	db *DB
}

func NewFilterRepository(db *DB) *filterRepository {
	return &filterRepository{db: db}
}

func (r *filterRepository) ListFilters(ctx context.Context) ([]domain.FilterExpression, error) {
	filters := make([]domain.FilterExpression, 0)
	err := sqlx.SelectContext(ctx, r.db, &filters,
		`SELECT id, name, expression, created_at FROM filters ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	return filters, nil
}

func (r *filterRepository) GetFilter(ctx context.Context, id string) (*domain.FilterExpression, error) {
	var f domain.FilterExpression
	err := sqlx.GetContext(ctx, r.db, &f,
		`SELECT id, name, expression, created_at FROM filters WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err, "filter", id)
	}
	return &f, nil
}

func (r *filterRepository) CreateFilter(ctx context.Context, filter *domain.FilterExpression) error {
	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}
	if filter.CreatedAt.IsZero() {
		filter.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO filters (id, name, expression, created_at) VALUES (:id, :name, :expression, :created_at)`,
		filter)
	return translate(err, "filter", filter.ID)
}

func (r *filterRepository) DeleteFilter(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM filters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete filter %q: %w", id, err)
	}
	return expectAffected(res, "filter", id)
}
