package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type globalStockRepository struct {
	db *DB
}

func NewGlobalStockRepository(db *DB) *globalStockRepository {
	return &globalStockRepository{db: db}
}

func (r *globalStockRepository) SaveGlobalStock(ctx context.Context, upload *domain.GlobalStockUpload) error {
	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}
	data, err := json.Marshal(upload.Data)
	if err != nil {
		return fmt.Errorf("failed to encode global stock: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO global_stock (id, uploaded_at, stock_date, store_columns, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING version
	`, upload.ID, upload.UploadedAt, upload.StockDate, pq.Array(nonNil(upload.StoreColumns)), data)
	return translate(row.Scan(&upload.Version), "global stock", upload.ID)
}

const selectUpload = `SELECT id, version, uploaded_at, stock_date, store_columns, data FROM global_stock`

func scanUpload(row scanner) (*domain.GlobalStockUpload, error) {
	var u domain.GlobalStockUpload
	var columns pq.StringArray
	var data []byte
	if err := row.Scan(&u.ID, &u.Version, &u.UploadedAt, &u.StockDate, &columns, &data); err != nil {
		return nil, err
	}
	u.StoreColumns = nonNil([]string(columns))
	if err := json.Unmarshal(data, &u.Data); err != nil {
		return nil, fmt.Errorf("failed to decode global stock %q: %w", u.ID, err)
	}
	if u.Data == nil {
		u.Data = map[string]map[string]float64{}
	}
	return &u, nil
}

func (r *globalStockRepository) LatestGlobalStock(ctx context.Context) (*domain.GlobalStockUpload, error) {
	u, err := scanUpload(r.db.QueryRowContext(ctx, selectUpload+` ORDER BY version DESC LIMIT 1`))
	if err != nil {
		return nil, translate(err, "global stock", "latest")
	}
	return u, nil
}

func (r *globalStockRepository) GetGlobalStock(ctx context.Context, id string) (*domain.GlobalStockUpload, error) {
	u, err := scanUpload(r.db.QueryRowContext(ctx, selectUpload+` WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "global stock", id)
	}
	return u, nil
}

func (r *globalStockRepository) ListGlobalStock(ctx context.Context) ([]domain.GlobalStockInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, uploaded_at, stock_date, store_columns,
		       (SELECT COUNT(*) FROM jsonb_object_keys(data)) AS products_count
		FROM global_stock
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list global stock: %w", err)
	}
	defer rows.Close()

	infos := make([]domain.GlobalStockInfo, 0)
	for rows.Next() {
		var info domain.GlobalStockInfo
		var columns pq.StringArray
		if err := rows.Scan(&info.ID, &info.Version, &info.UploadedAt, &info.StockDate, &columns, &info.ProductsCount); err != nil {
			return nil, fmt.Errorf("failed to scan global stock: %w", err)
		}
		info.StoreColumns = nonNil([]string(columns))
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
