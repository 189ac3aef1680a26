package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/rs/zerolog/log"
)

// StockUploader stores a global stock matrix.
type StockUploader interface {
	Upload(ctx context.Context, filename string, data []byte, stockDate time.Time) (*service.UploadResult, error)
}

// Importer pulls global stock workbooks from Drive into the stock service.
type Importer struct {
	source Source
	stock  StockUploader
}

func NewImporter(source Source, stock StockUploader) *Importer {
	return &Importer{source: source, stock: stock}
}

// ImportFile uploads one Drive file as the new global stock.
func (i *Importer) ImportFile(ctx context.Context, fileID string, stockDate time.Time) (*service.UploadResult, error) {
	file, data, err := i.source.Fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !file.IsSpreadsheet() {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedFormat, file.Name, file.MimeType)
	}

	result, err := i.stock.Upload(ctx, file.Name, data, stockDate)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file_id", fileID).
		Str("name", file.Name).
		Int64("version", result.Version).
		Int("products", result.ProductsCount).
		Msg("drive: imported global stock")
	return result, nil
}

// ImportLatest imports the most recently modified spreadsheet of a folder.
func (i *Importer) ImportLatest(ctx context.Context, folderID string, stockDate time.Time) (*service.UploadResult, error) {
	files, err := i.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var latest *File
	for _, f := range files {
		if !f.IsSpreadsheet() {
			continue
		}
		if latest == nil || f.ModifiedTime > latest.ModifiedTime {
			latest = f
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no spreadsheet in drive folder %q", domain.ErrNotFound, folderID)
	}
	return i.ImportFile(ctx, latest.ID, stockDate)
}
