package storage

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	ordersFolder      = "orders"
	globalStockFolder = "global-stock"
)

// Archive keeps copies of generated order workbooks and raw global stock
// uploads. A nil backend turns every call into a no-op.
type Archive struct {
	backend ObjectStorage
	prefix  string
}

func NewArchive(backend ObjectStorage, prefix string) *Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Archive{backend: backend, prefix: prefix}
}

// Enabled reports whether objects are actually stored.
func (a *Archive) Enabled() bool {
	return a != nil && a.backend != nil
}

// OrderKey is the object key of an order workbook.
func (a *Archive) OrderKey(storeID, orderID string) string {
	return a.prefix + path.Join(ordersFolder, storeID, orderID+".xlsx")
}

// GlobalStockKey is the object key of a raw global stock upload. The
// extension of the uploaded filename is kept.
func (a *Archive) GlobalStockKey(uploadID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return a.prefix + path.Join(globalStockFolder, uploadID+ext)
}

// SaveOrder stores an order workbook and returns its key.
func (a *Archive) SaveOrder(ctx context.Context, storeID, orderID string, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := a.OrderKey(storeID, orderID)
	if err := a.backend.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("order archived")
	return key, nil
}

// SaveGlobalStock stores a raw global stock file and returns its key.
func (a *Archive) SaveGlobalStock(ctx context.Context, uploadID, filename string, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := a.GlobalStockKey(uploadID, filename)
	if err := a.backend.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("global stock archived")
	return key, nil
}

// LoadOrder fetches a previously archived order workbook.
func (a *Archive) LoadOrder(ctx context.Context, storeID, orderID string) ([]byte, bool, error) {
	if !a.Enabled() {
		return nil, false, nil
	}
	data, err := a.backend.GetObject(ctx, a.OrderKey(storeID, orderID))
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// List returns the archived objects under folder ("orders" or
// "global-stock"), or everything when folder is empty.
func (a *Archive) List(ctx context.Context, folder string) ([]ObjectInfo, error) {
	if !a.Enabled() {
		return nil, nil
	}
	prefix := a.prefix
	if folder != "" {
		prefix += strings.Trim(folder, "/") + "/"
	}
	return a.backend.ListObjects(ctx, prefix)
}

// Key joins a folder relative path onto the archive prefix.
func (a *Archive) Key(rel string) string {
	return a.prefix + strings.TrimPrefix(rel, "/")
}

// Get fetches an object by its full key.
func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	if !a.Enabled() {
		return nil, nil
	}
	return a.backend.GetObject(ctx, key)
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
