package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the archive needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte) error
}

// Drivers
const (
	DriverNone    = "none"
	DriverMinio   = "minio"
	DriverSevalla = "sevalla"
)

// New builds the configured object storage. Driver "none" (or empty)
// returns nil, which disables archiving.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverMinio:
		return NewMinioClient(cfg)
	case DriverSevalla:
		return NewSevallaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
