package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/chartmuseum/storage"
)

const defaultS3Region = "us-east-1"

// SevallaClient stores archive objects in an S3-compatible bucket through
// the chartmuseum backend. Keys are passed through unchanged; the archive
// owns the prefix.
type SevallaClient struct {
	backend storage.Backend
}

func NewSevallaClient(cfg config.StorageConfig) (*SevallaClient, error) {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"endpoint", cfg.Endpoint},
		{"access key", cfg.AccessKey},
		{"secret key", cfg.SecretKey},
		{"bucket", cfg.Bucket},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sevalla storage: missing %s", strings.Join(missing, ", "))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultS3Region
	}
	creds := credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	// a non-empty endpoint makes chartmuseum use path-style addressing
	backend := storage.NewAmazonS3BackendWithCredentials(cfg.Bucket, "", region, endpointURL(cfg.Endpoint, cfg.UseSSL), "", creds)
	return &SevallaClient{backend: backend}, nil
}

// endpointURL adds a scheme to a bare host so that DisableSSL follows UseSSL.
func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http://"
	if useSSL {
		scheme = "https://"
	}
	return scheme + strings.TrimPrefix(endpoint, "//")
}

func (c *SevallaClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := c.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	out := make([]ObjectInfo, len(objects))
	for i, o := range objects {
		out[i] = ObjectInfo{Key: o.Path, Size: int64(len(o.Content))}
	}
	return out, nil
}

func (c *SevallaClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	o, err := c.backend.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return o.Content, nil
}

func (c *SevallaClient) UploadObject(ctx context.Context, key string, data []byte) error {
	if err := c.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*SevallaClient)(nil)
