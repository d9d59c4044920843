// Package artifact persists encoded forecaster artifacts on a file system, in Valkey or in
// an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/miradorstack/mirador-netforecast/internal/cache"
	"github.com/miradorstack/mirador-netforecast/internal/config"
)

// ErrArtifactNotFound reports that no artifact has been saved at the configured location.
var ErrArtifactNotFound = errors.New("forecaster artifact not found")

// Store loads and saves one encoded artifact blob.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// FromConfig opens the backend named by cfg.Backend. The memory backend lives only as long
// as the process, so every start retrains.
func FromConfig(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "valkey":
		provider, err := cache.NewValkeyProvider(ctx, cfg.Valkey)
		if err != nil {
			return nil, fmt.Errorf("open valkey artifact store: %w", err)
		}
		return NewValkeyStore(provider, objectKey(cfg.Path)), nil
	case "memory":
		return NewValkeyStore(cache.NewMemoryProvider(), objectKey(cfg.Path)), nil
	case "minio":
		store, err := NewMinioStore(ctx, cfg.MinIO, objectKey(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("open minio artifact store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// objectKey derives a backend key from the configured artifact path.
func objectKey(p string) string {
	if p == "" {
		return "netforecast/forecaster.nfa"
	}
	return "netforecast/" + path.Base(strings.ReplaceAll(p, "\\", "/"))
}
