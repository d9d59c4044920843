package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/miradorstack/mirador-netforecast/internal/cache"
)

// ValkeyStore keeps the artifact under a single key of a cache provider. The key never
// expires.
type ValkeyStore struct {
	provider cache.Provider
	key      string
}

// NewValkeyStore wraps provider.
func NewValkeyStore(provider cache.Provider, key string) *ValkeyStore {
	return &ValkeyStore{provider: provider, key: key}
}

func (s *ValkeyStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.provider.Get(ctx, s.key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact key %s: %w", s.key, err)
	}
	return blob, nil
}

func (s *ValkeyStore) Save(ctx context.Context, blob []byte) error {
	if err := s.provider.Set(ctx, s.key, blob, 0); err != nil {
		return fmt.Errorf("set artifact key %s: %w", s.key, err)
	}
	return nil
}

func (s *ValkeyStore) Close() error { return s.provider.Close() }
