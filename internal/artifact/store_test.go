package artifact

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/miradorstack/mirador-netforecast/internal/cache"
	"github.com/miradorstack/mirador-netforecast/internal/config"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "models", "forecaster.nfa"))
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := store.Save(ctx, []byte("first")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil || string(got) != "second" {
		t.Fatalf("expected second, got %q %v", got, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "models"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestValkeyStoreTranslatesMiss(t *testing.T) {
	provider := cache.NewMemoryProvider()
	store := NewValkeyStore(provider, "netforecast/forecaster.nfa")
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := store.Save(ctx, []byte("blob")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil || string(got) != "blob" {
		t.Fatalf("expected blob, got %q %v", got, err)
	}
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	store, err := FromConfig(ctx, config.ArtifactConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "a.nfa")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}
	mem, err := FromConfig(ctx, config.ArtifactConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, err := mem.Load(ctx); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected not found from an empty memory store, got %v", err)
	}
	if err := mem.Save(ctx, []byte("blob")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := mem.Load(ctx); err != nil || string(got) != "blob" {
		t.Fatalf("unexpected memory load %q %v", got, err)
	}
	if _, err := FromConfig(ctx, config.ArtifactConfig{Backend: "tape"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromConfig(ctx, config.ArtifactConfig{Backend: "minio"}); err == nil {
		t.Fatalf("expected error for minio without endpoint")
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey("models/forecaster.nfa"); got != "netforecast/forecaster.nfa" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := objectKey(""); got != "netforecast/forecaster.nfa" {
		t.Fatalf("unexpected default key %s", got)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	err := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	if !isNoSuchKey(err) {
		t.Fatalf("expected NoSuchKey to be recognised")
	}
	if isNoSuchKey(errors.New("boom")) {
		t.Fatalf("unexpected match for generic error")
	}
}
