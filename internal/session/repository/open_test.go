package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/config"
)

func TestOpenKV_Memory(t *testing.T) {
	kv, err := OpenKV(context.Background(), &config.Config{SessionStore: config.StoreMemory}, "default")
	if err != nil {
		t.Fatalf("OpenKV: %v", err)
	}
	defer kv.Close()
	if _, ok := kv.(*MemoryKV); !ok {
		t.Errorf("OpenKV memory = %T, want *MemoryKV", kv)
	}
}

func TestOpenKV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	kv, err := OpenKV(context.Background(), &config.Config{SessionStore: config.StoreFile, SessionFile: path}, "default")
	if err != nil {
		t.Fatalf("OpenKV: %v", err)
	}
	defer kv.Close()
	if _, ok := kv.(*FileKV); !ok {
		t.Errorf("OpenKV file = %T, want *FileKV", kv)
	}
}

func TestOpenKV_Unknown(t *testing.T) {
	if _, err := OpenKV(context.Background(), &config.Config{SessionStore: "sqlite"}, "default"); err == nil {
		t.Fatal("OpenKV with unknown store should fail")
	}
}

func TestNewRedisKV_InvalidURL(t *testing.T) {
	if _, err := NewRedisKV(context.Background(), "not-a-redis-url", "p:"); err == nil {
		t.Fatal("NewRedisKV with invalid URL should fail")
	}
}

func TestRedisKV_Roundtrip(t *testing.T) {
	// Requires a real redis; skipped unless REDIS_URL is set.
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	ctx := context.Background()
	kv, err := NewRedisKV(ctx, url, "singlebrief-test:"+t.Name()+":")
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer kv.Close()

	repo := NewKVRepository(kv)
	if err := repo.Save(ctx, testSession(true)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil || got == nil || got.Organization == nil {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := repo.Load(ctx); got != nil {
		t.Errorf("Load after Clear = %+v, want nil", got)
	}
}
