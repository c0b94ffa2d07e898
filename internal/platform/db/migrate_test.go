package db

import (
	"context"
	"os"
	"testing"
	"testing/fstest"
)

func TestMigrationVersionsSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":   {Data: []byte("SELECT 1")},
		"migrations/0001_a.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":    {Data: []byte("notes")},
		"migrations/nested/x.sql": {Data: []byte("SELECT 1")},
	}
	got, err := migrationVersions(fsys)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(got) != 2 || got[0] != "0001_a" || got[1] != "0002_b" {
		t.Fatalf("unexpected versions %v", got)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	got, err := migrationVersions(migrationFS)
	if err != nil || len(got) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", got, err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}
}
