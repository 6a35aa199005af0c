package postgres_test

import (
	"context"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/postgres"
	"github.com/xraph/detention/store/storetest"
)

// Set DETENTION_TEST_POSTGRES_DSN to run these against a scratch database.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("DETENTION_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DETENTION_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := postgres.Open(dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })

		ctx := context.Background()
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		truncate(t, s.DB())
		return s
	})
}

func truncate(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Exec("TRUNCATE detention_entries, detention_students, detention_classes").Error
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
