package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/xraph/detention/store"
	"github.com/xraph/detention/store/mongo"
	"github.com/xraph/detention/store/storetest"
)

// Set DETENTION_TEST_MONGO_URI to a replica-set URI to run these.
func TestConformance(t *testing.T) {
	uri := os.Getenv("DETENTION_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DETENTION_TEST_MONGO_URI not set")
	}

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbName := fmt.Sprintf("detention_test_%d_%d", time.Now().UnixNano(), n)
		s, err := mongo.Open(ctx, uri, dbName)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() {
			_ = s.Database().Drop(context.Background())
			_ = s.Close()
		})

		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}
