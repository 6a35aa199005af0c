package detention_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xraph/detention"
	"github.com/xraph/detention/store/memory"
)

func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		tr := detention.New(memory.New(), detention.WithLogger(slog.Default()))
		if err := tr.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer tr.Stop()

		c, err := tr.CreateClass(ctx, "Period 3")
		if err != nil {
			t.Fatal(err)
		}
		students, err := tr.ImportRoster(ctx, c.ID, "Ana, Ben\nCara")
		if err != nil {
			t.Fatal(err)
		}
		if len(students) != 3 {
			t.Fatalf("expected 3 students, got %d", len(students))
		}
		if _, err := tr.AddEntry(ctx, students[0].ID, 5, "late"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("OwedBlocksExample", func(t *testing.T) {
		if detention.OwedCount(50) != 1 || detention.Progress(50) != 5 {
			t.Error("50 minutes should be 1 block and 5 minutes")
		}
		if detention.OwedCount(-1) != -1 || detention.Progress(-1) != 44 {
			t.Error("-1 minutes should be -1 block and 44 minutes")
		}
	})
}
