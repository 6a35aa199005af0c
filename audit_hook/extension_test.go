package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/detention"
	audithook "github.com/xraph/detention/audit_hook"
	"github.com/xraph/detention/store/memory"
)

type captured struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captured) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func runSession(t *testing.T, ext *audithook.Extension) {
	t.Helper()
	ctx := context.Background()
	tr := detention.New(memory.New(), detention.WithLogger(quiet), detention.WithPlugin(ext))
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	c, err := tr.CreateClass(ctx, "Period 1")
	if err != nil {
		t.Fatal(err)
	}
	s, err := tr.AddStudent(ctx, c.ID, "Ana")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddEntry(ctx, s.ID, 50, "late"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.MarkServed45(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.UndoLastEntry(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.ReplaceStudents(ctx, c.ID, []string{"Ben"}); err != nil {
		t.Fatal(err)
	}
}

func TestExtensionRecordsSession(t *testing.T) {
	rec := &captured{}
	runSession(t, audithook.New(rec, audithook.WithLogger(quiet)))

	want := []string{
		audithook.ActionClassCreated,
		audithook.ActionStudentCreated,
		audithook.ActionEntryAdded,
		audithook.ActionEntryServed,
		audithook.ActionEntryUndone,
		audithook.ActionStudentsImported,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("got actions %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	imported := rec.events[len(rec.events)-1]
	if imported.Severity != audithook.SeverityWarning {
		t.Errorf("replace that removed students should be a warning, got %q", imported.Severity)
	}
	if imported.Metadata["removed"] != int64(1) {
		t.Errorf("removed = %v", imported.Metadata["removed"])
	}

	added := rec.events[2]
	if added.Metadata["delta_minutes"] != int64(50) || added.Metadata["note"] != "late" {
		t.Errorf("unexpected entry metadata: %v", added.Metadata)
	}
}

func TestActionFilters(t *testing.T) {
	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"enabled only served", audithook.WithEnabledActions(audithook.ActionEntryServed), 1},
		{"disabled roster", audithook.WithDisabledActions(
			audithook.ActionClassCreated,
			audithook.ActionStudentCreated,
			audithook.ActionStudentsImported,
		), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			runSession(t, audithook.New(rec, audithook.WithLogger(quiet), tt.opt))
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events (%v), want %d", got, rec.actions(), tt.want)
			}
		})
	}
}

func TestRecorderFailureDoesNotFailHook(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}), audithook.WithLogger(quiet))

	if err := ext.OnTotalReconciled(context.Background(), detention.ID{}, 10, 5); err != nil {
		t.Errorf("hook returned %v", err)
	}
}
