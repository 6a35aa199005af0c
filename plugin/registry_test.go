package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

type recordingPlugin struct {
	name string
	mu   sync.Mutex
	got  []string
	err  error
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) record(hook string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, hook)
	return p.err
}

func (p *recordingPlugin) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.got...)
}

func (p *recordingPlugin) OnEntryAdded(context.Context, *entry.Entry, *student.Student) error {
	return p.record("OnEntryAdded")
}

func (p *recordingPlugin) OnTotalReconciled(context.Context, id.StudentID, int64, int64) error {
	return p.record("OnTotalReconciled")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 plugin, got %d", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected result")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	p := &recordingPlugin{name: "rec"}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	r.EmitEntryAdded(ctx, &entry.Entry{}, &student.Student{})
	r.EmitServed(ctx, &entry.Entry{}, &student.Student{})
	r.EmitTotalReconciled(ctx, id.NewStudentID(), 1, 2)

	got := p.calls()
	want := []string{"OnEntryAdded", "OnTotalReconciled"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHookErrorsDoNotPropagate(t *testing.T) {
	r := quietRegistry()
	failing := &recordingPlugin{name: "failing", err: errors.New("boom")}
	healthy := &recordingPlugin{name: "healthy"}
	_ = r.Register(failing)
	_ = r.Register(healthy)

	r.EmitEntryAdded(context.Background(), &entry.Entry{}, &student.Student{})

	if len(healthy.calls()) != 1 {
		t.Error("healthy plugin should still be called after a failing one")
	}
}

func TestCallWithTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitShutdown(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("EmitShutdown waited %s, expected timeout to cut it short", elapsed)
	}
}
