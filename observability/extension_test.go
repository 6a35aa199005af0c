package observability_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/detention"
	"github.com/xraph/detention/observability"
	"github.com/xraph/detention/store/memory"
)

type fakeMetric struct {
	mu       sync.Mutex
	value    float64
	observed []float64
}

func (m *fakeMetric) Inc() { m.Add(1) }

func (m *fakeMetric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value += v
}

func (m *fakeMetric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, v)
}

type fakeFactory struct {
	metrics map[string]*fakeMetric
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{metrics: make(map[string]*fakeMetric)}
}

func (f *fakeFactory) get(name string) *fakeMetric {
	m, ok := f.metrics[name]
	if !ok {
		m = &fakeMetric{}
		f.metrics[name] = m
	}
	return m
}

func (f *fakeFactory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestMetricsExtensionCountsSession(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	ext := observability.NewMetricsExtension(factory)

	st := memory.New()
	tr := detention.New(st,
		detention.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		detention.WithPlugin(ext),
	)
	if err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	c, _ := tr.CreateClass(ctx, "Period 2")
	students, err := tr.ImportRoster(ctx, c.ID, "Ana, Ben\nCara")
	if err != nil {
		t.Fatal(err)
	}
	s := students[0]

	for _, d := range []int64{30, 20, -5} {
		if _, err := tr.AddEntry(ctx, s.ID, d, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tr.MarkServed45(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.UndoLastEntry(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	st.SetTotalForTest(s.ID, 0)
	if _, err := tr.Reconcile(ctx, s.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want float64
	}{
		{"detention.class.created", 1},
		{"detention.students.imported", 3},
		{"detention.entry.added", 3},
		{"detention.minutes.assigned", 50 + 45},
		{"detention.minutes.credited", 5 + 45},
		{"detention.served", 1},
		{"detention.entry.undone", 1},
		{"detention.total.reconciled", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := factory.get(tt.name).value; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	drift := factory.get("detention.total.drift_minutes").observed
	if len(drift) != 1 || drift[0] != 45 {
		t.Errorf("drift observations = %v, want [45]", drift)
	}
}
