package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/detention/observability"
)

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	c := f.Counter("detention.entry.added")
	c.Inc()
	c.Add(2)

	if again := f.Counter("detention.entry.added"); again != c {
		t.Error("expected the same counter for a repeated name")
	}

	pc, ok := c.(prometheus.Counter)
	if !ok {
		t.Fatalf("counter is %T", c)
	}
	if got := testutil.ToFloat64(pc); got != 3 {
		t.Errorf("counter = %v, want 3", got)
	}

	f.Histogram("detention.entry.delta_minutes").Observe(15)

	n, err := testutil.GatherAndCount(reg, "detention_entry_added", "detention_entry_delta_minutes")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("gathered %d metrics, want 2", n)
	}
}

func TestPrometheusFactorySharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	// Two extensions on one registry must not panic on duplicate names.
	observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	ext := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	ext.DetentionsServed.Inc()

	n, err := testutil.GatherAndCount(reg, "detention_served")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("gathered %d, want 1", n)
	}
}
