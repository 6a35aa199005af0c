// Package observability provides a metrics extension for the detention
// tracker that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/plugin"
	"github.com/xraph/detention/student"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnClassCreated     = (*MetricsExtension)(nil)
	_ plugin.OnStudentCreated   = (*MetricsExtension)(nil)
	_ plugin.OnStudentsImported = (*MetricsExtension)(nil)
	_ plugin.OnEntryAdded       = (*MetricsExtension)(nil)
	_ plugin.OnServed           = (*MetricsExtension)(nil)
	_ plugin.OnEntryUndone      = (*MetricsExtension)(nil)
	_ plugin.OnTotalReconciled  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records tracker-wide lifecycle metrics.
// Register it as a tracker plugin to count roster and ledger activity.
type MetricsExtension struct {
	factory MetricFactory

	// Roster metrics
	ClassCreated     Counter
	StudentCreated   Counter
	StudentsImported Counter
	StudentsRemoved  Counter
	ImportBatchSize  Histogram

	// Ledger metrics
	EntryAdded        Counter
	MinutesAssigned   Counter
	MinutesCredited   Counter
	EntryDelta        Histogram
	DetentionsServed  Counter
	EntryUndone       Counter
	TotalsReconciled  Counter
	ReconcileDriftAbs Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewPrometheusFactory outside a forge app, app.Metrics() inside one.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Roster metrics
		ClassCreated:     factory.Counter("detention.class.created"),
		StudentCreated:   factory.Counter("detention.student.created"),
		StudentsImported: factory.Counter("detention.students.imported"),
		StudentsRemoved:  factory.Counter("detention.students.removed"),
		ImportBatchSize:  factory.Histogram("detention.import.batch.size"),

		// Ledger metrics
		EntryAdded:        factory.Counter("detention.entry.added"),
		MinutesAssigned:   factory.Counter("detention.minutes.assigned"),
		MinutesCredited:   factory.Counter("detention.minutes.credited"),
		EntryDelta:        factory.Histogram("detention.entry.delta_minutes"),
		DetentionsServed:  factory.Counter("detention.served"),
		EntryUndone:       factory.Counter("detention.entry.undone"),
		TotalsReconciled:  factory.Counter("detention.total.reconciled"),
		ReconcileDriftAbs: factory.Histogram("detention.total.drift_minutes"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Roster hooks
// ──────────────────────────────────────────────────

// OnClassCreated implements plugin.OnClassCreated.
func (m *MetricsExtension) OnClassCreated(_ context.Context, _ *class.Class) error {
	m.ClassCreated.Inc()
	return nil
}

// OnStudentCreated implements plugin.OnStudentCreated.
func (m *MetricsExtension) OnStudentCreated(_ context.Context, _ *student.Student) error {
	m.StudentCreated.Inc()
	return nil
}

// OnStudentsImported implements plugin.OnStudentsImported.
func (m *MetricsExtension) OnStudentsImported(_ context.Context, _ id.ClassID, students []*student.Student, removed int64) error {
	count := float64(len(students))
	m.StudentsImported.Add(count)
	m.ImportBatchSize.Observe(count)
	if removed > 0 {
		m.StudentsRemoved.Add(float64(removed))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnEntryAdded implements plugin.OnEntryAdded.
func (m *MetricsExtension) OnEntryAdded(_ context.Context, e *entry.Entry, _ *student.Student) error {
	m.EntryAdded.Inc()
	m.EntryDelta.Observe(float64(e.DeltaMinutes))
	m.observeMinutes(e.DeltaMinutes)
	return nil
}

// OnServed implements plugin.OnServed.
func (m *MetricsExtension) OnServed(_ context.Context, e *entry.Entry, _ *student.Student) error {
	m.DetentionsServed.Inc()
	m.observeMinutes(e.DeltaMinutes)
	return nil
}

// OnEntryUndone implements plugin.OnEntryUndone. The reversal is counted
// against the opposite direction.
func (m *MetricsExtension) OnEntryUndone(_ context.Context, e *entry.Entry, _ *student.Student) error {
	m.EntryUndone.Inc()
	m.observeMinutes(-e.DeltaMinutes)
	return nil
}

// OnTotalReconciled implements plugin.OnTotalReconciled.
func (m *MetricsExtension) OnTotalReconciled(_ context.Context, _ id.StudentID, before, after int64) error {
	m.TotalsReconciled.Inc()
	drift := after - before
	if drift < 0 {
		drift = -drift
	}
	m.ReconcileDriftAbs.Observe(float64(drift))
	return nil
}

func (m *MetricsExtension) observeMinutes(delta int64) {
	switch {
	case delta > 0:
		m.MinutesAssigned.Add(float64(delta))
	case delta < 0:
		m.MinutesCredited.Add(float64(-delta))
	}
}
