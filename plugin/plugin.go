// Package plugin provides the hook system for the detention tracker.
// Plugins implement Plugin plus any of the hook interfaces below; the
// Registry discovers the hooks at registration time.
package plugin

import (
	"context"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the tracker starts. tracker is the
// *detention.Tracker.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, tracker any) error
}

// OnShutdown is called when the tracker stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Roster hooks
// ──────────────────────────────────────────────────

// OnClassCreated is called after a class is created.
type OnClassCreated interface {
	Plugin
	OnClassCreated(ctx context.Context, c *class.Class) error
}

// OnStudentCreated is called after a single student is added.
type OnStudentCreated interface {
	Plugin
	OnStudentCreated(ctx context.Context, s *student.Student) error
}

// OnStudentsImported is called after a bulk import. removed is the number
// of students cleared first (zero for a plain import).
type OnStudentsImported interface {
	Plugin
	OnStudentsImported(ctx context.Context, classID id.ClassID, students []*student.Student, removed int64) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnEntryAdded is called after an adjustment is recorded. s carries the
// updated total.
type OnEntryAdded interface {
	Plugin
	OnEntryAdded(ctx context.Context, e *entry.Entry, s *student.Student) error
}

// OnServed is called after a 45-minute block is discharged.
type OnServed interface {
	Plugin
	OnServed(ctx context.Context, e *entry.Entry, s *student.Student) error
}

// OnEntryUndone is called after the latest entry is removed.
type OnEntryUndone interface {
	Plugin
	OnEntryUndone(ctx context.Context, e *entry.Entry, s *student.Student) error
}

// OnTotalReconciled is called when a cached total was found to differ
// from its entries and was repaired.
type OnTotalReconciled interface {
	Plugin
	OnTotalReconciled(ctx context.Context, studentID id.StudentID, before, after int64) error
}
