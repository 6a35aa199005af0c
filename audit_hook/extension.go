// Package audithook bridges tracker lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/plugin"
	"github.com/xraph/detention/student"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnClassCreated     = (*Extension)(nil)
	_ plugin.OnStudentCreated   = (*Extension)(nil)
	_ plugin.OnStudentsImported = (*Extension)(nil)
	_ plugin.OnEntryAdded       = (*Extension)(nil)
	_ plugin.OnServed           = (*Extension)(nil)
	_ plugin.OnEntryUndone      = (*Extension)(nil)
	_ plugin.OnTotalReconciled  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension records roster and ledger changes to an audit trail.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Roster hooks
// ──────────────────────────────────────────────────

// OnClassCreated implements plugin.OnClassCreated.
func (e *Extension) OnClassCreated(ctx context.Context, c *class.Class) error {
	return e.record(ctx, ActionClassCreated, SeverityInfo, OutcomeSuccess,
		ResourceClass, c.ID.String(), CategoryRoster,
		"name", c.Name,
	)
}

// OnStudentCreated implements plugin.OnStudentCreated.
func (e *Extension) OnStudentCreated(ctx context.Context, s *student.Student) error {
	return e.record(ctx, ActionStudentCreated, SeverityInfo, OutcomeSuccess,
		ResourceStudent, s.ID.String(), CategoryRoster,
		"class_id", s.ClassID.String(),
		"name", s.Name,
	)
}

// OnStudentsImported implements plugin.OnStudentsImported. A replace
// that removed students is audited as a warning since it deletes history.
func (e *Extension) OnStudentsImported(ctx context.Context, classID id.ClassID, students []*student.Student, removed int64) error {
	severity := SeverityInfo
	if removed > 0 {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionStudentsImported, severity, OutcomeSuccess,
		ResourceClass, classID.String(), CategoryRoster,
		"imported", len(students),
		"removed", removed,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnEntryAdded implements plugin.OnEntryAdded.
func (e *Extension) OnEntryAdded(ctx context.Context, en *entry.Entry, s *student.Student) error {
	return e.record(ctx, ActionEntryAdded, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryDiscipline,
		"student_id", s.ID.String(),
		"delta_minutes", en.DeltaMinutes,
		"total_minutes", s.TotalMinutes,
		"note", en.Note,
	)
}

// OnServed implements plugin.OnServed.
func (e *Extension) OnServed(ctx context.Context, en *entry.Entry, s *student.Student) error {
	return e.record(ctx, ActionEntryServed, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryDiscipline,
		"student_id", s.ID.String(),
		"total_minutes", s.TotalMinutes,
	)
}

// OnEntryUndone implements plugin.OnEntryUndone.
func (e *Extension) OnEntryUndone(ctx context.Context, en *entry.Entry, s *student.Student) error {
	return e.record(ctx, ActionEntryUndone, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryDiscipline,
		"student_id", s.ID.String(),
		"delta_minutes", en.DeltaMinutes,
		"served45", en.Served45,
		"total_minutes", s.TotalMinutes,
	)
}

// OnTotalReconciled implements plugin.OnTotalReconciled.
func (e *Extension) OnTotalReconciled(ctx context.Context, studentID id.StudentID, before, after int64) error {
	return e.record(ctx, ActionTotalReconciled, SeverityWarning, OutcomeSuccess,
		ResourceStudent, studentID.String(), CategoryIntegrity,
		"cached_minutes", before,
		"recomputed_minutes", after,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
