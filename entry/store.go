package entry

import (
	"context"
	"time"

	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

// Store persists entries. AppendEntry, RemoveLatestEntry and
// ReconcileTotal are the only operations allowed to change a student's
// TotalMinutes, and each does so in the same unit of work as its entry
// mutation.
type Store interface {
	// AppendEntry inserts e and adds e.DeltaMinutes to the owning
	// student's total. The student's UpdatedAt becomes e.Timestamp. It
	// returns the updated student.
	AppendEntry(ctx context.Context, e *Entry) (*student.Student, error)
	// RemoveLatestEntry deletes the student's latest entry in ledger order
	// and subtracts its delta from the total, stamping UpdatedAt with at.
	RemoveLatestEntry(ctx context.Context, studentID id.StudentID, at time.Time) (*Entry, *student.Student, error)
	// ListEntries returns the student's entries, newest first.
	ListEntries(ctx context.Context, studentID id.StudentID, opts ListOpts) ([]*Entry, error)
	LatestEntry(ctx context.Context, studentID id.StudentID) (*Entry, error)
	// ReconcileTotal recomputes the total from the entries and stores it,
	// returning the previous and the recomputed value. UpdatedAt is set to
	// at only when the total changes.
	ReconcileTotal(ctx context.Context, studentID id.StudentID, at time.Time) (before, after int64, err error)
}

// ListOpts bounds ListEntries. A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}
