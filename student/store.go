package student

import (
	"context"

	"github.com/xraph/detention/id"
)

// Store persists students. Totals are never written through this
// interface; see entry.Store.
type Store interface {
	CreateStudent(ctx context.Context, s *Student) error
	// CreateStudents inserts all students in one unit of work.
	CreateStudents(ctx context.Context, students []*Student) error
	GetStudent(ctx context.Context, studentID id.StudentID) (*Student, error)
	ListStudents(ctx context.Context, classID id.ClassID) ([]*Student, error)
	// DeleteStudentsByClass removes every student of the class together
	// with their entries and reports how many students were removed.
	DeleteStudentsByClass(ctx context.Context, classID id.ClassID) (int64, error)
	// ReplaceStudents atomically performs DeleteStudentsByClass followed
	// by CreateStudents.
	ReplaceStudents(ctx context.Context, classID id.ClassID, students []*Student) (int64, error)
}
