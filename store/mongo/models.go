package mongo

import (
	"time"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
	"github.com/xraph/detention/types"
)

// ==================== Class models ====================

type classModel struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toClassModel(c *class.Class) *classModel {
	return &classModel{
		ID:        c.ID.String(),
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromClassModel(m *classModel) (*class.Class, error) {
	classID, err := id.ParseClassID(m.ID)
	if err != nil {
		return nil, err
	}
	return &class.Class{
		Entity: types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:     classID,
		Name:   m.Name,
	}, nil
}

// ==================== Student models ====================

type studentModel struct {
	ID           string    `bson:"_id"`
	ClassID      string    `bson:"class_id"`
	Name         string    `bson:"name"`
	TotalMinutes int64     `bson:"total_minutes"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toStudentModel(s *student.Student) *studentModel {
	return &studentModel{
		ID:           s.ID.String(),
		ClassID:      s.ClassID.String(),
		Name:         s.Name,
		TotalMinutes: s.TotalMinutes,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func fromStudentModel(m *studentModel) (*student.Student, error) {
	studentID, err := id.ParseStudentID(m.ID)
	if err != nil {
		return nil, err
	}
	classID, err := id.ParseClassID(m.ClassID)
	if err != nil {
		return nil, err
	}
	return &student.Student{
		Entity:       types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:           studentID,
		ClassID:      classID,
		Name:         m.Name,
		TotalMinutes: m.TotalMinutes,
	}, nil
}

// ==================== Entry models ====================

type entryModel struct {
	ID           string    `bson:"_id"`
	StudentID    string    `bson:"student_id"`
	Seq          int64     `bson:"seq"`
	OccurredAt   time.Time `bson:"occurred_at"`
	DeltaMinutes int64     `bson:"delta_minutes"`
	Note         string    `bson:"note"`
	Served45     bool      `bson:"served45"`
}

func toEntryModel(e *entry.Entry) *entryModel {
	return &entryModel{
		ID:           e.ID.String(),
		StudentID:    e.StudentID.String(),
		Seq:          e.Seq,
		OccurredAt:   e.Timestamp.UTC(),
		DeltaMinutes: e.DeltaMinutes,
		Note:         e.Note,
		Served45:     e.Served45,
	}
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	studentID, err := id.ParseStudentID(m.StudentID)
	if err != nil {
		return nil, err
	}
	return &entry.Entry{
		ID:           entryID,
		StudentID:    studentID,
		Timestamp:    m.OccurredAt.UTC(),
		Seq:          m.Seq,
		DeltaMinutes: m.DeltaMinutes,
		Note:         m.Note,
		Served45:     m.Served45,
	}, nil
}
