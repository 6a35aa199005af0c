package sqlstore

import (
	"time"

	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
	"github.com/xraph/detention/types"
)

// Table names shared by every SQL dialect's migrations.
const (
	TableClasses  = "detention_classes"
	TableStudents = "detention_students"
	TableEntries  = "detention_entries"
)

// ==================== Class models ====================

type classModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (classModel) TableName() string { return TableClasses }

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
	ID           string    `gorm:"column:id;primaryKey"`
	ClassID      string    `gorm:"column:class_id"`
	Name         string    `gorm:"column:name"`
	TotalMinutes int64     `gorm:"column:total_minutes"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (studentModel) TableName() string { return TableStudents }

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
	ID           string    `gorm:"column:id;primaryKey"`
	StudentID    string    `gorm:"column:student_id"`
	Seq          int64     `gorm:"column:seq"`
	OccurredAt   time.Time `gorm:"column:occurred_at"`
	DeltaMinutes int64     `gorm:"column:delta_minutes"`
	Note         string    `gorm:"column:note"`
	Served45     bool      `gorm:"column:served45"`
}

func (entryModel) TableName() string { return TableEntries }

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
