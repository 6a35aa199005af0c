// Package sqlstore implements the dialect-independent part of the SQL
// backends on top of gorm. The sqlite and postgres packages wrap it and
// supply their own connection setup and schema migrations.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xraph/detention"
	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

// Store implements every store.Store method except Migrate.
type Store struct {
	db      *gorm.DB
	backend string
}

// New wraps db. backend prefixes error messages ("sqlite", "postgres").
func New(db *gorm.DB, backend string) *Store {
	return &Store{db: db, backend: backend}
}

// GormConfig returns the gorm configuration used by the SQL backends.
// SQL statement logging is off unless logSQL is set.
func GormConfig(logSQL bool) *gorm.Config {
	gormLogger := logger.Default
	if !logSQL {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}
	return &gorm.Config{
		Logger:  gormLogger,
		NowFunc: now,
	}
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.errorf("ping", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.errorf("close", err)
	}
	return sqlDB.Close()
}

// ==================== Class Store ====================

func (s *Store) CreateClass(ctx context.Context, c *class.Class) error {
	if err := s.db.WithContext(ctx).Create(toClassModel(c)).Error; err != nil {
		return s.errorf("create class", err)
	}
	return nil
}

func (s *Store) GetClass(ctx context.Context, classID id.ClassID) (*class.Class, error) {
	m := new(classModel)
	if err := s.db.WithContext(ctx).First(m, "id = ?", classID.String()).Error; err != nil {
		if isNoRows(err) {
			return nil, detention.ErrClassNotFound
		}
		return nil, s.errorf("get class", err)
	}
	return fromClassModel(m)
}

func (s *Store) ListClasses(ctx context.Context) ([]*class.Class, error) {
	var models []classModel
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&models).Error; err != nil {
		return nil, s.errorf("list classes", err)
	}

	result := make([]*class.Class, len(models))
	for i := range models {
		c, err := fromClassModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Student Store ====================

func (s *Store) CreateStudent(ctx context.Context, st *student.Student) error {
	return s.CreateStudents(ctx, []*student.Student{st})
}

func (s *Store) CreateStudents(ctx context.Context, students []*student.Student) error {
	if len(students) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertStudents(tx, students)
	})
	if err != nil && !isSentinel(err) {
		return s.errorf("create students", err)
	}
	return err
}

func (s *Store) GetStudent(ctx context.Context, studentID id.StudentID) (*student.Student, error) {
	return s.getStudent(s.db.WithContext(ctx), studentID)
}

func (s *Store) getStudent(db *gorm.DB, studentID id.StudentID) (*student.Student, error) {
	m := new(studentModel)
	if err := db.First(m, "id = ?", studentID.String()).Error; err != nil {
		if isNoRows(err) {
			return nil, detention.ErrStudentNotFound
		}
		return nil, s.errorf("get student", err)
	}
	return fromStudentModel(m)
}

func (s *Store) ListStudents(ctx context.Context, classID id.ClassID) ([]*student.Student, error) {
	var models []studentModel
	err := s.db.WithContext(ctx).
		Where("class_id = ?", classID.String()).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, s.errorf("list students", err)
	}

	result := make([]*student.Student, len(models))
	for i := range models {
		st, err := fromStudentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func (s *Store) DeleteStudentsByClass(ctx context.Context, classID id.ClassID) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = deleteStudents(tx, classID)
		return err
	})
	if err != nil {
		return 0, s.errorf("delete students", err)
	}
	return removed, nil
}

func (s *Store) ReplaceStudents(ctx context.Context, classID id.ClassID, students []*student.Student) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireClass(tx, classID); err != nil {
			return err
		}
		for _, st := range students {
			if st.ClassID != classID {
				return detention.ErrInvalidInput
			}
		}

		var err error
		if removed, err = deleteStudents(tx, classID); err != nil {
			return err
		}
		return insertStudents(tx, students)
	})
	if err != nil {
		if isSentinel(err) {
			return 0, err
		}
		return 0, s.errorf("replace students", err)
	}
	return removed, nil
}

func insertStudents(tx *gorm.DB, students []*student.Student) error {
	checked := make(map[id.ClassID]struct{})
	models := make([]*studentModel, len(students))
	for i, st := range students {
		if _, ok := checked[st.ClassID]; !ok {
			if err := requireClass(tx, st.ClassID); err != nil {
				return err
			}
			checked[st.ClassID] = struct{}{}
		}
		models[i] = toStudentModel(st)
	}
	return tx.CreateInBatches(models, 100).Error
}

// deleteStudents removes the class's entries first, then its students.
func deleteStudents(tx *gorm.DB, classID id.ClassID) (int64, error) {
	owned := tx.Model(&studentModel{}).Select("id").Where("class_id = ?", classID.String())
	if err := tx.Where("student_id IN (?)", owned).Delete(&entryModel{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("class_id = ?", classID.String()).Delete(&studentModel{})
	return res.RowsAffected, res.Error
}

func requireClass(tx *gorm.DB, classID id.ClassID) error {
	var n int64
	if err := tx.Model(&classModel{}).Where("id = ?", classID.String()).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return detention.ErrClassNotFound
	}
	return nil
}

// ==================== Entry Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *entry.Entry) (*student.Student, error) {
	var out *student.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The total update comes first so the student row is locked
		// before the entry lands.
		res := tx.Model(&studentModel{}).
			Where("id = ?", e.StudentID.String()).
			Updates(map[string]any{
				"total_minutes": gorm.Expr("total_minutes + ?", e.DeltaMinutes),
				"updated_at":    e.Timestamp,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return detention.ErrStudentNotFound
		}
		if err := tx.Create(toEntryModel(e)).Error; err != nil {
			return err
		}

		var err error
		out, err = s.getStudent(tx, e.StudentID)
		return err
	})
	if err != nil {
		if isSentinel(err) {
			return nil, err
		}
		return nil, s.errorf("append entry", err)
	}
	return out, nil
}

func (s *Store) RemoveLatestEntry(ctx context.Context, studentID id.StudentID, at time.Time) (*entry.Entry, *student.Student, error) {
	var (
		removed *entry.Entry
		out     *student.Student
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStudent(tx, studentID); err != nil {
			return err
		}

		m := new(entryModel)
		err := tx.Where("student_id = ?", studentID.String()).
			Order("occurred_at DESC, seq DESC").
			First(m).Error
		if err != nil {
			if isNoRows(err) {
				return detention.ErrNoEntries
			}
			return err
		}
		if err := tx.Delete(&entryModel{}, "id = ?", m.ID).Error; err != nil {
			return err
		}
		err = tx.Model(&studentModel{}).
			Where("id = ?", studentID.String()).
			Updates(map[string]any{
				"total_minutes": gorm.Expr("total_minutes - ?", m.DeltaMinutes),
				"updated_at":    at,
			}).Error
		if err != nil {
			return err
		}

		if removed, err = fromEntryModel(m); err != nil {
			return err
		}
		out, err = s.getStudent(tx, studentID)
		return err
	})
	if err != nil {
		if isSentinel(err) {
			return nil, nil, err
		}
		return nil, nil, s.errorf("remove latest entry", err)
	}
	return removed, out, nil
}

func (s *Store) ListEntries(ctx context.Context, studentID id.StudentID, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.db.WithContext(ctx).
		Where("student_id = ?", studentID.String()).
		Order("occurred_at DESC, seq DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, s.errorf("list entries", err)
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) LatestEntry(ctx context.Context, studentID id.StudentID) (*entry.Entry, error) {
	m := new(entryModel)
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID.String()).
		Order("occurred_at DESC, seq DESC").
		First(m).Error
	if err != nil {
		if isNoRows(err) {
			return nil, detention.ErrNoEntries
		}
		return nil, s.errorf("latest entry", err)
	}
	return fromEntryModel(m)
}

func (s *Store) ReconcileTotal(ctx context.Context, studentID id.StudentID, at time.Time) (int64, int64, error) {
	var before, after int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStudent(tx, studentID); err != nil {
			return err
		}
		st, err := s.getStudent(tx, studentID)
		if err != nil {
			return err
		}
		before = st.TotalMinutes

		var deltas []int64
		err = tx.Model(&entryModel{}).
			Where("student_id = ?", studentID.String()).
			Pluck("delta_minutes", &deltas).Error
		if err != nil {
			return err
		}
		for _, d := range deltas {
			after += d
		}

		if after == before {
			return nil
		}
		return tx.Model(&studentModel{}).
			Where("id = ?", studentID.String()).
			Updates(map[string]any{
				"total_minutes": after,
				"updated_at":    at,
			}).Error
	})
	if err != nil {
		if isSentinel(err) {
			return 0, 0, err
		}
		return 0, 0, s.errorf("reconcile total", err)
	}
	return before, after, nil
}

// lockStudent takes the student's row lock with a no-op write so that
// the rest of the transaction sees a stable total.
func lockStudent(tx *gorm.DB, studentID id.StudentID) error {
	res := tx.Model(&studentModel{}).
		Where("id = ?", studentID.String()).
		UpdateColumn("total_minutes", gorm.Expr("total_minutes"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return detention.ErrStudentNotFound
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) errorf(op string, err error) error {
	return fmt.Errorf("detention/%s: %s: %w", s.backend, op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isSentinel(err error) bool {
	return detention.IsNotFound(err) ||
		errors.Is(err, detention.ErrNoEntries) ||
		errors.Is(err, detention.ErrInvalidInput)
}
