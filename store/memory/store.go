// Package memory provides an in-process Store backed by maps. Every
// compound operation runs under a single lock, so it is the reference
// implementation for the atomicity contract of store.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/detention"
	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/student"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	closed bool

	classes  map[id.ClassID]*class.Class
	students map[id.StudentID]*student.Student
	// entries holds each student's history in ledger order (oldest first).
	entries map[id.StudentID][]*entry.Entry
}

func New() *Store {
	return &Store{
		classes:  make(map[id.ClassID]*class.Class),
		students: make(map[id.StudentID]*student.Student),
		entries:  make(map[id.StudentID][]*entry.Entry),
	}
}

// ──────────────────────────────────────────────────
// Class Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateClass(_ context.Context, c *class.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return detention.ErrStoreClosed
	}
	if _, exists := s.classes[c.ID]; exists {
		return detention.ErrAlreadyExists
	}
	cp := *c
	s.classes[c.ID] = &cp
	return nil
}

func (s *Store) GetClass(_ context.Context, classID id.ClassID) (*class.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.classes[classID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, detention.ErrClassNotFound
}

func (s *Store) ListClasses(_ context.Context) ([]*class.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*class.Class, 0, len(s.classes))
	for _, c := range s.classes {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// Student Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateStudent(_ context.Context, st *student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInsertLocked(st); err != nil {
		return err
	}
	cp := *st
	s.students[st.ID] = &cp
	return nil
}

func (s *Store) CreateStudents(_ context.Context, students []*student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertStudentsLocked(students)
}

func (s *Store) GetStudent(_ context.Context, studentID id.StudentID) (*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.students[studentID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, detention.ErrStudentNotFound
}

func (s *Store) ListStudents(_ context.Context, classID id.ClassID) ([]*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*student.Student
	for _, st := range s.students {
		if st.ClassID == classID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) DeleteStudentsByClass(_ context.Context, classID id.ClassID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, detention.ErrStoreClosed
	}
	return s.deleteStudentsLocked(classID), nil
}

func (s *Store) ReplaceStudents(_ context.Context, classID id.ClassID, students []*student.Student) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, detention.ErrStoreClosed
	}
	if _, ok := s.classes[classID]; !ok {
		return 0, detention.ErrClassNotFound
	}
	for _, st := range students {
		if st.ClassID != classID {
			return 0, detention.ErrInvalidInput
		}
	}

	// Snapshot so a failed insert leaves the class untouched.
	prevStudents := make(map[id.StudentID]*student.Student, len(s.students))
	for k, v := range s.students {
		prevStudents[k] = v
	}
	prevEntries := make(map[id.StudentID][]*entry.Entry, len(s.entries))
	for k, v := range s.entries {
		prevEntries[k] = v
	}

	removed := s.deleteStudentsLocked(classID)
	if err := s.insertStudentsLocked(students); err != nil {
		s.students, s.entries = prevStudents, prevEntries
		return 0, err
	}
	return removed, nil
}

func (s *Store) checkInsertLocked(st *student.Student) error {
	if s.closed {
		return detention.ErrStoreClosed
	}
	if _, ok := s.classes[st.ClassID]; !ok {
		return detention.ErrClassNotFound
	}
	if _, exists := s.students[st.ID]; exists {
		return detention.ErrAlreadyExists
	}
	return nil
}

func (s *Store) insertStudentsLocked(students []*student.Student) error {
	seen := make(map[id.StudentID]struct{}, len(students))
	for _, st := range students {
		if err := s.checkInsertLocked(st); err != nil {
			return err
		}
		if _, dup := seen[st.ID]; dup {
			return detention.ErrAlreadyExists
		}
		seen[st.ID] = struct{}{}
	}
	for _, st := range students {
		cp := *st
		s.students[st.ID] = &cp
	}
	return nil
}

func (s *Store) deleteStudentsLocked(classID id.ClassID) int64 {
	var removed int64
	for sid, st := range s.students {
		if st.ClassID == classID {
			delete(s.students, sid)
			delete(s.entries, sid)
			removed++
		}
	}
	return removed
}

// ──────────────────────────────────────────────────
// Entry Store implementation
// ──────────────────────────────────────────────────

func (s *Store) AppendEntry(_ context.Context, e *entry.Entry) (*student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, detention.ErrStoreClosed
	}
	st, ok := s.students[e.StudentID]
	if !ok {
		return nil, detention.ErrStudentNotFound
	}

	cp := *e
	history := append(s.entries[e.StudentID], &cp)
	// Keep ledger order even if a caller appends an older timestamp.
	sort.SliceStable(history, func(i, j int) bool { return history[i].Before(history[j]) })
	s.entries[e.StudentID] = history

	st.TotalMinutes += e.DeltaMinutes
	st.TouchAt(e.Timestamp)

	out := *st
	return &out, nil
}

func (s *Store) RemoveLatestEntry(_ context.Context, studentID id.StudentID, at time.Time) (*entry.Entry, *student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, detention.ErrStoreClosed
	}
	st, ok := s.students[studentID]
	if !ok {
		return nil, nil, detention.ErrStudentNotFound
	}
	history := s.entries[studentID]
	if len(history) == 0 {
		return nil, nil, detention.ErrNoEntries
	}

	last := history[len(history)-1]
	s.entries[studentID] = history[:len(history)-1]

	st.TotalMinutes -= last.DeltaMinutes
	st.TouchAt(at)

	removed, out := *last, *st
	return &removed, &out, nil
}

func (s *Store) ListEntries(_ context.Context, studentID id.StudentID, opts entry.ListOpts) ([]*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.entries[studentID]
	out := make([]*entry.Entry, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		cp := *history[i]
		out = append(out, &cp)
	}
	return paginate(out, opts), nil
}

func (s *Store) LatestEntry(_ context.Context, studentID id.StudentID) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.entries[studentID]
	if len(history) == 0 {
		return nil, detention.ErrNoEntries
	}
	cp := *history[len(history)-1]
	return &cp, nil
}

func (s *Store) ReconcileTotal(_ context.Context, studentID id.StudentID, at time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0, detention.ErrStoreClosed
	}
	st, ok := s.students[studentID]
	if !ok {
		return 0, 0, detention.ErrStudentNotFound
	}

	var sum int64
	for _, e := range s.entries[studentID] {
		sum += e.DeltaMinutes
	}
	before := st.TotalMinutes
	if before != sum {
		st.TotalMinutes = sum
		st.TouchAt(at)
	}
	return before, sum, nil
}

// ──────────────────────────────────────────────────
// Test hooks
// ──────────────────────────────────────────────────

// SetTotalForTest overwrites a cached total without touching entries.
// It exists so reconciliation can be exercised against real drift.
func (s *Store) SetTotalForTest(studentID id.StudentID, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.students[studentID]; ok {
		st.TotalMinutes = total
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return detention.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate(entries []*entry.Entry, opts entry.ListOpts) []*entry.Entry {
	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []*entry.Entry{}
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries
}
