// Package storetest holds the behaviour every store.Store backend must
// satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/detention"
	"github.com/xraph/detention/class"
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
	"github.com/xraph/detention/store"
	"github.com/xraph/detention/student"
	"github.com/xraph/detention/types"
)

// Factory returns a fresh, migrated store. It should register cleanup
// with t.Cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"ClassesOrderedByName", testClassesOrderedByName},
		{"GetMissing", testGetMissing},
		{"StudentRequiresClass", testStudentRequiresClass},
		{"AppendMaintainsTotal", testAppendMaintainsTotal},
		{"AppendUnknownStudent", testAppendUnknownStudent},
		{"MutationsStampUpdatedAt", testMutationsStampUpdatedAt},
		{"RemoveLatestUsesSeqTieBreak", testRemoveLatestTieBreak},
		{"RemoveLatestEmpty", testRemoveLatestEmpty},
		{"ListEntriesNewestFirst", testListEntriesNewestFirst},
		{"DeleteStudentsCascades", testDeleteStudentsCascades},
		{"ReplaceStudents", testReplaceStudents},
		{"ReplaceStudentsUnknownClass", testReplaceStudentsUnknownClass},
		{"ReconcileTotal", testReconcileTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func mustClass(t *testing.T, s store.Store, name string) *class.Class {
	t.Helper()
	c := &class.Class{Entity: types.NewEntityAt(base), ID: id.NewClassID(), Name: name}
	if err := s.CreateClass(context.Background(), c); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	return c
}

func newStudent(classID id.ClassID, name string) *student.Student {
	return &student.Student{Entity: types.NewEntityAt(base), ID: id.NewStudentID(), ClassID: classID, Name: name}
}

func mustStudent(t *testing.T, s store.Store, classID id.ClassID, name string) *student.Student {
	t.Helper()
	st := newStudent(classID, name)
	if err := s.CreateStudent(context.Background(), st); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	return st
}

func newEntry(studentID id.StudentID, at time.Time, seq, delta int64) *entry.Entry {
	return &entry.Entry{
		ID:           id.NewEntryID(),
		StudentID:    studentID,
		Timestamp:    at,
		Seq:          seq,
		DeltaMinutes: delta,
		Note:         "note",
	}
}

func mustAppend(t *testing.T, s store.Store, e *entry.Entry) *student.Student {
	t.Helper()
	st, err := s.AppendEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	return st
}

func total(t *testing.T, s store.Store, studentID id.StudentID) int64 {
	t.Helper()
	st, err := s.GetStudent(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	return st.TotalMinutes
}

func testClassesOrderedByName(t *testing.T, s store.Store) {
	for _, n := range []string{"Period 3", "Algebra", "Music"} {
		mustClass(t, s, n)
	}

	classes, err := s.ListClasses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Algebra", "Music", "Period 3"}
	if len(classes) != len(want) {
		t.Fatalf("expected %d classes, got %d", len(want), len(classes))
	}
	for i, c := range classes {
		if c.Name != want[i] {
			t.Errorf("class %d = %q, want %q", i, c.Name, want[i])
		}
	}
}

func testGetMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.GetClass(ctx, id.NewClassID()); !errors.Is(err, detention.ErrClassNotFound) {
		t.Errorf("GetClass: expected ErrClassNotFound, got %v", err)
	}
	if _, err := s.GetStudent(ctx, id.NewStudentID()); !errors.Is(err, detention.ErrStudentNotFound) {
		t.Errorf("GetStudent: expected ErrStudentNotFound, got %v", err)
	}
	if _, err := s.LatestEntry(ctx, id.NewStudentID()); !errors.Is(err, detention.ErrNoEntries) {
		t.Errorf("LatestEntry: expected ErrNoEntries, got %v", err)
	}
}

func testStudentRequiresClass(t *testing.T, s store.Store) {
	err := s.CreateStudent(context.Background(), newStudent(id.NewClassID(), "Orphan"))
	if !errors.Is(err, detention.ErrClassNotFound) {
		t.Errorf("expected ErrClassNotFound, got %v", err)
	}
}

func testAppendMaintainsTotal(t *testing.T, s store.Store) {
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")

	var sum int64
	for i, d := range []int64{5, 10, -45, 30, 7} {
		sum += d
		updated := mustAppend(t, s, newEntry(st.ID, base.Add(time.Duration(i)*time.Second), int64(i+1), d))
		if updated.TotalMinutes != sum {
			t.Fatalf("after delta %d: returned total %d, want %d", d, updated.TotalMinutes, sum)
		}
	}
	if got := total(t, s, st.ID); got != sum {
		t.Errorf("stored total %d, want %d", got, sum)
	}
}

func testAppendUnknownStudent(t *testing.T, s store.Store) {
	ghost := id.NewStudentID()
	_, err := s.AppendEntry(context.Background(), newEntry(ghost, base, 1, 5))
	if !errors.Is(err, detention.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	entries, err := s.ListEntries(context.Background(), ghost, entry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries written, got %d", len(entries))
	}
}

func updatedAt(t *testing.T, s store.Store, studentID id.StudentID) time.Time {
	t.Helper()
	st, err := s.GetStudent(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	return st.UpdatedAt
}

func testMutationsStampUpdatedAt(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")

	appended := base.Add(time.Hour)
	got := mustAppend(t, s, newEntry(st.ID, appended, 1, 10))
	if !got.UpdatedAt.Equal(appended) {
		t.Errorf("append returned UpdatedAt %s, want %s", got.UpdatedAt, appended)
	}
	if at := updatedAt(t, s, st.ID); !at.Equal(appended) {
		t.Errorf("after append UpdatedAt = %s, want %s", at, appended)
	}

	// A consistent total is left untouched by reconcile.
	if _, _, err := s.ReconcileTotal(ctx, st.ID, base.Add(2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if at := updatedAt(t, s, st.ID); !at.Equal(appended) {
		t.Errorf("after no-op reconcile UpdatedAt = %s, want %s", at, appended)
	}

	undone := base.Add(3 * time.Hour)
	_, got, err := s.RemoveLatestEntry(ctx, st.ID, undone)
	if err != nil {
		t.Fatal(err)
	}
	if !got.UpdatedAt.Equal(undone) {
		t.Errorf("undo returned UpdatedAt %s, want %s", got.UpdatedAt, undone)
	}
	if at := updatedAt(t, s, st.ID); !at.Equal(undone) {
		t.Errorf("after undo UpdatedAt = %s, want %s", at, undone)
	}
	if at := updatedAt(t, s, st.ID); at.Before(st.CreatedAt) {
		t.Errorf("UpdatedAt %s precedes CreatedAt %s", at, st.CreatedAt)
	}
}

func testRemoveLatestTieBreak(t *testing.T, s store.Store) {
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")

	// Same timestamp: the higher seq is the latest, regardless of insert order.
	mustAppend(t, s, newEntry(st.ID, base, 20, 10))
	mustAppend(t, s, newEntry(st.ID, base, 10, 3))

	removed, updated, err := s.RemoveLatestEntry(context.Background(), st.ID, base)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Seq != 20 || removed.DeltaMinutes != 10 {
		t.Errorf("removed seq=%d delta=%d, want seq=20 delta=10", removed.Seq, removed.DeltaMinutes)
	}
	if updated.TotalMinutes != 3 {
		t.Errorf("total after undo = %d, want 3", updated.TotalMinutes)
	}
	if got := total(t, s, st.ID); got != 3 {
		t.Errorf("stored total %d, want 3", got)
	}
}

func testRemoveLatestEmpty(t *testing.T, s store.Store) {
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")

	if _, _, err := s.RemoveLatestEntry(context.Background(), st.ID, base); !errors.Is(err, detention.ErrNoEntries) {
		t.Errorf("expected ErrNoEntries, got %v", err)
	}
	if _, _, err := s.RemoveLatestEntry(context.Background(), id.NewStudentID(), base); !errors.Is(err, detention.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func testListEntriesNewestFirst(t *testing.T, s store.Store) {
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")

	mustAppend(t, s, newEntry(st.ID, base.Add(2*time.Minute), 3, 3))
	mustAppend(t, s, newEntry(st.ID, base, 1, 1))
	mustAppend(t, s, newEntry(st.ID, base.Add(time.Minute), 2, 2))
	served := newEntry(st.ID, base.Add(3*time.Minute), 4, -45)
	served.Served45 = true
	mustAppend(t, s, served)

	entries, err := s.ListEntries(context.Background(), st.ID, entry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{-45, 3, 2, 1}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.DeltaMinutes != want[i] {
			t.Errorf("entry %d delta = %d, want %d", i, e.DeltaMinutes, want[i])
		}
	}
	if !entries[0].Served45 || entries[1].Served45 {
		t.Error("served45 flag not persisted correctly")
	}
	if !entries[0].Timestamp.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("timestamp = %s, want %s", entries[0].Timestamp, base.Add(3*time.Minute))
	}

	page, err := s.ListEntries(context.Background(), st.ID, entry.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].DeltaMinutes != 3 || page[1].DeltaMinutes != 2 {
		t.Errorf("unexpected page: %+v", page)
	}

	latest, err := s.LatestEntry(context.Background(), st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != served.ID {
		t.Errorf("latest = %s, want %s", latest.ID, served.ID)
	}
}

func testDeleteStudentsCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustClass(t, s, "A")
	b := mustClass(t, s, "B")
	s1 := mustStudent(t, s, a.ID, "Ana")
	mustStudent(t, s, a.ID, "Ben")
	keep := mustStudent(t, s, b.ID, "Cara")
	mustAppend(t, s, newEntry(s1.ID, base, 1, 5))
	mustAppend(t, s, newEntry(keep.ID, base, 2, 7))

	n, err := s.DeleteStudentsByClass(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}

	left, err := s.ListStudents(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("expected class A empty, got %d", len(left))
	}
	orphans, err := s.ListEntries(ctx, s1.ID, entry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("expected entries of removed student to be deleted, got %d", len(orphans))
	}
	if got := total(t, s, keep.ID); got != 7 {
		t.Errorf("other class disturbed: total %d, want 7", got)
	}
}

func testReplaceStudents(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := mustClass(t, s, "A")
	old := mustStudent(t, s, c.ID, "Old")
	mustAppend(t, s, newEntry(old.ID, base, 1, 50))

	fresh := []*student.Student{newStudent(c.ID, "Ana"), newStudent(c.ID, "Ben"), newStudent(c.ID, "Cara")}
	removed, err := s.ReplaceStudents(ctx, c.ID, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}

	got, err := s.ListStudents(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 students, got %d", len(got))
	}
	for _, st := range got {
		if st.TotalMinutes != 0 {
			t.Errorf("%s total = %d, want 0", st.Name, st.TotalMinutes)
		}
		if st.Name == "Old" {
			t.Error("old student survived replace")
		}
	}
}

func testReplaceStudentsUnknownClass(t *testing.T, s store.Store) {
	classID := id.NewClassID()
	_, err := s.ReplaceStudents(context.Background(), classID, []*student.Student{newStudent(classID, "Ana")})
	if !errors.Is(err, detention.ErrClassNotFound) {
		t.Errorf("expected ErrClassNotFound, got %v", err)
	}
}

func testReconcileTotal(t *testing.T, s store.Store) {
	c := mustClass(t, s, "A")
	st := mustStudent(t, s, c.ID, "Ana")
	mustAppend(t, s, newEntry(st.ID, base, 1, 20))
	mustAppend(t, s, newEntry(st.ID, base.Add(time.Second), 2, 25))

	before, after, err := s.ReconcileTotal(context.Background(), st.ID, base)
	if err != nil {
		t.Fatal(err)
	}
	if before != 45 || after != 45 {
		t.Errorf("reconcile of consistent total: before=%d after=%d, want 45/45", before, after)
	}

	if _, _, err := s.ReconcileTotal(context.Background(), id.NewStudentID(), base); !errors.Is(err, detention.ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}
