package navigation_test

import (
	"errors"
	"testing"

	"github.com/xraph/detention/id"
	"github.com/xraph/detention/navigation"
)

func TestForwardAndBack(t *testing.T) {
	classID := id.NewClassID()
	studentID := id.NewStudentID()

	s := navigation.Start()
	if s.Screen != navigation.Home {
		t.Fatalf("start screen = %s", s.Screen)
	}

	s, err := s.SelectClass(classID)
	if err != nil {
		t.Fatal(err)
	}
	s, err = s.SelectStudent(studentID)
	if err != nil {
		t.Fatal(err)
	}
	if s.Screen != navigation.StudentDetail || s.ClassID != classID || s.StudentID != studentID {
		t.Fatalf("unexpected state: %+v", s)
	}

	s, err = s.Back()
	if err != nil {
		t.Fatal(err)
	}
	if s.Screen != navigation.ClassView || s.ClassID != classID || !s.StudentID.IsNil() {
		t.Fatalf("back from student: %+v", s)
	}

	s, err = s.Back()
	if err != nil {
		t.Fatal(err)
	}
	if s != navigation.Start() {
		t.Fatalf("back from class: %+v", s)
	}
}

func TestInvalidTransitions(t *testing.T) {
	classView, _ := navigation.Start().SelectClass(id.NewClassID())
	detail, _ := classView.SelectStudent(id.NewStudentID())

	tests := []struct {
		name string
		run  func() (navigation.State, error)
		from navigation.State
	}{
		{"back from home", navigation.Start().Back, navigation.Start()},
		{"student from home", func() (navigation.State, error) {
			return navigation.Start().SelectStudent(id.NewStudentID())
		}, navigation.Start()},
		{"class from class view", func() (navigation.State, error) {
			return classView.SelectClass(id.NewClassID())
		}, classView},
		{"class from detail", func() (navigation.State, error) {
			return detail.SelectClass(id.NewClassID())
		}, detail},
		{"nil class", func() (navigation.State, error) {
			return navigation.Start().SelectClass(id.Nil)
		}, navigation.Start()},
		{"nil student", func() (navigation.State, error) {
			return classView.SelectStudent(id.Nil)
		}, classView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if !errors.Is(err, navigation.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if got != tt.from {
				t.Errorf("state changed on invalid transition: %+v", got)
			}
		})
	}
}

func TestHomeFromAnywhere(t *testing.T) {
	classView, _ := navigation.Start().SelectClass(id.NewClassID())
	detail, _ := classView.SelectStudent(id.NewStudentID())

	for _, s := range []navigation.State{navigation.Start(), classView, detail} {
		if got := s.Home(); got.Screen != navigation.Home || !got.ClassID.IsNil() {
			t.Errorf("Home() from %s = %+v", s.Screen, got)
		}
	}
}
