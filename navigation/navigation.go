// Package navigation models which roster view a presentation layer is
// showing. It is a small finite state machine over three screens and has
// no dependency on the tracker or any store.
package navigation

import (
	"errors"
	"fmt"

	"github.com/xraph/detention/id"
)

// Screen is one of the presentation views.
type Screen int

const (
	Home          Screen = iota // list of classes
	ClassView                   // students of one class
	StudentDetail               // one student's history
)

func (s Screen) String() string {
	switch s {
	case Home:
		return "home"
	case ClassView:
		return "class"
	case StudentDetail:
		return "student"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a transition is not allowed from
// the current screen.
var ErrInvalidTransition = errors.New("navigation: invalid transition")

// State is an immutable navigation position. The zero value is Home.
// ClassID is set on ClassView and StudentDetail; StudentID only on
// StudentDetail.
type State struct {
	Screen    Screen       `json:"screen"`
	ClassID   id.ClassID   `json:"class_id,omitempty"`
	StudentID id.StudentID `json:"student_id,omitempty"`
}

// Start returns the initial state.
func Start() State { return State{Screen: Home} }

// SelectClass opens a class from the home screen.
func (s State) SelectClass(classID id.ClassID) (State, error) {
	if s.Screen != Home {
		return s, invalid(s.Screen, "select class")
	}
	if classID.IsNil() {
		return s, fmt.Errorf("%w: class id is required", ErrInvalidTransition)
	}
	return State{Screen: ClassView, ClassID: classID}, nil
}

// SelectStudent opens a student of the current class.
func (s State) SelectStudent(studentID id.StudentID) (State, error) {
	if s.Screen != ClassView {
		return s, invalid(s.Screen, "select student")
	}
	if studentID.IsNil() {
		return s, fmt.Errorf("%w: student id is required", ErrInvalidTransition)
	}
	return State{Screen: StudentDetail, ClassID: s.ClassID, StudentID: studentID}, nil
}

// Back returns to the parent screen. Home has no parent.
func (s State) Back() (State, error) {
	switch s.Screen {
	case StudentDetail:
		return State{Screen: ClassView, ClassID: s.ClassID}, nil
	case ClassView:
		return Start(), nil
	default:
		return s, invalid(s.Screen, "back")
	}
}

// Home jumps to the home screen from anywhere.
func (s State) Home() State { return Start() }

func invalid(from Screen, action string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}
