package api

import (
	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/student"
	"github.com/xraph/detention/types"
)

// Response is the envelope for every JSON reply.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CreateClassRequest struct {
	Name string `json:"name"`
}

// AddStudentsRequest adds one student by Name, or many by Names.
type AddStudentsRequest struct {
	Name  string   `json:"name,omitempty"`
	Names []string `json:"names,omitempty"`
}

// ReplaceStudentsRequest replaces a roster from Names, or from pasted
// comma or newline separated Text.
type ReplaceStudentsRequest struct {
	Names []string `json:"names,omitempty"`
	Text  string   `json:"text,omitempty"`
}

type AddEntryRequest struct {
	DeltaMinutes int64  `json:"delta_minutes"`
	Note         string `json:"note"`
}

// StudentView is a student with its derived standing.
type StudentView struct {
	*student.Student
	Standing types.Standing `json:"standing"`
}

func newStudentView(s *student.Student) StudentView {
	return StudentView{Student: s, Standing: s.Standing()}
}

func newStudentViews(students []*student.Student) []StudentView {
	out := make([]StudentView, 0, len(students))
	for _, s := range students {
		out = append(out, newStudentView(s))
	}
	return out
}

// EntryResult pairs a written or removed entry with the student's
// updated standing. Entry is nil when an undo had nothing to remove.
type EntryResult struct {
	Entry   *entry.Entry `json:"entry"`
	Student StudentView  `json:"student"`
}

type ReconcileResult struct {
	DriftMinutes int64       `json:"drift_minutes"`
	Student      StudentView `json:"student"`
}
