package api

import (
	"net/http"

	"github.com/xraph/detention/id"
	"github.com/xraph/detention/student"
)

func (h *Handler) GetClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.tracker.GetClasses(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, classes)
}

func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if !readJSON(w, r, &req) {
		return
	}

	c, err := h.tracker.CreateClass(r.Context(), req.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, c)
}

func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, id.ParseClassID)
	if !ok {
		return
	}

	c, err := h.tracker.GetClass(r.Context(), classID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

// GetStudentsByClass lists a class roster sorted by total, highest first
// unless ?sort=asc.
func (h *Handler) GetStudentsByClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, id.ParseClassID)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.tracker.GetClass(ctx, classID); err != nil {
		h.handleError(w, err)
		return
	}
	students, err := h.tracker.GetStudentsByClass(ctx, classID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	student.SortByTotal(students, student.ParseOrder(r.URL.Query().Get("sort")))
	writeSuccess(w, http.StatusOK, newStudentViews(students))
}

func (h *Handler) AddStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, id.ParseClassID)
	if !ok {
		return
	}
	var req AddStudentsRequest
	if !readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if len(req.Names) == 0 {
		s, err := h.tracker.AddStudent(ctx, classID, req.Name)
		if err != nil {
			h.handleError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, newStudentView(s))
		return
	}

	names := req.Names
	if req.Name != "" {
		names = append(names, req.Name)
	}
	students, err := h.tracker.ImportStudents(ctx, classID, names)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, newStudentViews(students))
}

func (h *Handler) ReplaceStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, id.ParseClassID)
	if !ok {
		return
	}
	var req ReplaceStudentsRequest
	if !readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	var (
		students []*student.Student
		err      error
	)
	if len(req.Names) > 0 {
		students, err = h.tracker.ReplaceStudents(ctx, classID, req.Names)
	} else {
		students, err = h.tracker.ImportRoster(ctx, classID, req.Text)
	}
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info().
		Str("class_id", classID.String()).
		Int("count", len(students)).
		Msg("Class roster replaced")
	writeSuccess(w, http.StatusOK, newStudentViews(students))
}

func (h *Handler) ClearStudents(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, id.ParseClassID)
	if !ok {
		return
	}

	n, err := h.tracker.ClearStudentsFromClass(r.Context(), classID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"removed": n})
}
