package api

import (
	"net/http"

	"github.com/xraph/detention/entry"
	"github.com/xraph/detention/id"
)

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	s, err := h.tracker.GetStudent(r.Context(), studentID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, newStudentView(s))
}

// GetEntries returns the student's history newest first, paged with
// ?limit and ?offset.
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.tracker.GetStudent(ctx, studentID); err != nil {
		h.handleError(w, err)
		return
	}
	entries, err := h.tracker.ListEntries(ctx, studentID, entry.ListOpts{
		Limit:  getIntQueryParam(r, "limit", 0),
		Offset: getIntQueryParam(r, "offset", 0),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

// GetLatestEntry previews what an undo would remove.
func (h *Handler) GetLatestEntry(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	e, err := h.tracker.LatestEntry(r.Context(), studentID)
	h.respondEntry(w, r, studentID, e, err, http.StatusOK)
}

func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}
	var req AddEntryRequest
	if !readJSON(w, r, &req) {
		return
	}

	e, err := h.tracker.AddEntry(r.Context(), studentID, req.DeltaMinutes, req.Note)
	h.respondEntry(w, r, studentID, e, err, http.StatusCreated)
}

func (h *Handler) MarkServed45(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	e, err := h.tracker.MarkServed45(r.Context(), studentID)
	h.respondEntry(w, r, studentID, e, err, http.StatusCreated)
}

func (h *Handler) UndoLastEntry(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	e, err := h.tracker.UndoLastEntry(r.Context(), studentID)
	h.respondEntry(w, r, studentID, e, err, http.StatusOK)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, id.ParseStudentID)
	if !ok {
		return
	}

	ctx := r.Context()
	drift, err := h.tracker.Reconcile(ctx, studentID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	s, err := h.tracker.GetStudent(ctx, studentID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ReconcileResult{DriftMinutes: drift, Student: newStudentView(s)})
}

// respondEntry finishes a ledger mutation by re-reading the student so
// the reply carries the new total.
func (h *Handler) respondEntry(w http.ResponseWriter, r *http.Request, studentID id.StudentID, e *entry.Entry, err error, status int) {
	if err != nil {
		h.handleError(w, err)
		return
	}
	s, err := h.tracker.GetStudent(r.Context(), studentID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeSuccess(w, status, EntryResult{Entry: e, Student: newStudentView(s)})
}
