// Package api exposes the detention tracker over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/xraph/detention"
	"github.com/xraph/detention/id"
)

// Handler serves the tracker's operations.
type Handler struct {
	tracker *detention.Tracker
	logger  zerolog.Logger
}

func NewHandler(tracker *detention.Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/classes", func(r chi.Router) {
			r.Get("/", h.GetClasses)
			r.Post("/", h.CreateClass)
			r.Get("/{id}", h.GetClass)
			r.Get("/{id}/students", h.GetStudentsByClass)
			r.Post("/{id}/students", h.AddStudents)
			r.Put("/{id}/students", h.ReplaceStudents)
			r.Delete("/{id}/students", h.ClearStudents)
		})

		api.Route("/students", func(r chi.Router) {
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/entries", h.GetEntries)
			r.Get("/{id}/entries/latest", h.GetLatestEntry)
			r.Post("/{id}/entries", h.AddEntry)
			r.Post("/{id}/serve", h.MarkServed45)
			r.Post("/{id}/undo", h.UndoLastEntry)
			r.Post("/{id}/reconcile", h.Reconcile)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.tracker.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"service":   "detention",
		"timestamp": time.Now().UTC(),
	})
}

// handleError maps tracker errors onto HTTP statuses. Only unexpected
// failures are logged.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case detention.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case detention.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, detention.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error().Err(err).Msg("Tracker operation failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, parse func(string) (id.ID, error)) (id.ID, bool) {
	v, err := parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id: "+err.Error())
		return id.Nil, false
	}
	return v, true
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue < 0 {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // client went away
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{
		Success: false,
		Error:   &ErrorBody{Status: http.StatusText(status), Message: message},
	})
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}
