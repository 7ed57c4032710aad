package tasks

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/middleware"
	"github.com/ayush/task-manager/backend/internal/models"
)

// Handler holds task HTTP handlers.
type Handler struct {
	svc      *Service
	resp     *httpx.Responder
	validate *validator.Validate
}

func NewHandler(svc *Service, resp *httpx.Responder) *Handler {
	return &Handler{svc: svc, resp: resp, validate: httpx.NewValidator()}
}

// List returns one page of the caller's tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	qs := r.URL.Query()
	q := models.TaskQuery{
		Search: qs.Get("search"),
		Filter: qs.Get("filter"),
	}
	var err error
	if q.Page, err = intParam(qs.Get("page"), "page", DefaultPage); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if q.Limit, err = intParam(qs.Get("limit"), "limit", DefaultLimit); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := httpx.Validate(h.validate, q); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	page, err := h.svc.ListTasks(r.Context(), userID, q)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// Create adds a task for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	task, err := h.svc.CreateTask(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// Update applies a partial update to one of the caller's tasks.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// Delete removes one of the caller's tasks.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	out, err := h.svc.DeleteTask(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		h.resp.Error(w, r, models.ErrInvalidToken)
	}
	return id, ok
}

// intParam parses an optional integer query parameter.
func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(name + " must be a number")
	}
	return n, nil
}
