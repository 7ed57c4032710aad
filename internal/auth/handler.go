package auth

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/middleware"
	"github.com/ayush/task-manager/backend/internal/models"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc      *Service
	resp     *httpx.Responder
	validate *validator.Validate
}

func NewHandler(svc *Service, resp *httpx.Responder) *Handler {
	return &Handler{svc: svc, resp: resp, validate: httpx.NewValidator()}
}

// Register creates a new user and returns a token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := httpx.Validate(h.validate, req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	out, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Login authenticates a user and returns a fresh token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := httpx.Validate(h.validate, req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	out, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.resp.Error(w, r, models.ErrInvalidToken)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}
