package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/miniapp-shop/internal/common"
	"github.com/noah-isme/miniapp-shop/internal/user"
)

// Handler exposes register/login/me endpoints.
type Handler struct {
	Svc      *Service
	Users    user.Store
	Validate *validator.Validate
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "registration validation failed", map[string]any{
				"error": err.Error(),
			})
			return
		}
	}
	u, err := h.Svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": serialiseUser(u)})
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	result, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"user":        serialiseUser(result.User),
			"accessToken": result.AccessToken,
			"expiresAt":   result.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// Me handles GET /v1/auth/me for the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return
	}
	u, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load user", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": serialiseUser(u)})
}

func serialiseUser(u user.User) map[string]any {
	return map[string]any{
		"id":        u.ID.String(),
		"name":      u.Name,
		"email":     u.Email,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth request failed", nil)
}
