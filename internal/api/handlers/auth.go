package handlers

import (
	"net/http"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/api/validate"
	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/middleware"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
)

type AuthHandler struct {
	Sessions *services.SessionService
}

func NewAuthHandler(s *services.SessionService) *AuthHandler {
	return &AuthHandler{Sessions: s}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Required("email", req.Email),
		validate.Required("password", req.Password),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	res, err := h.Sessions.Login(r.Context(), middleware.ClientIP(r), req.Email, req.Password)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(validate.Required("refresh_token", req.RefreshToken)); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	tok, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"access": tok})
}

// Logout revokes the bearer token and the optional refresh_token in the body.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		httpx.WriteAppError(w, apperr.ErrTokenInvalid)
		return
	}
	var req refreshReq
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteAppError(w, err)
			return
		}
	}
	if err := h.Sessions.Logout(r.Context(), s, req.RefreshToken); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
