package handlers

import (
	"net/http"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/api/validate"
	"github.com/baharkarakas/prepaid-ledger/internal/middleware"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
)

type PinHandler struct {
	Pins     *services.PinGuard
	Accounts *services.AccountService
}

func NewPinHandler(p *services.PinGuard, a *services.AccountService) *PinHandler {
	return &PinHandler{Pins: p, Accounts: a}
}

type pinVerifyReq struct {
	Pin string `json:"pin"`
}

// Verify answers 200 with the attempt outcome, including failed ones.
func (h *PinHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req pinVerifyReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(validate.Digits("pin", req.Pin, 4)); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	res, err := h.Pins.Verify(r.Context(), middleware.AccountID(r.Context()), req.Pin)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type pinChangeReq struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin"`
}

func (h *PinHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req pinChangeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Digits("current_pin", req.CurrentPin, 4),
		validate.Digits("new_pin", req.NewPin, 4),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := h.Pins.ChangePin(r.Context(), middleware.AccountID(r.Context()), req.CurrentPin, req.NewPin); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pinResetReq struct {
	Password string `json:"password"`
	NewPin   string `json:"new_pin"`
}

// Reset re-proves the account with its password, then overrides the PIN
// and clears any lockout.
func (h *PinHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req pinResetReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Required("password", req.Password),
		validate.Digits("new_pin", req.NewPin, 4),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	accountID := middleware.AccountID(r.Context())
	if err := h.Accounts.ConfirmPassword(r.Context(), accountID, req.Password); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := h.Pins.ResetPin(r.Context(), accountID, req.NewPin); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
