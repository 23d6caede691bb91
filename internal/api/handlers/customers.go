package handlers

import (
	"net/http"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/middleware"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
	"github.com/go-chi/chi/v5"
)

type CustomerHandler struct {
	Balances *services.BalanceService
}

func NewCustomerHandler(b *services.BalanceService) *CustomerHandler {
	return &CustomerHandler{Balances: b}
}

func (h *CustomerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Balances.Current(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *CustomerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Balances.Reconcile(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
