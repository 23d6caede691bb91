package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/api/validate"
	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/middleware"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
	"github.com/go-chi/chi/v5"
)

const maxNoteLen = 200

type TransactionHandler struct {
	Ledger *services.LedgerService
	Log    *services.TransactionLog
}

func NewTransactionHandler(l *services.LedgerService, log *services.TransactionLog) *TransactionHandler {
	return &TransactionHandler{Ledger: l, Log: log}
}

type chargeReq struct {
	CustomerID    string `json:"customer_id"`
	ActualPayment int64  `json:"actual_payment"`
	ServiceAmount int64  `json:"service_amount"`
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note"`
}

func (h *TransactionHandler) Charge(w http.ResponseWriter, r *http.Request) {
	var req chargeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Required("customer_id", req.CustomerID),
		validate.Required("payment_method", req.PaymentMethod),
		validate.MaxLen("note", req.Note, maxNoteLen),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	res, err := h.Ledger.Charge(r.Context(), services.ChargeInput{
		CustomerID:    req.CustomerID,
		AccountID:     middleware.AccountID(r.Context()),
		ActualPayment: req.ActualPayment,
		ServiceAmount: req.ServiceAmount,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Note:          req.Note,
	})
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

type deductReq struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
	Note       string `json:"note"`
}

func (h *TransactionHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req deductReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Required("customer_id", req.CustomerID),
		validate.MaxLen("note", req.Note, maxNoteLen),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	res, err := h.Ledger.Deduct(r.Context(), services.DeductInput{
		CustomerID: req.CustomerID,
		AccountID:  middleware.AccountID(r.Context()),
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

type cancelReq struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if err := validate.Collect(
		validate.Required("transaction_id", req.TransactionID),
		validate.MaxLen("reason", req.Reason, maxNoteLen),
	); err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	res, err := h.Ledger.Cancel(r.Context(), services.CancelInput{
		TransactionID: req.TransactionID,
		AccountID:     middleware.AccountID(r.Context()),
		Reason:        req.Reason,
	})
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Log.Get(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

type listResp struct {
	Items  []models.Transaction `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListByCustomer serves GET /customers/{id}/transactions.
func (h *TransactionHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	f, err = services.NormalizeFilter(f)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	items, err := h.Log.ListByCustomer(r.Context(), middleware.AccountID(r.Context()), chi.URLParam(r, "id"), f)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResp{Items: items, Limit: f.Limit, Offset: f.Offset})
}

func parseFilter(r *http.Request) (models.TxnFilter, error) {
	q := r.URL.Query()
	f := models.TxnFilter{
		Kind:  models.TransactionKind(q.Get("kind")),
		Order: models.SortOrder(q.Get("order")),
	}
	var errs validate.Errs
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validate.ErrField{Field: "limit", Msg: "must be an integer"})
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validate.ErrField{Field: "offset", Msg: "must be an integer"})
		}
		f.Offset = n
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, validate.ErrField{Field: p.name, Msg: "must be RFC3339"})
			continue
		}
		*p.dst = &t
	}
	if len(errs) > 0 {
		return f, apperr.ErrInvalidInput.With("fields", errs)
	}
	return f, nil
}
