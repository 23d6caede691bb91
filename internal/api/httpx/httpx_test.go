package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindCustomerNotFound:    http.StatusNotFound,
		apperr.KindUnauthorized:        http.StatusForbidden,
		apperr.KindInsufficientBalance: http.StatusBadRequest,
		apperr.KindTokenRevoked:        http.StatusUnauthorized,
		apperr.KindPinLocked:           http.StatusLocked,
		apperr.KindRateLimited:         http.StatusTooManyRequests,
		apperr.KindStoreUnavailable:    http.StatusServiceUnavailable,
		apperr.Kind("SOMETHING_ELSE"):  http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := StatusFor(k); got != want {
			t.Errorf("%s: expected %d, got %d", k, want, got)
		}
	}
}

func TestWriteAppErrorCarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, apperr.ErrInsufficientBalance.With("current_balance", int64(1200)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "INSUFFICIENT_BALANCE" || body.Details["current_balance"] != float64(1200) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestWriteAppErrorHidesUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, errors.New("pq: password authentication failed"))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("untyped error leaked: %d %s", rec.Code, rec.Body.String())
	}
}

func TestWriteAppErrorRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, apperr.ErrRateLimited.With("retry_after_seconds", 42))
	if rec.Header().Get("Retry-After") != "42" {
		t.Fatalf("expected Retry-After 42, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":1,"bogus":true}`))
	var v struct {
		Amount int64 `json:"amount"`
	}
	if err := DecodeJSON(r, &v); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}
