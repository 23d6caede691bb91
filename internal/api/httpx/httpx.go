package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

const maxBodyBytes = 1 << 20

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindCustomerNotFound, apperr.KindTransactionNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindInvalidAmount, apperr.KindInsufficientBalance, apperr.KindInsufficientBalanceCancel,
		apperr.KindAlreadyCancelled, apperr.KindInvalidCancel, apperr.KindInvalidInput, apperr.KindPinNotSet:
		return http.StatusBadRequest
	case apperr.KindTokenExpired, apperr.KindTokenInvalid, apperr.KindTokenRevoked, apperr.KindPinMismatch:
		return http.StatusUnauthorized
	case apperr.KindPinLocked:
		return http.StatusLocked
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteAppError renders err as APIError. Untyped errors become INTERNAL
// without leaking their text.
func WriteAppError(w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.ErrInternal
	}
	if e.Kind == apperr.KindRateLimited {
		if s, ok := e.Details["retry_after_seconds"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(s))
		}
	}
	var details interface{}
	if len(e.Details) > 0 {
		details = e.Details
	}
	WriteError(w, StatusFor(e.Kind), string(e.Kind), e.Message, details)
}

// DecodeJSON reads one JSON object into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.ErrInvalidInput.With("body", "empty")
		}
		return apperr.ErrInvalidInput.With("body", err.Error())
	}
	return nil
}
