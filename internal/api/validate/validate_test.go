package validate

import (
	"errors"
	"testing"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

func TestCollect(t *testing.T) {
	if err := Collect(Required("a", "x"), MinInt("b", 5, 1)); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := Collect(Required("customer_id", " "), MaxLen("note", "abcdef", 3), Digits("pin", "12x4", 4))
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	e, _ := apperr.As(err)
	if fields := e.Details["fields"].(Errs); len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", fields)
	}
}
