package server

import (
	"errors"
	"net/http"
	"testing"

	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	paymentdomain "github.com/clinicore/panelbilling/internal/payment/domain"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", ledgerdomain.ErrInvalidQty, http.StatusBadRequest, "validation_error"},
		{"rule validation", ratedomain.ErrInvalidWindow, http.StatusBadRequest, "validation_error"},
		{"not found", ledgerdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"company not found", companydomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid transition", ledgerdomain.ErrInvalidTransition, http.StatusConflict, "conflict"},
		{"over allocation", paymentdomain.ErrOverAllocation, http.StatusConflict, "conflict"},
		{"company mismatch", paymentdomain.ErrCompanyMismatch, http.StatusConflict, "conflict"},
		{"concurrency conflict", paymentdomain.ErrConcurrencyConflict, http.StatusConflict, "conflict"},
		{"duplicate code", companydomain.ErrCodeExists, http.StatusConflict, "conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}

func TestMapError_ValidationPayloadCarriesField(t *testing.T) {
	status, payload := mapError(ledgerdomain.ErrInvalidUnitPrice)
	assert.Equal(t, http.StatusBadRequest, status)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "unit_price", payload.Errors[0].Field)
		assert.Equal(t, "invalid_unit_price", payload.Errors[0].Code)
	}
}
