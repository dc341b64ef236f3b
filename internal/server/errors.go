package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	paymentdomain "github.com/clinicore/panelbilling/internal/payment/domain"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	reportingdomain "github.com/clinicore/panelbilling/internal/reporting/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, companydomain.ErrInvalidCode),
		errors.Is(err, companydomain.ErrInvalidName):
		return true
	case errors.Is(err, ratedomain.ErrInvalidCompany),
		errors.Is(err, ratedomain.ErrInvalidScope),
		errors.Is(err, ratedomain.ErrInvalidRuleType),
		errors.Is(err, ratedomain.ErrInvalidRefID),
		errors.Is(err, ratedomain.ErrInvalidMode),
		errors.Is(err, ratedomain.ErrInvalidValue),
		errors.Is(err, ratedomain.ErrInvalidWindow),
		errors.Is(err, ratedomain.ErrInvalidPrice):
		return true
	case errors.Is(err, ledgerdomain.ErrInvalidCompany),
		errors.Is(err, ledgerdomain.ErrInvalidServiceType),
		errors.Is(err, ledgerdomain.ErrInvalidRef),
		errors.Is(err, ledgerdomain.ErrInvalidDate),
		errors.Is(err, ledgerdomain.ErrInvalidQty),
		errors.Is(err, ledgerdomain.ErrInvalidUnitPrice),
		errors.Is(err, ledgerdomain.ErrInvalidCoPay),
		errors.Is(err, ledgerdomain.ErrInvalidStatus):
		return true
	case errors.Is(err, paymentdomain.ErrInvalidCompany),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidReceivedAt),
		errors.Is(err, paymentdomain.ErrInvalidAllocation),
		errors.Is(err, paymentdomain.ErrEmptyAllocations):
		return true
	case errors.Is(err, reportingdomain.ErrInvalidCompany):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, companydomain.ErrCodeExists),
		errors.Is(err, ledgerdomain.ErrInvalidTransition),
		errors.Is(err, paymentdomain.ErrOverAllocation),
		errors.Is(err, paymentdomain.ErrCompanyMismatch),
		errors.Is(err, paymentdomain.ErrNotAllocatable),
		errors.Is(err, paymentdomain.ErrConcurrencyConflict):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, companydomain.ErrCodeExists):
		return "company code already exists"
	case errors.Is(err, ledgerdomain.ErrInvalidTransition):
		return "invalid status transition"
	case errors.Is(err, paymentdomain.ErrOverAllocation):
		return "allocation exceeds outstanding balance or payment amount"
	case errors.Is(err, paymentdomain.ErrCompanyMismatch):
		return "transaction belongs to a different company"
	case errors.Is(err, paymentdomain.ErrNotAllocatable):
		return "transaction is not open for allocation"
	case errors.Is(err, paymentdomain.ErrConcurrencyConflict):
		return "concurrent update detected, retry the request"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, ratedomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog feeds the request logger a coarse error type and the
// sentinel code without rendering a response.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", err.Error()
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
