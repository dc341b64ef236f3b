package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
)

func (s *Server) AccrueTransaction(c *gin.Context) {
	var req ledgerdomain.AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.ledgerSvc.Accrue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := s.ledgerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetTransactionStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var body setStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.ledgerSvc.SetStatus(c.Request.Context(), id, ledgerdomain.TransactionStatus(strings.TrimSpace(body.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) GetTransactionOutstanding(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	outstanding, err := s.ledgerSvc.Outstanding(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"transaction_id": id, "outstanding": outstanding}})
}

func (s *Server) ListOutstandingTransactions(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var filter ledgerdomain.OutstandingFilter
	if raw := strings.TrimSpace(c.Query("service_type")); raw != "" {
		parsed := ratedomain.RuleScope(raw)
		if !ratedomain.ValidScope(parsed) {
			AbortWithError(c, newValidationError("service_type", "invalid_service_type", "invalid service type"))
			return
		}
		filter.ServiceType = &parsed
	}
	filter.RefType = queryString(c, "ref_type")
	filter.PatientMRN = queryString(c, "patient_mrn")

	from, ok := queryDate(c, "date_from")
	if !ok {
		return
	}
	filter.DateFrom = from

	to, ok := queryDate(c, "date_to")
	if !ok {
		return
	}
	filter.DateTo = to

	items, err := s.ledgerSvc.ListOutstanding(c.Request.Context(), companyID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
