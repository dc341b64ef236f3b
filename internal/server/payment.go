package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/clinicore/panelbilling/internal/payment/domain"
)

func (s *Server) CreatePayment(c *gin.Context) {
	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

type allocateRequest struct {
	Allocations []paymentdomain.AllocationRequest `json:"allocations"`
}

func (s *Server) AllocatePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var body allocateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.paymentSvc.Allocate(c.Request.Context(), id, body.Allocations)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListPayments(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	items, err := s.paymentSvc.List(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
