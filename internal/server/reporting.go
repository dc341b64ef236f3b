package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) OutstandingReport(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	summary, err := s.reportingSvc.Outstanding(c.Request.Context(), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) OutstandingReportAll(c *gin.Context) {
	summaries, err := s.reportingSvc.OutstandingAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

func (s *Server) AgingReport(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var asOf time.Time
	parsed, ok := queryDate(c, "as_of")
	if !ok {
		return
	}
	if parsed != nil {
		asOf = *parsed
	}

	report, err := s.reportingSvc.Aging(c.Request.Context(), companyID, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) AgingReportAll(c *gin.Context) {
	var asOf time.Time
	parsed, ok := queryDate(c, "as_of")
	if !ok {
		return
	}
	if parsed != nil {
		asOf = *parsed
	}

	reports, err := s.reportingSvc.AgingAll(c.Request.Context(), asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}
