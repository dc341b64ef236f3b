package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
)

func (s *Server) CreateRateRule(c *gin.Context) {
	var req ratedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.rateRuleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) UpdateRateRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ratedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	item, err := s.rateRuleSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeactivateRateRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := s.rateRuleSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListRateRules(c *gin.Context) {
	companyID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var scope *ratedomain.RuleScope
	if raw := strings.TrimSpace(c.Query("scope")); raw != "" {
		parsed := ratedomain.RuleScope(raw)
		if !ratedomain.ValidScope(parsed) {
			AbortWithError(c, newValidationError("scope", "invalid_scope", "invalid scope"))
			return
		}
		scope = &parsed
	}

	items, err := s.rateRuleSvc.List(c.Request.Context(), companyID, scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

type resolvePriceRequest struct {
	CompanyID string `json:"company_id"`
	Scope     string `json:"scope"`
	ItemID    string `json:"item_id"`
	BasePrice int64  `json:"base_price"`
	AsOf      string `json:"as_of"`
}

func (s *Server) ResolvePrice(c *gin.Context) {
	var body resolvePriceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	companyID, err := parseID(body.CompanyID)
	if err != nil {
		AbortWithError(c, newValidationError("company_id", "invalid_company", "invalid company id"))
		return
	}

	req := ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.RuleScope(strings.TrimSpace(body.Scope)),
		ItemID:    strings.TrimSpace(body.ItemID),
		BasePrice: body.BasePrice,
	}
	if raw := strings.TrimSpace(body.AsOf); raw != "" {
		asOf, err := time.Parse(dateLayout, raw)
		if err != nil {
			AbortWithError(c, newValidationError("as_of", "invalid_as_of", "expected YYYY-MM-DD"))
			return
		}
		req.AsOf = asOf.UTC()
	}

	resolution, err := s.rateRuleSvc.ResolvePrice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"effective_price": resolution.EffectivePrice,
		"matched":         resolution.Rule != nil,
	}
	if resolution.Rule != nil {
		resp["rule"] = resolution.Rule
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
