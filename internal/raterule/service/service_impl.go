package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/panelbilling/internal/audit/domain"
	"github.com/clinicore/panelbilling/internal/cache"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	obsmetrics "github.com/clinicore/panelbilling/internal/observability/metrics"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        ratedomain.Repository
	CompanyRepo companydomain.Repository
	AuditSvc    auditdomain.Service    `optional:"true"`
	RuleCache   cache.RuleSetCache     `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        ratedomain.Repository
	companyRepo companydomain.Repository
	auditSvc    auditdomain.Service
	ruleCache   cache.RuleSetCache
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) ratedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("raterule.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		companyRepo: p.CompanyRepo,
		auditSvc:    p.AuditSvc,
		ruleCache:   p.RuleCache,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req ratedomain.CreateRequest) (*ratedomain.RateRule, error) {
	if req.CompanyID == 0 {
		return nil, ratedomain.ErrInvalidCompany
	}
	if !ratedomain.ValidScope(req.Scope) {
		return nil, ratedomain.ErrInvalidScope
	}
	if !ratedomain.ValidMode(req.Mode) {
		return nil, ratedomain.ErrInvalidMode
	}
	if req.Value.IsNegative() {
		return nil, ratedomain.ErrInvalidValue
	}

	var refID *string
	switch req.RuleType {
	case ratedomain.RuleTypeDefault:
		if req.RefID != nil && strings.TrimSpace(*req.RefID) != "" {
			return nil, ratedomain.ErrInvalidRefID
		}
	case ratedomain.RuleTypeItem:
		if req.RefID == nil || strings.TrimSpace(*req.RefID) == "" {
			return nil, ratedomain.ErrInvalidRefID
		}
		trimmed := strings.TrimSpace(*req.RefID)
		refID = &trimmed
	default:
		return nil, ratedomain.ErrInvalidRuleType
	}

	if req.EffectiveFrom != nil && req.EffectiveTo != nil && req.EffectiveTo.Before(*req.EffectiveFrom) {
		return nil, ratedomain.ErrInvalidWindow
	}

	company, err := s.companyRepo.FindByID(ctx, s.db, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}

	priority := 100
	if req.Priority != nil {
		priority = *req.Priority
	}

	now := time.Now().UTC()
	rule := ratedomain.RateRule{
		ID:            s.genID.Generate(),
		CompanyID:     req.CompanyID,
		Scope:         req.Scope,
		RuleType:      req.RuleType,
		RefID:         refID,
		Mode:          req.Mode,
		Value:         req.Value,
		Priority:      priority,
		EffectiveFrom: normalizeDate(req.EffectiveFrom),
		EffectiveTo:   normalizeDate(req.EffectiveTo),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return nil, err
	}

	s.invalidate(rule.CompanyID, rule.Scope)
	s.audit(ctx, "raterule.create", &rule)
	return &rule, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req ratedomain.UpdateRequest) (*ratedomain.RateRule, error) {
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ratedomain.ErrNotFound
	}

	if req.Mode != nil {
		if !ratedomain.ValidMode(*req.Mode) {
			return nil, ratedomain.ErrInvalidMode
		}
		rule.Mode = *req.Mode
	}
	if req.Value != nil {
		if req.Value.IsNegative() {
			return nil, ratedomain.ErrInvalidValue
		}
		rule.Value = *req.Value
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.EffectiveFrom != nil {
		rule.EffectiveFrom = normalizeDate(req.EffectiveFrom)
	}
	if req.EffectiveTo != nil {
		rule.EffectiveTo = normalizeDate(req.EffectiveTo)
	}
	if rule.EffectiveFrom != nil && rule.EffectiveTo != nil && rule.EffectiveTo.Before(*rule.EffectiveFrom) {
		return nil, ratedomain.ErrInvalidWindow
	}

	rule.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.invalidate(rule.CompanyID, rule.Scope)
	s.audit(ctx, "raterule.update", rule)
	return rule, nil
}

// Deactivate soft-disables a rule. Rules are never hard-deleted because
// accrued transactions may still reference them.
func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ratedomain.ErrNotFound
	}
	if !rule.Active {
		return nil
	}

	rule.Active = false
	rule.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return err
	}

	s.invalidate(rule.CompanyID, rule.Scope)
	s.audit(ctx, "raterule.deactivate", rule)
	return nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID, scope *ratedomain.RuleScope) ([]ratedomain.RateRule, error) {
	if companyID == 0 {
		return nil, ratedomain.ErrInvalidCompany
	}
	if scope != nil && !ratedomain.ValidScope(*scope) {
		return nil, ratedomain.ErrInvalidScope
	}
	return s.repo.List(ctx, s.db, companyID, scope)
}

// ResolvePrice selects the applicable rule for one billable item and returns
// the effective price. The active rule set is cached briefly per
// (company, scope); resolution itself is pure (ratedomain.Resolve).
func (s *Service) ResolvePrice(ctx context.Context, req ratedomain.ResolveRequest) (ratedomain.Resolution, error) {
	if req.CompanyID == 0 {
		return ratedomain.Resolution{}, ratedomain.ErrInvalidCompany
	}
	if !ratedomain.ValidScope(req.Scope) {
		return ratedomain.Resolution{}, ratedomain.ErrInvalidScope
	}
	if req.BasePrice < 0 {
		return ratedomain.Resolution{}, ratedomain.ErrInvalidPrice
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	rules, err := s.activeRules(ctx, req.CompanyID, req.Scope)
	if err != nil {
		return ratedomain.Resolution{}, err
	}

	resolution := ratedomain.Resolve(rules, req.ItemID, req.BasePrice, asOf)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRuleResolution(ctx, string(req.Scope), resolution.Rule != nil)
	}
	return resolution, nil
}

func (s *Service) activeRules(ctx context.Context, companyID snowflake.ID, scope ratedomain.RuleScope) ([]ratedomain.RateRule, error) {
	if s.ruleCache != nil {
		if rules, ok := s.ruleCache.Get(companyID, scope); ok {
			return rules, nil
		}
	}
	rules, err := s.repo.ListActive(ctx, s.db, companyID, scope)
	if err != nil {
		return nil, err
	}
	if s.ruleCache != nil {
		s.ruleCache.Set(companyID, scope, rules)
	}
	return rules, nil
}

func (s *Service) invalidate(companyID snowflake.ID, scope ratedomain.RuleScope) {
	if s.ruleCache != nil {
		s.ruleCache.Invalidate(companyID, scope)
	}
}

func (s *Service) audit(ctx context.Context, action string, rule *ratedomain.RateRule) {
	if s.auditSvc == nil {
		return
	}
	targetID := rule.ID.String()
	companyID := rule.CompanyID
	if err := s.auditSvc.AuditLog(ctx, &companyID, action, "rate_rule", &targetID, map[string]any{
		"scope":     string(rule.Scope),
		"rule_type": string(rule.RuleType),
		"mode":      string(rule.Mode),
		"value":     rule.Value.String(),
		"priority":  rule.Priority,
		"active":    rule.Active,
	}); err != nil {
		s.log.Warn("failed to write rate rule audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := t.UTC().Truncate(24 * time.Hour)
	return &day
}
