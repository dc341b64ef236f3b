package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/raterule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.RateRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rate_rules (
			id, company_id, scope, rule_type, ref_id, mode, value, priority,
			effective_from, effective_to, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.CompanyID,
		rule.Scope,
		rule.RuleType,
		rule.RefID,
		rule.Mode,
		rule.Value,
		rule.Priority,
		rule.EffectiveFrom,
		rule.EffectiveTo,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *domain.RateRule) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rate_rules
		 SET mode = ?, value = ?, priority = ?, effective_from = ?, effective_to = ?,
		     active = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Mode,
		rule.Value,
		rule.Priority,
		rule.EffectiveFrom,
		rule.EffectiveTo,
		rule.Active,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RateRule, error) {
	var rule domain.RateRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, scope, rule_type, ref_id, mode, value, priority,
			effective_from, effective_to, active, created_at, updated_at
		 FROM rate_rules WHERE id = ?`,
		id,
	).Scan(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, scope *domain.RuleScope) ([]domain.RateRule, error) {
	query := `SELECT id, company_id, scope, rule_type, ref_id, mode, value, priority,
			effective_from, effective_to, active, created_at, updated_at
		 FROM rate_rules WHERE company_id = ?`
	args := []any{companyID}
	if scope != nil {
		query += ` AND scope = ?`
		args = append(args, *scope)
	}
	query += ` ORDER BY priority ASC, id ASC`

	var items []domain.RateRule
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, companyID snowflake.ID, scope domain.RuleScope) ([]domain.RateRule, error) {
	var items []domain.RateRule
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, scope, rule_type, ref_id, mode, value, priority,
			effective_from, effective_to, active, created_at, updated_at
		 FROM rate_rules
		 WHERE company_id = ? AND scope = ? AND active
		 ORDER BY priority ASC, id ASC`,
		companyID,
		scope,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
