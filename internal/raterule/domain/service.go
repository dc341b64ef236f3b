package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateRequest struct {
	CompanyID     snowflake.ID    `json:"company_id"`
	Scope         RuleScope       `json:"scope"`
	RuleType      RuleType        `json:"rule_type"`
	RefID         *string         `json:"ref_id"`
	Mode          RateMode        `json:"mode"`
	Value         decimal.Decimal `json:"value"`
	Priority      *int            `json:"priority"`
	EffectiveFrom *time.Time      `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}

type UpdateRequest struct {
	Mode          *RateMode        `json:"mode"`
	Value         *decimal.Decimal `json:"value"`
	Priority      *int             `json:"priority"`
	EffectiveFrom *time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time       `json:"effective_to"`
}

type ResolveRequest struct {
	CompanyID snowflake.ID
	Scope     RuleScope
	ItemID    string
	BasePrice int64
	AsOf      time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RateRule, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*RateRule, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
	List(ctx context.Context, companyID snowflake.ID, scope *RuleScope) ([]RateRule, error)
	ResolvePrice(ctx context.Context, req ResolveRequest) (Resolution, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *RateRule) error
	Update(ctx context.Context, db *gorm.DB, rule *RateRule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RateRule, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, scope *RuleScope) ([]RateRule, error)
	ListActive(ctx context.Context, db *gorm.DB, companyID snowflake.ID, scope RuleScope) ([]RateRule, error)
}
