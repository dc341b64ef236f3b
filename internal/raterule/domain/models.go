package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RuleScope is the service domain a contract rule applies to.
type RuleScope string

const (
	ScopeLab        RuleScope = "LAB"
	ScopeDiagnostic RuleScope = "DIAG"
	ScopeOutpatient RuleScope = "OPD"
	ScopeInpatient  RuleScope = "IPD"
)

func ValidScope(scope RuleScope) bool {
	switch scope {
	case ScopeLab, ScopeDiagnostic, ScopeOutpatient, ScopeInpatient:
		return true
	default:
		return false
	}
}

// RuleType distinguishes catch-all rules from item-specific ones.
type RuleType string

const (
	RuleTypeDefault RuleType = "default"
	RuleTypeItem    RuleType = "item"
)

// RateMode is how a rule derives the effective price from the base price.
type RateMode string

const (
	ModeFixedPrice      RateMode = "fixed_price"
	ModePercentDiscount RateMode = "percent_discount"
	ModeFixedDiscount   RateMode = "fixed_discount"
)

func ValidMode(mode RateMode) bool {
	switch mode {
	case ModeFixedPrice, ModePercentDiscount, ModeFixedDiscount:
		return true
	default:
		return false
	}
}

// RateRule is a contractual pricing adjustment for a company within a service
// domain. An item rule applies only to the billable item named by RefID; a
// default rule applies to everything in scope that has no item rule. Rules are
// soft-deactivated, never deleted, so historical transactions keep a valid
// reference.
type RateRule struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	CompanyID     snowflake.ID    `json:"company_id" gorm:"not null;index:ix_rate_rules_company_scope,priority:1"`
	Scope         RuleScope       `json:"scope" gorm:"type:text;not null;index:ix_rate_rules_company_scope,priority:2"`
	RuleType      RuleType        `json:"rule_type" gorm:"type:text;not null"`
	RefID         *string         `json:"ref_id,omitempty" gorm:"type:text"`
	Mode          RateMode        `json:"mode" gorm:"type:text;not null"`
	Value         decimal.Decimal `json:"value" gorm:"type:numeric;not null"`
	Priority      int             `json:"priority" gorm:"not null;default:100"`
	EffectiveFrom *time.Time      `json:"effective_from,omitempty" gorm:"type:date"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty" gorm:"type:date"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RateRule) TableName() string { return "rate_rules" }

// InWindow reports whether the rule's effective window contains asOf. Both
// bounds are inclusive calendar dates; a missing bound is open on that side.
func (r RateRule) InWindow(asOf time.Time) bool {
	day := asOf.UTC().Truncate(24 * time.Hour)
	if r.EffectiveFrom != nil && day.Before(r.EffectiveFrom.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if r.EffectiveTo != nil && day.After(r.EffectiveTo.UTC().Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// MatchesItem reports whether an item rule targets the given billable item.
func (r RateRule) MatchesItem(itemID string) bool {
	return r.RuleType == RuleTypeItem && r.RefID != nil && *r.RefID == itemID
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidScope    = errors.New("invalid_scope")
	ErrInvalidRuleType = errors.New("invalid_rule_type")
	ErrInvalidRefID    = errors.New("invalid_ref_id")
	ErrInvalidMode     = errors.New("invalid_mode")
	ErrInvalidValue    = errors.New("invalid_value")
	ErrInvalidWindow   = errors.New("invalid_window")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrNotFound        = errors.New("rule_not_found")
)
