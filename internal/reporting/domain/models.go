package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrInvalidCompany = errors.New("invalid_company")

// AgingBuckets is the fixed bucket order used by aging reports. A
// transaction dated in the future relative to asOf lands in the first
// bucket.
var AgingBuckets = []string{"0-30", "31-60", "61-90", "90+"}

// OutstandingSummary totals the unpaid balance a company owes, split by
// lifecycle status. All amounts are minor units.
type OutstandingSummary struct {
	CompanyID   snowflake.ID `json:"company_id"`
	Outstanding int64        `json:"outstanding"`
	Accrued     int64        `json:"accrued"`
	Claimed     int64        `json:"claimed"`
	Count       int64        `json:"count"`
}

type AgingRow struct {
	Bucket      string `json:"bucket"`
	Outstanding int64  `json:"outstanding"`
	Count       int64  `json:"count"`
}

type AgingReport struct {
	CompanyID snowflake.ID `json:"company_id"`
	AsOf      time.Time    `json:"as_of"`
	Rows      []AgingRow   `json:"rows"`
	Total     int64        `json:"total"`
}

type Service interface {
	Outstanding(ctx context.Context, companyID snowflake.ID) (*OutstandingSummary, error)
	// OutstandingAll returns one summary per company with an open balance,
	// ordered by company id.
	OutstandingAll(ctx context.Context) ([]OutstandingSummary, error)
	// Aging buckets open balances by the age of the transaction date
	// relative to asOf. A zero asOf means now.
	Aging(ctx context.Context, companyID snowflake.ID, asOf time.Time) (*AgingReport, error)
	// AgingAll returns one aging report per company with an open balance,
	// ordered by company id.
	AgingAll(ctx context.Context, asOf time.Time) ([]AgingReport, error)
}

// OpenBalance is one unpaid transaction's contribution to a report.
// CompanyID is populated only by the cross-company listing.
type OpenBalance struct {
	ID          snowflake.ID
	CompanyID   snowflake.ID
	Date        time.Time
	Outstanding int64
}

type Repository interface {
	Summarize(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*OutstandingSummary, error)
	SummarizeAll(ctx context.Context, db *gorm.DB) ([]OutstandingSummary, error)
	ListOpen(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]OpenBalance, error)
	ListOpenAll(ctx context.Context, db *gorm.DB) ([]OpenBalance, error)
}
