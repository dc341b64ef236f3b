package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	"gorm.io/gorm"
)

type AccrueRequest struct {
	CompanyID   snowflake.ID         `json:"company_id"`
	ServiceType ratedomain.RuleScope `json:"service_type"`
	RefType     string               `json:"ref_type"`
	RefID       string               `json:"ref_id"`
	PatientMRN  string               `json:"patient_mrn"`
	Date        time.Time            `json:"date"`
	Qty         int64                `json:"qty"`
	UnitPrice   int64                `json:"unit_price"`
	CoPay       int64                `json:"co_pay"`
}

// OutstandingFilter narrows listOutstanding results. Nil fields match
// everything.
type OutstandingFilter struct {
	ServiceType *ratedomain.RuleScope
	RefType     *string
	PatientMRN  *string
	DateFrom    *time.Time
	DateTo      *time.Time
}

type Service interface {
	Accrue(ctx context.Context, req AccrueRequest) (*CorporateTransaction, error)
	SetStatus(ctx context.Context, id snowflake.ID, status TransactionStatus) (*CorporateTransaction, error)
	Get(ctx context.Context, id snowflake.ID) (*CorporateTransaction, error)
	Outstanding(ctx context.Context, id snowflake.ID) (int64, error)
	ListOutstanding(ctx context.Context, companyID snowflake.ID, filter OutstandingFilter) ([]CorporateTransaction, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *CorporateTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CorporateTransaction, error)
	// FindByIDLocked reads the row under a row lock where the dialect
	// supports one; callers must be inside a database transaction.
	FindByIDLocked(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*CorporateTransaction, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status TransactionStatus, paidAmount int64, updatedAt time.Time) error
	// AddPaid increments paid_amount only if it still equals expectedPaid
	// and the row is still open, reporting whether the guarded update
	// applied.
	AddPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount, expectedPaid int64, status TransactionStatus, updatedAt time.Time) (bool, error)
	ListOutstanding(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter OutstandingFilter) ([]CorporateTransaction, error)
}
