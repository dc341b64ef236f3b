package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
)

// TransactionStatus is the accrual lifecycle state of a corporate charge.
type TransactionStatus string

const (
	StatusAccrued  TransactionStatus = "accrued"
	StatusClaimed  TransactionStatus = "claimed"
	StatusPaid     TransactionStatus = "paid"
	StatusReversed TransactionStatus = "reversed"
	StatusRejected TransactionStatus = "rejected"
)

func ValidStatus(status TransactionStatus) bool {
	switch status {
	case StatusAccrued, StatusClaimed, StatusPaid, StatusReversed, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusPaid, StatusReversed, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an administrative transition from -> to is
// allowed. StatusPaid is never a valid target here: it is only reached
// automatically when a transaction is fully allocated.
func CanTransition(from, to TransactionStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusClaimed:
		return from == StatusAccrued
	case StatusRejected:
		return from == StatusAccrued || from == StatusClaimed
	case StatusReversed:
		return true
	default:
		return false
	}
}

// CorporateTransaction is one billable event charged to a corporate payer.
// NetToCorporate is the company-borne amount; PaidAmount accumulates payment
// allocations and never exceeds NetToCorporate except that a reversal resets
// it to zero.
type CorporateTransaction struct {
	ID             snowflake.ID         `json:"id" gorm:"primaryKey"`
	CompanyID      snowflake.ID         `json:"company_id" gorm:"not null;index"`
	ServiceType    ratedomain.RuleScope `json:"service_type" gorm:"type:text;not null"`
	RefType        string               `json:"ref_type" gorm:"type:text;not null"`
	RefID          string               `json:"ref_id" gorm:"type:text;not null"`
	PatientMRN     string               `json:"patient_mrn" gorm:"column:patient_mrn;type:text"`
	Date           time.Time            `json:"date" gorm:"type:date;not null;index"`
	Qty            int64                `json:"qty" gorm:"not null"`
	UnitPrice      int64                `json:"unit_price" gorm:"not null"`
	CoPay          int64                `json:"co_pay" gorm:"not null"`
	NetToCorporate int64                `json:"net_to_corporate" gorm:"not null"`
	PaidAmount     int64                `json:"paid_amount" gorm:"not null;default:0"`
	Status         TransactionStatus    `json:"status" gorm:"type:text;not null;index"`
	CreatedAt      time.Time            `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time            `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CorporateTransaction) TableName() string { return "corporate_transactions" }

// Outstanding is the unpaid corporate-borne remainder. Terminal transactions
// carry no outstanding balance.
func (t CorporateTransaction) Outstanding() int64 {
	switch t.Status {
	case StatusAccrued, StatusClaimed:
		if remaining := t.NetToCorporate - t.PaidAmount; remaining > 0 {
			return remaining
		}
	}
	return 0
}

var (
	ErrInvalidCompany     = errors.New("invalid_company")
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidRef         = errors.New("invalid_ref")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidQty         = errors.New("invalid_qty")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidCoPay       = errors.New("invalid_co_pay")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrNotFound           = errors.New("transaction_not_found")
)
