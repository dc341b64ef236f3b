package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidCompany      = errors.New("invalid_company")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidReceivedAt   = errors.New("invalid_received_at")
	ErrInvalidAllocation   = errors.New("invalid_allocation")
	ErrEmptyAllocations    = errors.New("empty_allocations")
	ErrOverAllocation      = errors.New("over_allocation")
	ErrCompanyMismatch     = errors.New("company_mismatch")
	ErrNotAllocatable      = errors.New("transaction_not_allocatable")
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
	ErrNotFound            = errors.New("payment_not_found")
)

// CorporatePayment is money received from a company, tracked against the
// allocations that consumed it. Amount and AllocatedAmount are minor units.
// The payment header is immutable once created; only AllocatedAmount moves,
// and the allocation list is append-only.
type CorporatePayment struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	CompanyID       snowflake.ID `json:"company_id" gorm:"index;not null"`
	Amount          int64        `json:"amount" gorm:"not null"`
	AllocatedAmount int64        `json:"allocated_amount" gorm:"not null;default:0"`
	Reference       string       `json:"reference"`
	Notes           string       `json:"notes"`
	ReceivedAt      time.Time    `json:"received_at" gorm:"type:date;not null"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	Allocations []PaymentAllocation `json:"allocations,omitempty" gorm:"-"`
}

func (CorporatePayment) TableName() string {
	return "corporate_payments"
}

// Unallocated is the portion of the payment not yet applied to any
// transaction.
func (p CorporatePayment) Unallocated() int64 {
	remaining := p.Amount - p.AllocatedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

type PaymentAllocation struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	PaymentID     snowflake.ID `json:"payment_id" gorm:"index;not null"`
	TransactionID snowflake.ID `json:"transaction_id" gorm:"index;not null"`
	Amount        int64        `json:"amount" gorm:"not null"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}
