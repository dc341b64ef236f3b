package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AllocationRequest applies part of a payment to one transaction. A zero
// Amount with AllocateUpTo set consumes whatever is still outstanding on the
// transaction, capped by the payment's unallocated balance.
type AllocationRequest struct {
	TransactionID snowflake.ID `json:"transaction_id"`
	Amount        int64        `json:"amount"`
	AllocateUpTo  bool         `json:"allocate_up_to"`
}

type CreatePaymentRequest struct {
	CompanyID   snowflake.ID        `json:"company_id"`
	Amount      int64               `json:"amount"`
	Reference   string              `json:"reference"`
	Notes       string              `json:"notes"`
	ReceivedAt  time.Time           `json:"received_at"`
	Allocations []AllocationRequest `json:"allocations"`
}

type Service interface {
	// Create records the payment and applies its allocations atomically.
	// Either every allocation lands or none does.
	Create(ctx context.Context, req CreatePaymentRequest) (*CorporatePayment, error)
	Allocate(ctx context.Context, paymentID snowflake.ID, allocations []AllocationRequest) (*CorporatePayment, error)
	Get(ctx context.Context, id snowflake.ID) (*CorporatePayment, error)
	List(ctx context.Context, companyID snowflake.ID) ([]CorporatePayment, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *CorporatePayment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CorporatePayment, error)
	// FindByIDLocked reads the payment under a row lock where supported;
	// callers must be inside a database transaction.
	FindByIDLocked(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*CorporatePayment, error)
	// AddAllocated bumps allocated_amount only if it still equals
	// expectedAllocated, reporting whether the guarded update applied.
	AddAllocated(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount, expectedAllocated int64, updatedAt time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]CorporatePayment, error)
	InsertAllocation(ctx context.Context, tx *gorm.DB, allocation *PaymentAllocation) error
	ListAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]PaymentAllocation, error)
}
