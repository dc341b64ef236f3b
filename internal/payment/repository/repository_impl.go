package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/payment/domain"
	"github.com/clinicore/panelbilling/pkg/db"
	"gorm.io/gorm"
)

const paymentColumns = `id, company_id, amount, allocated_amount, reference, notes,
	received_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, payment *domain.CorporatePayment) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO corporate_payments (
			id, company_id, amount, allocated_amount, reference, notes,
			received_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.CompanyID,
		payment.Amount,
		payment.AllocatedAmount,
		payment.Reference,
		payment.Notes,
		payment.ReceivedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.CorporatePayment, error) {
	return r.findByID(ctx, conn, id, "")
}

func (r *repo) FindByIDLocked(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.CorporatePayment, error) {
	return r.findByID(ctx, tx, id, db.RowLockSuffix(tx))
}

func (r *repo) findByID(ctx context.Context, conn *gorm.DB, id snowflake.ID, lockSuffix string) (*domain.CorporatePayment, error) {
	var payment domain.CorporatePayment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM corporate_payments WHERE id = ?`+lockSuffix,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) AddAllocated(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount, expectedAllocated int64, updatedAt time.Time) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE corporate_payments
		 SET allocated_amount = allocated_amount + ?, updated_at = ?
		 WHERE id = ? AND allocated_amount = ?`,
		amount,
		updatedAt,
		id,
		expectedAllocated,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, companyID snowflake.ID) ([]domain.CorporatePayment, error) {
	var items []domain.CorporatePayment
	err := conn.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM corporate_payments
		 WHERE company_id = ?
		 ORDER BY received_at DESC, id DESC`,
		companyID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertAllocation(ctx context.Context, tx *gorm.DB, allocation *domain.PaymentAllocation) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO payment_allocations (
			id, payment_id, transaction_id, amount, created_at
		) VALUES (?, ?, ?, ?, ?)`,
		allocation.ID,
		allocation.PaymentID,
		allocation.TransactionID,
		allocation.Amount,
		allocation.CreatedAt,
	).Error
}

func (r *repo) ListAllocations(ctx context.Context, conn *gorm.DB, paymentID snowflake.ID) ([]domain.PaymentAllocation, error) {
	var items []domain.PaymentAllocation
	err := conn.WithContext(ctx).Raw(
		`SELECT id, payment_id, transaction_id, amount, created_at
		 FROM payment_allocations
		 WHERE payment_id = ?
		 ORDER BY id ASC`,
		paymentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
