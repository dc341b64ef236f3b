package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/ledger/domain"
	"github.com/clinicore/panelbilling/pkg/db"
	"gorm.io/gorm"
)

const transactionColumns = `id, company_id, service_type, ref_type, ref_id, patient_mrn,
	date, qty, unit_price, co_pay, net_to_corporate, paid_amount, status,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, txn *domain.CorporateTransaction) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO corporate_transactions (
			id, company_id, service_type, ref_type, ref_id, patient_mrn,
			date, qty, unit_price, co_pay, net_to_corporate, paid_amount, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.CompanyID,
		txn.ServiceType,
		txn.RefType,
		txn.RefID,
		txn.PatientMRN,
		txn.Date,
		txn.Qty,
		txn.UnitPrice,
		txn.CoPay,
		txn.NetToCorporate,
		txn.PaidAmount,
		txn.Status,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.CorporateTransaction, error) {
	return r.findByID(ctx, conn, id, "")
}

func (r *repo) FindByIDLocked(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.CorporateTransaction, error) {
	return r.findByID(ctx, tx, id, db.RowLockSuffix(tx))
}

func (r *repo) findByID(ctx context.Context, conn *gorm.DB, id snowflake.ID, lockSuffix string) (*domain.CorporateTransaction, error) {
	var txn domain.CorporateTransaction
	err := conn.WithContext(ctx).Raw(
		`SELECT `+transactionColumns+`
		 FROM corporate_transactions WHERE id = ?`+lockSuffix,
		id,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.TransactionStatus, paidAmount int64, updatedAt time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE corporate_transactions
		 SET status = ?, paid_amount = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		paidAmount,
		updatedAt,
		id,
	).Error
}

func (r *repo) AddPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount, expectedPaid int64, status domain.TransactionStatus, updatedAt time.Time) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE corporate_transactions
		 SET paid_amount = paid_amount + ?, status = ?, updated_at = ?
		 WHERE id = ? AND paid_amount = ? AND status IN (?, ?)`,
		amount,
		status,
		updatedAt,
		id,
		expectedPaid,
		domain.StatusAccrued,
		domain.StatusClaimed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListOutstanding(ctx context.Context, conn *gorm.DB, companyID snowflake.ID, filter domain.OutstandingFilter) ([]domain.CorporateTransaction, error) {
	query := `SELECT ` + transactionColumns + `
		 FROM corporate_transactions
		 WHERE company_id = ?
		   AND status IN (?, ?)
		   AND paid_amount < net_to_corporate`
	args := []any{companyID, domain.StatusAccrued, domain.StatusClaimed}

	if filter.ServiceType != nil {
		query += ` AND service_type = ?`
		args = append(args, *filter.ServiceType)
	}
	if filter.RefType != nil {
		query += ` AND ref_type = ?`
		args = append(args, *filter.RefType)
	}
	if filter.PatientMRN != nil {
		query += ` AND patient_mrn = ?`
		args = append(args, *filter.PatientMRN)
	}
	if filter.DateFrom != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.DateTo)
	}
	query += ` ORDER BY date ASC, id ASC`

	var items []domain.CorporateTransaction
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
