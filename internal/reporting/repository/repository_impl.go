package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	"github.com/clinicore/panelbilling/internal/reporting/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Summarize(ctx context.Context, conn *gorm.DB, companyID snowflake.ID) (*domain.OutstandingSummary, error) {
	var summary domain.OutstandingSummary
	err := conn.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(net_to_corporate - paid_amount), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN status = ? THEN net_to_corporate - paid_amount ELSE 0 END), 0) AS accrued,
			COALESCE(SUM(CASE WHEN status = ? THEN net_to_corporate - paid_amount ELSE 0 END), 0) AS claimed,
			COUNT(*) AS count
		 FROM corporate_transactions
		 WHERE company_id = ?
		   AND status IN (?, ?)
		   AND paid_amount < net_to_corporate`,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
		companyID,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	summary.CompanyID = companyID
	return &summary, nil
}

func (r *repo) SummarizeAll(ctx context.Context, conn *gorm.DB) ([]domain.OutstandingSummary, error) {
	var items []domain.OutstandingSummary
	err := conn.WithContext(ctx).Raw(
		`SELECT
			company_id,
			COALESCE(SUM(net_to_corporate - paid_amount), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN status = ? THEN net_to_corporate - paid_amount ELSE 0 END), 0) AS accrued,
			COALESCE(SUM(CASE WHEN status = ? THEN net_to_corporate - paid_amount ELSE 0 END), 0) AS claimed,
			COUNT(*) AS count
		 FROM corporate_transactions
		 WHERE status IN (?, ?)
		   AND paid_amount < net_to_corporate
		 GROUP BY company_id
		 ORDER BY company_id ASC`,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListOpen returns the unpaid rows for aging. Bucketing happens in the
// service because date arithmetic is not portable across the supported
// dialects.
func (r *repo) ListOpen(ctx context.Context, conn *gorm.DB, companyID snowflake.ID) ([]domain.OpenBalance, error) {
	var items []domain.OpenBalance
	err := conn.WithContext(ctx).Raw(
		`SELECT id, date, net_to_corporate - paid_amount AS outstanding
		 FROM corporate_transactions
		 WHERE company_id = ?
		   AND status IN (?, ?)
		   AND paid_amount < net_to_corporate
		 ORDER BY date ASC, id ASC`,
		companyID,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListOpenAll(ctx context.Context, conn *gorm.DB) ([]domain.OpenBalance, error) {
	var items []domain.OpenBalance
	err := conn.WithContext(ctx).Raw(
		`SELECT id, company_id, date, net_to_corporate - paid_amount AS outstanding
		 FROM corporate_transactions
		 WHERE status IN (?, ?)
		   AND paid_amount < net_to_corporate
		 ORDER BY company_id ASC, date ASC, id ASC`,
		ledgerdomain.StatusAccrued,
		ledgerdomain.StatusClaimed,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
