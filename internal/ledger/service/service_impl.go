package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/panelbilling/internal/audit/domain"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	obsmetrics "github.com/clinicore/panelbilling/internal/observability/metrics"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        ledgerdomain.Repository
	CompanyRepo companydomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        ledgerdomain.Repository
	companyRepo companydomain.Repository
	auditSvc    auditdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		companyRepo: p.CompanyRepo,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

// Accrue records a billable event as owed by the company. NetToCorporate is
// qty*unitPrice minus the patient-borne co-pay, clamped at zero.
func (s *Service) Accrue(ctx context.Context, req ledgerdomain.AccrueRequest) (*ledgerdomain.CorporateTransaction, error) {
	if req.CompanyID == 0 {
		return nil, ledgerdomain.ErrInvalidCompany
	}
	if !ratedomain.ValidScope(req.ServiceType) {
		return nil, ledgerdomain.ErrInvalidServiceType
	}
	refType := strings.TrimSpace(req.RefType)
	refID := strings.TrimSpace(req.RefID)
	if refType == "" || refID == "" {
		return nil, ledgerdomain.ErrInvalidRef
	}
	if req.Date.IsZero() {
		return nil, ledgerdomain.ErrInvalidDate
	}
	if req.Qty <= 0 {
		return nil, ledgerdomain.ErrInvalidQty
	}
	if req.UnitPrice < 0 {
		return nil, ledgerdomain.ErrInvalidUnitPrice
	}
	if req.CoPay < 0 {
		return nil, ledgerdomain.ErrInvalidCoPay
	}

	company, err := s.companyRepo.FindByID(ctx, s.db, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}

	net := req.Qty*req.UnitPrice - req.CoPay
	if net < 0 {
		net = 0
	}

	now := time.Now().UTC()
	txn := ledgerdomain.CorporateTransaction{
		ID:             s.genID.Generate(),
		CompanyID:      req.CompanyID,
		ServiceType:    req.ServiceType,
		RefType:        refType,
		RefID:          refID,
		PatientMRN:     strings.TrimSpace(req.PatientMRN),
		Date:           req.Date.UTC().Truncate(24 * time.Hour),
		Qty:            req.Qty,
		UnitPrice:      req.UnitPrice,
		CoPay:          req.CoPay,
		NetToCorporate: net,
		PaidAmount:     0,
		Status:         ledgerdomain.StatusAccrued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &txn); err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordAccrual(ctx, string(txn.ServiceType))
	}
	s.audit(ctx, "transaction.accrue", &txn, nil)
	return &txn, nil
}

// SetStatus applies an administrative lifecycle transition. Paid is never a
// valid target: it is reached only through payment allocation. A reversal
// resets paid_amount to zero and removes the transaction from allocation.
func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, status ledgerdomain.TransactionStatus) (*ledgerdomain.CorporateTransaction, error) {
	if !ledgerdomain.ValidStatus(status) {
		return nil, ledgerdomain.ErrInvalidStatus
	}
	if status == ledgerdomain.StatusPaid || status == ledgerdomain.StatusAccrued {
		return nil, ledgerdomain.ErrInvalidTransition
	}

	var txn *ledgerdomain.CorporateTransaction
	var from ledgerdomain.TransactionStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			return ledgerdomain.ErrNotFound
		}
		if !ledgerdomain.CanTransition(locked.Status, status) {
			return ledgerdomain.ErrInvalidTransition
		}

		from = locked.Status
		locked.Status = status
		if status == ledgerdomain.StatusReversed {
			locked.PaidAmount = 0
		}
		locked.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, locked.ID, locked.Status, locked.PaidAmount, locked.UpdatedAt); err != nil {
			return err
		}
		txn = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordTransition(ctx, string(from), string(status))
	}
	s.audit(ctx, "transaction.status", txn, map[string]any{
		"from_status": string(from),
		"to_status":   string(status),
	})
	return txn, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*ledgerdomain.CorporateTransaction, error) {
	txn, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	return txn, nil
}

func (s *Service) Outstanding(ctx context.Context, id snowflake.ID) (int64, error) {
	txn, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if txn == nil {
		return 0, ledgerdomain.ErrNotFound
	}
	return txn.Outstanding(), nil
}

func (s *Service) ListOutstanding(ctx context.Context, companyID snowflake.ID, filter ledgerdomain.OutstandingFilter) ([]ledgerdomain.CorporateTransaction, error) {
	if companyID == 0 {
		return nil, ledgerdomain.ErrInvalidCompany
	}
	if filter.ServiceType != nil && !ratedomain.ValidScope(*filter.ServiceType) {
		return nil, ledgerdomain.ErrInvalidServiceType
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, ledgerdomain.ErrInvalidDate
	}
	return s.repo.ListOutstanding(ctx, s.db, companyID, filter)
}

func (s *Service) audit(ctx context.Context, action string, txn *ledgerdomain.CorporateTransaction, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"service_type":     string(txn.ServiceType),
		"ref_type":         txn.RefType,
		"ref_id":           txn.RefID,
		"net_to_corporate": txn.NetToCorporate,
		"paid_amount":      txn.PaidAmount,
		"status":           string(txn.Status),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := txn.ID.String()
	companyID := txn.CompanyID
	if err := s.auditSvc.AuditLog(ctx, &companyID, action, "corporate_transaction", &targetID, metadata); err != nil {
		s.log.Warn("failed to write transaction audit log", zap.String("action", action), zap.Error(err))
	}
}
