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
	"github.com/clinicore/panelbilling/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	LedgerRepo  ledgerdomain.Repository
	CompanyRepo companydomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	ledgerRepo  ledgerdomain.Repository
	companyRepo companydomain.Repository
	auditSvc    auditdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		ledgerRepo:  p.LedgerRepo,
		companyRepo: p.CompanyRepo,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CorporatePayment, error) {
	if req.CompanyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.ReceivedAt.IsZero() {
		return nil, domain.ErrInvalidReceivedAt
	}

	company, err := s.companyRepo.FindByID(ctx, s.db, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}

	now := time.Now().UTC()
	payment := domain.CorporatePayment{
		ID:         s.genID.Generate(),
		CompanyID:  req.CompanyID,
		Amount:     req.Amount,
		Reference:  strings.TrimSpace(req.Reference),
		Notes:      strings.TrimSpace(req.Notes),
		ReceivedAt: req.ReceivedAt.UTC().Truncate(24 * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		applied, err := s.allocate(ctx, tx, &payment, req.Allocations)
		if err != nil {
			return err
		}
		payment.Allocations = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayment(ctx, len(payment.Allocations))
	}
	s.audit(ctx, "payment.create", &payment)
	return &payment, nil
}

func (s *Service) Allocate(ctx context.Context, paymentID snowflake.ID, allocations []domain.AllocationRequest) (*domain.CorporatePayment, error) {
	if len(allocations) == 0 {
		return nil, domain.ErrEmptyAllocations
	}

	var payment *domain.CorporatePayment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDLocked(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		applied, err := s.allocate(ctx, tx, locked, allocations)
		if err != nil {
			return err
		}
		locked.Allocations = applied
		payment = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayment(ctx, len(payment.Allocations))
	}
	s.audit(ctx, "payment.allocate", payment)
	return payment, nil
}

// allocate applies the requested allocations inside the caller's database
// transaction. Each transaction row is read under lock, validated against the
// payment, then updated through a guarded increment so a racing writer fails
// the whole batch instead of double counting.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, payment *domain.CorporatePayment, allocations []domain.AllocationRequest) ([]domain.PaymentAllocation, error) {
	applied := make([]domain.PaymentAllocation, 0, len(allocations))
	now := time.Now().UTC()

	for _, req := range allocations {
		if req.TransactionID == 0 {
			return nil, domain.ErrInvalidAllocation
		}
		if req.Amount < 0 || (req.Amount == 0 && !req.AllocateUpTo) {
			return nil, domain.ErrInvalidAllocation
		}

		txn, err := s.ledgerRepo.FindByIDLocked(ctx, tx, req.TransactionID)
		if err != nil {
			return nil, err
		}
		if txn == nil {
			return nil, ledgerdomain.ErrNotFound
		}
		if txn.CompanyID != payment.CompanyID {
			return nil, domain.ErrCompanyMismatch
		}
		if txn.Status != ledgerdomain.StatusAccrued && txn.Status != ledgerdomain.StatusClaimed {
			return nil, domain.ErrNotAllocatable
		}

		outstanding := txn.Outstanding()
		amount := req.Amount
		if req.AllocateUpTo {
			amount = outstanding
			if remaining := payment.Unallocated(); amount > remaining {
				amount = remaining
			}
			if amount == 0 {
				continue
			}
		}
		if amount > outstanding {
			return nil, domain.ErrOverAllocation
		}
		if amount > payment.Unallocated() {
			return nil, domain.ErrOverAllocation
		}

		status := txn.Status
		if txn.PaidAmount+amount == txn.NetToCorporate {
			status = ledgerdomain.StatusPaid
		}
		ok, err := s.ledgerRepo.AddPaid(ctx, tx, txn.ID, amount, txn.PaidAmount, status, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrConcurrencyConflict
		}

		ok, err = s.repo.AddAllocated(ctx, tx, payment.ID, amount, payment.AllocatedAmount, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrConcurrencyConflict
		}
		payment.AllocatedAmount += amount
		payment.UpdatedAt = now

		allocation := domain.PaymentAllocation{
			ID:            s.genID.Generate(),
			PaymentID:     payment.ID,
			TransactionID: txn.ID,
			Amount:        amount,
			CreatedAt:     now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, &allocation); err != nil {
			return nil, err
		}
		applied = append(applied, allocation)

		if s.obsMetrics != nil && status == ledgerdomain.StatusPaid {
			s.obsMetrics.RecordTransition(ctx, string(txn.Status), string(ledgerdomain.StatusPaid))
		}
	}
	return applied, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.CorporatePayment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	allocations, err := s.repo.ListAllocations(ctx, s.db, payment.ID)
	if err != nil {
		return nil, err
	}
	payment.Allocations = allocations
	return payment, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]domain.CorporatePayment, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	return s.repo.List(ctx, s.db, companyID)
}

func (s *Service) audit(ctx context.Context, action string, payment *domain.CorporatePayment) {
	if s.auditSvc == nil {
		return
	}
	targetID := payment.ID.String()
	companyID := payment.CompanyID
	metadata := map[string]any{
		"amount":           payment.Amount,
		"allocated_amount": payment.AllocatedAmount,
		"reference":        payment.Reference,
		"allocations":      len(payment.Allocations),
	}
	if err := s.auditSvc.AuditLog(ctx, &companyID, action, "corporate_payment", &targetID, metadata); err != nil {
		s.log.Warn("failed to write payment audit log", zap.String("action", action), zap.Error(err))
	}
}
