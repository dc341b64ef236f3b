package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/clock"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	"github.com/clinicore/panelbilling/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	CompanyRepo companydomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	companyRepo companydomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reporting.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		companyRepo: p.CompanyRepo,
	}
}

func (s *Service) Outstanding(ctx context.Context, companyID snowflake.ID) (*domain.OutstandingSummary, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	company, err := s.companyRepo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}
	return s.repo.Summarize(ctx, s.db, companyID)
}

func (s *Service) OutstandingAll(ctx context.Context) ([]domain.OutstandingSummary, error) {
	return s.repo.SummarizeAll(ctx, s.db)
}

func (s *Service) Aging(ctx context.Context, companyID snowflake.ID, asOf time.Time) (*domain.AgingReport, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	company, err := s.companyRepo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}

	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	asOf = asOf.UTC().Truncate(24 * time.Hour)

	open, err := s.repo.ListOpen(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	report := newAgingReport(companyID, asOf)
	for _, balance := range open {
		addToReport(report, asOf, balance)
	}
	return report, nil
}

// AgingAll buckets every company's open balances against one asOf. Rows come
// back ordered by company id, so reports are emitted in that order.
func (s *Service) AgingAll(ctx context.Context, asOf time.Time) ([]domain.AgingReport, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	asOf = asOf.UTC().Truncate(24 * time.Hour)

	open, err := s.repo.ListOpenAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.AgingReport, 0)
	var current *domain.AgingReport
	for _, balance := range open {
		if current == nil || current.CompanyID != balance.CompanyID {
			reports = append(reports, *newAgingReport(balance.CompanyID, asOf))
			current = &reports[len(reports)-1]
		}
		addToReport(current, asOf, balance)
	}
	return reports, nil
}

func newAgingReport(companyID snowflake.ID, asOf time.Time) *domain.AgingReport {
	report := domain.AgingReport{
		CompanyID: companyID,
		AsOf:      asOf,
		Rows:      make([]domain.AgingRow, len(domain.AgingBuckets)),
	}
	for i, bucket := range domain.AgingBuckets {
		report.Rows[i].Bucket = bucket
	}
	return &report
}

func addToReport(report *domain.AgingReport, asOf time.Time, balance domain.OpenBalance) {
	idx := bucketIndex(asOf, balance.Date)
	report.Rows[idx].Outstanding += balance.Outstanding
	report.Rows[idx].Count++
	report.Total += balance.Outstanding
}

// bucketIndex maps a transaction date to its aging bucket. Future dates age
// as zero days.
func bucketIndex(asOf, date time.Time) int {
	age := int(asOf.Sub(date.UTC().Truncate(24*time.Hour)).Hours() / 24)
	switch {
	case age <= 30:
		return 0
	case age <= 60:
		return 1
	case age <= 90:
		return 2
	default:
		return 3
	}
}
