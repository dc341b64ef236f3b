package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/clock"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	companyrepo "github.com/clinicore/panelbilling/internal/company/repository"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	reportingdomain "github.com/clinicore/panelbilling/internal/reporting/domain"
	reportingrepo "github.com/clinicore/panelbilling/internal/reporting/repository"
	reportingservice "github.com/clinicore/panelbilling/internal/reporting/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T, now time.Time) (*gorm.DB, *snowflake.Node, reportingdomain.Service, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&companydomain.Company{},
		&ledgerdomain.CorporateTransaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := reportingservice.NewService(reportingservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(now),
		Repo:        reportingrepo.Provide(),
		CompanyRepo: companyrepo.Provide(),
	})

	company := companydomain.Company{
		ID:        node.Generate(),
		Code:      fmt.Sprintf("PANEL-%d", time.Now().UnixNano()),
		Name:      "Panel Corp",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	return db, node, svc, company.ID
}

func seedTransaction(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, date time.Time, net, paid int64, status ledgerdomain.TransactionStatus) {
	t.Helper()

	now := time.Now().UTC()
	txn := ledgerdomain.CorporateTransaction{
		ID:             node.Generate(),
		CompanyID:      companyID,
		ServiceType:    ratedomain.ScopeLab,
		RefType:        "lab_order_item",
		RefID:          fmt.Sprintf("LOI-%d", node.Generate()),
		Date:           date,
		Qty:            1,
		UnitPrice:      net,
		NetToCorporate: net,
		PaidAmount:     paid,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func TestOutstanding_SplitsByStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, companyID := setup(t, now)

	seedTransaction(t, db, node, companyID, now, 1000, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, companyID, now, 600, 100, ledgerdomain.StatusClaimed)
	// Paid, rejected and reversed rows contribute nothing.
	seedTransaction(t, db, node, companyID, now, 900, 900, ledgerdomain.StatusPaid)
	seedTransaction(t, db, node, companyID, now, 500, 0, ledgerdomain.StatusRejected)
	seedTransaction(t, db, node, companyID, now, 400, 0, ledgerdomain.StatusReversed)

	summary, err := svc.Outstanding(ctx, companyID)
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	if summary.Outstanding != 1500 {
		t.Fatalf("outstanding = %d, want 1500", summary.Outstanding)
	}
	if summary.Accrued != 1000 {
		t.Fatalf("accrued = %d, want 1000", summary.Accrued)
	}
	if summary.Claimed != 500 {
		t.Fatalf("claimed = %d, want 500", summary.Claimed)
	}
	if summary.Count != 2 {
		t.Fatalf("count = %d, want 2", summary.Count)
	}
}

func TestAging_BucketsPartitionTheBalance(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, companyID := setup(t, asOf)

	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -10), 100, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -30), 200, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -31), 300, 0, ledgerdomain.StatusClaimed)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -60), 400, 100, ledgerdomain.StatusClaimed)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -90), 500, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -91), 600, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, -365), 700, 0, ledgerdomain.StatusClaimed)

	report, err := svc.Aging(ctx, companyID, asOf)
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if len(report.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(report.Rows))
	}

	wantOutstanding := []int64{300, 600, 500, 1300}
	wantCount := []int64{2, 2, 1, 2}
	for i, row := range report.Rows {
		if row.Outstanding != wantOutstanding[i] {
			t.Fatalf("bucket %s outstanding = %d, want %d", row.Bucket, row.Outstanding, wantOutstanding[i])
		}
		if row.Count != wantCount[i] {
			t.Fatalf("bucket %s count = %d, want %d", row.Bucket, row.Count, wantCount[i])
		}
	}

	// Every open balance lands in exactly one bucket.
	var total int64
	for _, row := range report.Rows {
		total += row.Outstanding
	}
	if total != report.Total || total != 2700 {
		t.Fatalf("total = %d (report %d), want 2700", total, report.Total)
	}
}

func TestAging_FutureDatedLandsInFirstBucket(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, companyID := setup(t, asOf)

	seedTransaction(t, db, node, companyID, asOf.AddDate(0, 0, 14), 250, 0, ledgerdomain.StatusAccrued)

	report, err := svc.Aging(ctx, companyID, asOf)
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if report.Rows[0].Outstanding != 250 {
		t.Fatalf("first bucket = %d, want 250", report.Rows[0].Outstanding)
	}
}

func TestAging_ZeroAsOfUsesClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, companyID := setup(t, now)

	seedTransaction(t, db, node, companyID, now.AddDate(0, 0, -45), 800, 0, ledgerdomain.StatusAccrued)

	report, err := svc.Aging(ctx, companyID, time.Time{})
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if !report.AsOf.Equal(now) {
		t.Fatalf("asOf = %s, want %s", report.AsOf, now)
	}
	if report.Rows[1].Outstanding != 800 {
		t.Fatalf("31-60 bucket = %d, want 800", report.Rows[1].Outstanding)
	}
}

func seedCompany(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        node.Generate(),
		Code:      fmt.Sprintf("PANEL-%d", node.Generate()),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company.ID
}

func TestOutstandingAll_OneSummaryPerCompany(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, firstID := setup(t, now)
	secondID := seedCompany(t, db, node, "Second Panel")

	seedTransaction(t, db, node, firstID, now, 1000, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, firstID, now, 600, 100, ledgerdomain.StatusClaimed)
	seedTransaction(t, db, node, secondID, now, 300, 0, ledgerdomain.StatusAccrued)
	// Settled rows do not produce a row for their company.
	seedTransaction(t, db, node, secondID, now, 900, 900, ledgerdomain.StatusPaid)

	summaries, err := svc.OutstandingAll(ctx)
	if err != nil {
		t.Fatalf("outstanding all: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}

	first, second := summaries[0], summaries[1]
	if first.CompanyID != firstID || second.CompanyID != secondID {
		t.Fatalf("company order = %v, %v, want %v, %v", first.CompanyID, second.CompanyID, firstID, secondID)
	}
	if first.Outstanding != 1500 || first.Accrued != 1000 || first.Claimed != 500 {
		t.Fatalf("first summary = %+v, want 1500/1000/500", first)
	}
	if second.Outstanding != 300 || second.Count != 1 {
		t.Fatalf("second summary = %+v, want outstanding 300 count 1", second)
	}
}

func TestAgingAll_OneReportPerCompany(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, firstID := setup(t, asOf)
	secondID := seedCompany(t, db, node, "Second Panel")

	seedTransaction(t, db, node, firstID, asOf.AddDate(0, 0, -10), 100, 0, ledgerdomain.StatusAccrued)
	seedTransaction(t, db, node, firstID, asOf.AddDate(0, 0, -45), 400, 0, ledgerdomain.StatusClaimed)
	seedTransaction(t, db, node, secondID, asOf.AddDate(0, 0, -120), 700, 200, ledgerdomain.StatusClaimed)

	reports, err := svc.AgingAll(ctx, asOf)
	if err != nil {
		t.Fatalf("aging all: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}

	first, second := reports[0], reports[1]
	if first.CompanyID != firstID || second.CompanyID != secondID {
		t.Fatalf("company order = %v, %v, want %v, %v", first.CompanyID, second.CompanyID, firstID, secondID)
	}
	if first.Rows[0].Outstanding != 100 || first.Rows[1].Outstanding != 400 || first.Total != 500 {
		t.Fatalf("first report rows = %+v, want 100 in 0-30 and 400 in 31-60", first.Rows)
	}
	if second.Rows[3].Outstanding != 500 || second.Total != 500 {
		t.Fatalf("second report rows = %+v, want 500 in 90+", second.Rows)
	}
	if !second.AsOf.Equal(asOf) {
		t.Fatalf("asOf = %s, want %s", second.AsOf, asOf)
	}
}

func TestAgingAll_NoOpenBalances(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	db, node, svc, companyID := setup(t, now)

	seedTransaction(t, db, node, companyID, now, 900, 900, ledgerdomain.StatusPaid)

	reports, err := svc.AgingAll(ctx, now)
	if err != nil {
		t.Fatalf("aging all: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("reports = %d, want 0", len(reports))
	}
}

func TestReports_UnknownCompany(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, node, svc, _ := setup(t, now)

	if _, err := svc.Outstanding(ctx, node.Generate()); err != companydomain.ErrNotFound {
		t.Fatalf("err = %v, want company_not_found", err)
	}
	if _, err := svc.Aging(ctx, node.Generate(), now); err != companydomain.ErrNotFound {
		t.Fatalf("err = %v, want company_not_found", err)
	}
}
