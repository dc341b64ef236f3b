package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/cache"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	companyrepo "github.com/clinicore/panelbilling/internal/company/repository"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	raterulerepo "github.com/clinicore/panelbilling/internal/raterule/repository"
	rateruleservice "github.com/clinicore/panelbilling/internal/raterule/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *snowflake.Node, ratedomain.Service, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&companydomain.Company{},
		&ratedomain.RateRule{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := rateruleservice.NewService(rateruleservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        raterulerepo.Provide(),
		CompanyRepo: companyrepo.Provide(),
		RuleCache:   cache.NewRuleSetCache(),
	})

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        node.Generate(),
		Code:      fmt.Sprintf("CORP-%d", now.UnixNano()),
		Name:      "Corp Panel",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}

	return db, node, svc, company.ID
}

func strPtr(s string) *string { return &s }

func TestCreateRule_Validation(t *testing.T) {
	ctx := context.Background()
	_, node, svc, companyID := setup(t)

	base := ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(10),
	}

	cases := []struct {
		name    string
		mutate  func(*ratedomain.CreateRequest)
		wantErr error
	}{
		{"zero company", func(r *ratedomain.CreateRequest) { r.CompanyID = 0 }, ratedomain.ErrInvalidCompany},
		{"bad scope", func(r *ratedomain.CreateRequest) { r.Scope = "SPA" }, ratedomain.ErrInvalidScope},
		{"bad mode", func(r *ratedomain.CreateRequest) { r.Mode = "markup" }, ratedomain.ErrInvalidMode},
		{"negative value", func(r *ratedomain.CreateRequest) { r.Value = decimal.NewFromInt(-1) }, ratedomain.ErrInvalidValue},
		{"bad rule type", func(r *ratedomain.CreateRequest) { r.RuleType = "bulk" }, ratedomain.ErrInvalidRuleType},
		{"default with ref", func(r *ratedomain.CreateRequest) { r.RefID = strPtr("CBC") }, ratedomain.ErrInvalidRefID},
		{"item without ref", func(r *ratedomain.CreateRequest) { r.RuleType = ratedomain.RuleTypeItem }, ratedomain.ErrInvalidRefID},
		{"inverted window", func(r *ratedomain.CreateRequest) {
			from := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
			to := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
			r.EffectiveFrom, r.EffectiveTo = &from, &to
		}, ratedomain.ErrInvalidWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			if _, err := svc.Create(ctx, req); err != tc.wantErr {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	req := base
	req.CompanyID = node.Generate()
	if _, err := svc.Create(ctx, req); err != companydomain.ErrNotFound {
		t.Fatalf("err = %v, want company_not_found", err)
	}
}

func TestCreateRule_DefaultPriority(t *testing.T) {
	ctx := context.Background()
	_, _, svc, companyID := setup(t)

	rule, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rule.Priority != 100 {
		t.Fatalf("priority = %d, want 100", rule.Priority)
	}
	if !rule.Active {
		t.Fatalf("new rule should be active")
	}
}

func TestResolvePrice_EndToEnd(t *testing.T) {
	ctx := context.Background()
	_, _, svc, companyID := setup(t)

	if _, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("create default: %v", err)
	}

	itemRule, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeItem,
		RefID:     strPtr("CBC"),
		Mode:      ratedomain.ModeFixedPrice,
		Value:     decimal.NewFromInt(800),
	})
	if err != nil {
		t.Fatalf("create item rule: %v", err)
	}

	res, err := svc.ResolvePrice(ctx, ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		ItemID:    "CBC",
		BasePrice: 1000,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.EffectivePrice != 800 || res.Rule == nil || res.Rule.ID != itemRule.ID {
		t.Fatalf("resolution = %+v, want item rule at 800", res)
	}

	res, err = svc.ResolvePrice(ctx, ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		ItemID:    "LIPID",
		BasePrice: 1000,
	})
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if res.EffectivePrice != 900 {
		t.Fatalf("price = %d, want 900 via default rule", res.EffectivePrice)
	}

	// Deactivation invalidates the cached rule set immediately.
	if err := svc.Deactivate(ctx, itemRule.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	res, err = svc.ResolvePrice(ctx, ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		ItemID:    "CBC",
		BasePrice: 1000,
	})
	if err != nil {
		t.Fatalf("resolve after deactivate: %v", err)
	}
	if res.EffectivePrice != 900 {
		t.Fatalf("price = %d, want 900 after item rule deactivated", res.EffectivePrice)
	}
}

func TestResolvePrice_WindowedRule(t *testing.T) {
	ctx := context.Background()
	_, _, svc, companyID := setup(t)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID:     companyID,
		Scope:         ratedomain.ScopeOutpatient,
		RuleType:      ratedomain.RuleTypeDefault,
		Mode:          ratedomain.ModeFixedDiscount,
		Value:         decimal.NewFromInt(50),
		EffectiveFrom: &from,
		EffectiveTo:   &to,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	inWindow, err := svc.ResolvePrice(ctx, ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeOutpatient,
		ItemID:    "CONSULT",
		BasePrice: 300,
		AsOf:      time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("resolve in window: %v", err)
	}
	if inWindow.EffectivePrice != 250 {
		t.Fatalf("price = %d, want 250 in window", inWindow.EffectivePrice)
	}

	outOfWindow, err := svc.ResolvePrice(ctx, ratedomain.ResolveRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeOutpatient,
		ItemID:    "CONSULT",
		BasePrice: 300,
		AsOf:      time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("resolve out of window: %v", err)
	}
	if outOfWindow.EffectivePrice != 300 || outOfWindow.Rule != nil {
		t.Fatalf("resolution = %+v, want base price out of window", outOfWindow)
	}
}

func TestUpdateRule(t *testing.T) {
	ctx := context.Background()
	_, node, svc, companyID := setup(t)

	rule, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	value := decimal.NewFromInt(20)
	priority := 5
	updated, err := svc.Update(ctx, rule.ID, ratedomain.UpdateRequest{
		Value:    &value,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Value.Equal(value) || updated.Priority != 5 {
		t.Fatalf("updated = %+v, want value 20 priority 5", updated)
	}

	if _, err := svc.Update(ctx, node.Generate(), ratedomain.UpdateRequest{}); err != ratedomain.ErrNotFound {
		t.Fatalf("err = %v, want rule_not_found", err)
	}

	bad := decimal.NewFromInt(-1)
	if _, err := svc.Update(ctx, rule.ID, ratedomain.UpdateRequest{Value: &bad}); err != ratedomain.ErrInvalidValue {
		t.Fatalf("err = %v, want invalid_value", err)
	}
}

func TestListRules_ScopeFilter(t *testing.T) {
	ctx := context.Background()
	_, _, svc, companyID := setup(t)

	if _, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeLab,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("create lab: %v", err)
	}
	if _, err := svc.Create(ctx, ratedomain.CreateRequest{
		CompanyID: companyID,
		Scope:     ratedomain.ScopeInpatient,
		RuleType:  ratedomain.RuleTypeDefault,
		Mode:      ratedomain.ModePercentDiscount,
		Value:     decimal.NewFromInt(15),
	}); err != nil {
		t.Fatalf("create ipd: %v", err)
	}

	all, err := svc.List(ctx, companyID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	scope := ratedomain.ScopeLab
	labOnly, err := svc.List(ctx, companyID, &scope)
	if err != nil {
		t.Fatalf("list lab: %v", err)
	}
	if len(labOnly) != 1 || labOnly[0].Scope != ratedomain.ScopeLab {
		t.Fatalf("unexpected scope filter result: %+v", labOnly)
	}
}
