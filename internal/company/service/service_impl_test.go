package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	companyrepo "github.com/clinicore/panelbilling/internal/company/repository"
	companyservice "github.com/clinicore/panelbilling/internal/company/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) companydomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&companydomain.Company{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return companyservice.NewService(companyservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  companyrepo.Provide(),
	})
}

func TestCreateCompany(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	company, err := svc.Create(ctx, companydomain.CreateRequest{Code: " ACME ", Name: " Acme Assurance "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if company.Code != "ACME" || company.Name != "Acme Assurance" {
		t.Fatalf("company = %+v, want trimmed fields", company)
	}
	if !company.Active {
		t.Fatalf("new company should be active")
	}

	got, err := svc.Get(ctx, company.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "ACME" {
		t.Fatalf("code = %s, want ACME", got.Code)
	}
}

func TestCreateCompany_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	if _, err := svc.Create(ctx, companydomain.CreateRequest{Code: "ACME", Name: "Acme"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, companydomain.CreateRequest{Code: "ACME", Name: "Acme Again"}); err != companydomain.ErrCodeExists {
		t.Fatalf("err = %v, want code_exists", err)
	}
}

func TestCreateCompany_Validation(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	if _, err := svc.Create(ctx, companydomain.CreateRequest{Code: "  ", Name: "Acme"}); err != companydomain.ErrInvalidCode {
		t.Fatalf("err = %v, want invalid_code", err)
	}
	if _, err := svc.Create(ctx, companydomain.CreateRequest{Code: "ACME", Name: ""}); err != companydomain.ErrInvalidName {
		t.Fatalf("err = %v, want invalid_name", err)
	}
}

func TestGetCompany_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	node, _ := snowflake.NewNode(6)
	if _, err := svc.Get(ctx, node.Generate()); err != companydomain.ErrNotFound {
		t.Fatalf("err = %v, want company_not_found", err)
	}
}
