package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/panelbilling/internal/company/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO companies (id, code, name, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		company.ID,
		company.Code,
		company.Name,
		company.Active,
		company.CreatedAt,
		company.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM companies WHERE id = ?`,
		id,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Company, error) {
	var company domain.Company
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM companies WHERE code = ?`,
		code,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Company, error) {
	var items []domain.Company
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM companies ORDER BY created_at ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
