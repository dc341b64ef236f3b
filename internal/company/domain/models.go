package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Company is a corporate payer (insurer or panel) whose contracts drive
// pricing and whose billable events accrue on the ledger.
type Company struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Active    bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Company) TableName() string { return "companies" }

type CreateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Company, error)
	Get(ctx context.Context, id snowflake.ID) (*Company, error)
	List(ctx context.Context) ([]Company, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, company *Company) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Company, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Company, error)
	List(ctx context.Context, db *gorm.DB) ([]Company, error)
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidName   = errors.New("invalid_name")
	ErrCodeExists    = errors.New("code_exists")
	ErrNotFound      = errors.New("company_not_found")
)
