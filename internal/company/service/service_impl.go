package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	"github.com/clinicore/panelbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  companydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  companydomain.Repository
}

func NewService(p Params) companydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req companydomain.CreateRequest) (*companydomain.Company, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, companydomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, companydomain.ErrInvalidName
	}

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, companydomain.ErrCodeExists
		}
		return nil, err
	}
	return &company, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*companydomain.Company, error) {
	company, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}
	return company, nil
}

func (s *Service) List(ctx context.Context) ([]companydomain.Company, error) {
	return s.repo.List(ctx, s.db)
}
