package company

import (
	"github.com/clinicore/panelbilling/internal/company/repository"
	"github.com/clinicore/panelbilling/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
