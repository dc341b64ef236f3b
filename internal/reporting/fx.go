package reporting

import (
	"github.com/clinicore/panelbilling/internal/reporting/repository"
	"github.com/clinicore/panelbilling/internal/reporting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reporting.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
