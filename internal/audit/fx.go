package audit

import (
	"github.com/clinicore/panelbilling/internal/audit/repository"
	"github.com/clinicore/panelbilling/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
