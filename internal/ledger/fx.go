package ledger

import (
	"github.com/clinicore/panelbilling/internal/ledger/repository"
	"github.com/clinicore/panelbilling/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
