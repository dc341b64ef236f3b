package raterule

import (
	"github.com/clinicore/panelbilling/internal/raterule/repository"
	"github.com/clinicore/panelbilling/internal/raterule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("raterule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
