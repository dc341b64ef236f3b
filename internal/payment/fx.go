package payment

import (
	"github.com/clinicore/panelbilling/internal/payment/repository"
	"github.com/clinicore/panelbilling/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
