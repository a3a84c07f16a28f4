package bill

import (
	"github.com/railzwaylabs/dormitory/internal/bill/repository"
	"github.com/railzwaylabs/dormitory/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
