package meterreading

import (
	"github.com/railzwaylabs/dormitory/internal/meterreading/repository"
	"github.com/railzwaylabs/dormitory/internal/meterreading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meterreading.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
