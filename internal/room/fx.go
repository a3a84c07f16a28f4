package room

import (
	"github.com/railzwaylabs/dormitory/internal/room/repository"
	"github.com/railzwaylabs/dormitory/internal/room/service"
	"go.uber.org/fx"
)

var Module = fx.Module("room.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
