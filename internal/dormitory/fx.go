package dormitory

import (
	"github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/dormitory/repository"
	"github.com/railzwaylabs/dormitory/internal/dormitory/service"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("dormitory.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) notificationdomain.ChannelResolver { return s }),
)
