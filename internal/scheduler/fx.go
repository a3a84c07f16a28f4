package scheduler

import (
	"context"

	"github.com/railzwaylabs/dormitory/internal/config"
	"github.com/railzwaylabs/dormitory/internal/scheduler/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(repository.NewCheckpointRepository),
	fx.Provide(func(p struct {
		fx.In
		Client *redis.Client `optional:"true"`
	}) Locker {
		return NewLocker(p.Client)
	}),
	fx.Provide(New),
)

// Start runs the cron loop for the lifetime of the fx app when the
// scheduler is enabled.
func Start(lc fx.Lifecycle, cfg config.Config, s *Scheduler) {
	if !cfg.Scheduler.Enabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
