package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(New),
)

type Clock interface {
	Now(ctx context.Context) time.Time
}

func New() Clock {
	return SystemClock{}
}

type key string

var simulatedTimeKey key = "simulated_time"

// WithTime pins the clock seen through ctx to t. Used by replays of the
// due/overdue scan and by tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, simulatedTimeKey, t.UTC())
}

// FromContext returns the pinned time, if any.
func FromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(simulatedTimeKey).(time.Time)
	return t, ok
}
