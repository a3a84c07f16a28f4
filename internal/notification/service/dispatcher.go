package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/railzwaylabs/dormitory/internal/config"
	"github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/observability"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Metrics   *observability.Metrics `optional:"true"`
	Providers map[domain.ChannelKind]domain.Provider
}

// Dispatcher routes a message to the provider for the channel kind and
// retries transient failures with exponential backoff.
type Dispatcher struct {
	log       *zap.Logger
	metrics   *observability.Metrics
	providers map[domain.ChannelKind]domain.Provider

	maxAttempts     uint
	initialInterval time.Duration
	maxElapsed      time.Duration
}

func NewDispatcher(p Params) *Dispatcher {
	maxAttempts := p.Cfg.Notification.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	initial := p.Cfg.Notification.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxElapsed := p.Cfg.Notification.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 10 * time.Second
	}

	return &Dispatcher{
		log:             p.Log.Named("notification.dispatcher"),
		metrics:         p.Metrics,
		providers:       p.Providers,
		maxAttempts:     uint(maxAttempts),
		initialInterval: initial,
		maxElapsed:      maxElapsed,
	}
}

func (d *Dispatcher) Send(ctx context.Context, ch domain.Channel, msg domain.Message) error {
	provider, ok := d.providers[ch.Kind]
	if !ok {
		return domain.ErrUnknownChannel
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialInterval

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := provider.Send(ctx, ch, msg)
		if err == nil {
			return struct{}{}, nil
		}
		if !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		d.log.Debug("notification attempt failed",
			zap.String("channel", string(ch.Kind)),
			zap.String("event", string(msg.Event)),
			zap.Int("attempt", attempts),
			zap.Error(err))
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.maxAttempts),
		backoff.WithMaxElapsedTime(d.maxElapsed),
	)

	if err != nil {
		d.metrics.IncNotification(string(ch.Kind), string(msg.Event), "failed")
		d.log.Warn("notification delivery failed",
			zap.String("channel", string(ch.Kind)),
			zap.String("event", string(msg.Event)),
			zap.String("dormitory_id", msg.DormitoryID.String()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return err
	}

	d.metrics.IncNotification(string(ch.Kind), string(msg.Event), "sent")
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, domain.ErrMissingCredential) ||
		errors.Is(err, domain.ErrMissingDestination) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	var de *domain.DeliveryError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return true
}
