package notification

import (
	"github.com/railzwaylabs/dormitory/internal/config"
	"github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/notification/provider/linemessaging"
	"github.com/railzwaylabs/dormitory/internal/notification/provider/linenotify"
	"github.com/railzwaylabs/dormitory/internal/notification/provider/webhook"
	"github.com/railzwaylabs/dormitory/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		func(cfg config.Config) map[domain.ChannelKind]domain.Provider {
			timeout := cfg.Notification.Timeout
			return map[domain.ChannelKind]domain.Provider{
				domain.ChannelLineNotify:    linenotify.NewProvider(cfg.Notification.LineNotifyURL, timeout),
				domain.ChannelLineMessaging: linemessaging.NewProvider(cfg.Notification.LineMessagingURL, timeout),
				domain.ChannelWebhook:       webhook.NewProvider(timeout),
			}
		},
		fx.Annotate(service.NewDispatcher, fx.As(new(domain.Sender))),
		service.NewNotifier,
	),
)
