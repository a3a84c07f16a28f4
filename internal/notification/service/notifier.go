package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/railzwaylabs/dormitory/internal/notification/message"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type NotifierParams struct {
	fx.In

	Log      *zap.Logger
	Resolver domain.ChannelResolver
	Sender   domain.Sender
}

// Notifier applies a dormitory's channel config and event switches before
// handing a rendered message to the Sender.
type Notifier struct {
	log      *zap.Logger
	resolver domain.ChannelResolver
	sender   domain.Sender
}

func NewNotifier(p NotifierParams) *Notifier {
	return &Notifier{
		log:      p.Log.Named("notification.notifier"),
		resolver: p.Resolver,
		sender:   p.Sender,
	}
}

// Channel returns the dormitory's channel when it is active and the event is
// switched on, otherwise nil.
func (n *Notifier) Channel(ctx context.Context, dormitoryID snowflake.ID, event domain.EventType) (*domain.Channel, error) {
	if n == nil || n.resolver == nil {
		return nil, nil
	}
	ch, err := n.resolver.ResolveChannel(ctx, dormitoryID)
	if err != nil {
		return nil, err
	}
	if !ch.Enabled(event) {
		return nil, nil
	}
	return ch, nil
}

// Deliver renders view for event and sends it on ch.
func (n *Notifier) Deliver(ctx context.Context, ch *domain.Channel, event domain.EventType, billID snowflake.ID, view any) error {
	text, err := message.Render(event, view)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, *ch, domain.Message{
		Event:       event,
		DormitoryID: ch.DormitoryID,
		BillID:      billID,
		Text:        text,
	})
}

// Notify is Channel followed by Deliver. It reports whether a message went out.
func (n *Notifier) Notify(ctx context.Context, dormitoryID snowflake.ID, event domain.EventType, billID snowflake.ID, view any) (bool, error) {
	ch, err := n.Channel(ctx, dormitoryID, event)
	if err != nil || ch == nil {
		return false, err
	}
	if err := n.Deliver(ctx, ch, event, billID, view); err != nil {
		return false, err
	}
	return true, nil
}
