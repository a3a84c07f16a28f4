package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrUnknownChannel     = errors.New("unknown_notification_channel")
	ErrMissingCredential  = errors.New("missing_notification_credential")
	ErrMissingDestination = errors.New("missing_notification_destination")
	ErrUnknownEvent       = errors.New("unknown_notification_event")
)

type ChannelKind string

const (
	ChannelLineNotify    ChannelKind = "line_notify"
	ChannelLineMessaging ChannelKind = "line_messaging"
	ChannelWebhook       ChannelKind = "webhook"
)

func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelLineNotify, ChannelLineMessaging, ChannelWebhook:
		return true
	}
	return false
}

type EventType string

const (
	EventBillCreated     EventType = "billCreated"
	EventBillDueReminder EventType = "billDueReminder"
	EventBillOverdue     EventType = "billOverdue"
	EventPaymentReceived EventType = "paymentReceived"
	EventUtilityReading  EventType = "utilityReading"
)

// AllEvents lists the per-event switches a dormitory can toggle.
var AllEvents = []EventType{
	EventBillCreated,
	EventBillDueReminder,
	EventBillOverdue,
	EventPaymentReceived,
	EventUtilityReading,
}

func (e EventType) Valid() bool {
	for _, known := range AllEvents {
		if e == known {
			return true
		}
	}
	return false
}

// Channel is a resolved, decrypted destination for one dormitory.
type Channel struct {
	DormitoryID snowflake.ID
	Kind        ChannelKind
	Destination string
	Credential  string
	Active      bool
	Events      map[string]bool
}

// Enabled reports whether the channel should receive the event.
func (c *Channel) Enabled(event EventType) bool {
	if c == nil || !c.Active {
		return false
	}
	return c.Events[string(event)]
}

type Message struct {
	Event       EventType
	DormitoryID snowflake.ID
	BillID      snowflake.ID
	Text        string
}

// Provider delivers one message over one channel kind.
type Provider interface {
	Send(ctx context.Context, ch Channel, msg Message) error
}

// Sender is what the billing code talks to; it picks the provider and
// applies the retry policy.
type Sender interface {
	Send(ctx context.Context, ch Channel, msg Message) error
}

// ChannelResolver returns the dormitory's channel, or nil when none is
// configured.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, dormitoryID snowflake.ID) (*Channel, error)
}

// DeliveryError carries the remote HTTP status of a failed delivery.
type DeliveryError struct {
	Channel    ChannelKind
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s_delivery_failed: status=%d", e.Channel, e.StatusCode)
}

// Retryable is false for client errors other than rate limiting.
func (e *DeliveryError) Retryable() bool {
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}
