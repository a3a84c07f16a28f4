package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/railzwaylabs/dormitory/internal/notification/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Dormitory, error)
	Get(ctx context.Context, id snowflake.ID) (*Dormitory, error)
	List(ctx context.Context) ([]Dormitory, error)
	ListActiveAfter(ctx context.Context, afterID snowflake.ID) ([]Dormitory, error)

	UpsertNotificationConfig(ctx context.Context, req UpsertNotificationConfigRequest) (*NotificationConfigResponse, error)
	GetNotificationConfig(ctx context.Context, dormitoryID snowflake.ID) (*NotificationConfigResponse, error)
	ResolveChannel(ctx context.Context, dormitoryID snowflake.ID) (*notificationdomain.Channel, error)

	UpsertPromptPayConfig(ctx context.Context, req UpsertPromptPayConfigRequest) (*PromptPayConfig, error)
	GetPromptPayConfig(ctx context.Context, dormitoryID snowflake.ID) (*PromptPayConfig, error)
}

type CreateRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
	DueDay  int     `json:"due_day"`
}

type UpsertNotificationConfigRequest struct {
	DormitoryID snowflake.ID
	Channel     string
	Destination string
	// Credential is kept when nil.
	Credential *string
	Active     bool
	Events     map[string]bool
}

type NotificationConfigResponse struct {
	DormitoryID   string          `json:"dormitory_id"`
	Channel       string          `json:"channel"`
	Destination   string          `json:"destination"`
	HasCredential bool            `json:"has_credential"`
	Active        bool            `json:"active"`
	Events        map[string]bool `json:"events"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type UpsertPromptPayConfigRequest struct {
	DormitoryID snowflake.ID
	PayeeID     string
	DisplayName string
	Active      bool
}

const DefaultDueDay = 5

var (
	ErrNotFound             = errors.New("dormitory_not_found")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidDueDay        = errors.New("invalid_due_day")
	ErrInvalidChannel       = errors.New("invalid_channel")
	ErrInvalidDestination   = errors.New("invalid_destination")
	ErrInvalidEvent         = errors.New("invalid_event")
	ErrMissingCredential    = errors.New("missing_credential")
	ErrInvalidPayee         = errors.New("invalid_payee")
	ErrNotificationNotFound = errors.New("notification_config_not_found")
	ErrPromptPayNotFound    = errors.New("promptpay_config_not_found")
)
