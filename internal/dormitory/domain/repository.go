package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, d *Dormitory) error
	FindByID(ctx context.Context, id snowflake.ID) (*Dormitory, error)
	List(ctx context.Context) ([]Dormitory, error)
	ListActiveAfter(ctx context.Context, afterID snowflake.ID) ([]Dormitory, error)

	FindNotificationConfig(ctx context.Context, dormitoryID snowflake.ID) (*NotificationConfig, error)
	SaveNotificationConfig(ctx context.Context, cfg *NotificationConfig) error

	FindPromptPayConfig(ctx context.Context, dormitoryID snowflake.ID) (*PromptPayConfig, error)
	SavePromptPayConfig(ctx context.Context, cfg *PromptPayConfig) error
}
