package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	dormitories   repository.Repository[domain.Dormitory]
	notifications repository.Repository[domain.NotificationConfig]
	promptpay     repository.Repository[domain.PromptPayConfig]
}

func New(db *gorm.DB) domain.Repository {
	return &repo{
		dormitories:   repository.ProvideStore[domain.Dormitory](db),
		notifications: repository.ProvideStore[domain.NotificationConfig](db),
		promptpay:     repository.ProvideStore[domain.PromptPayConfig](db),
	}
}

func (r *repo) Create(ctx context.Context, d *domain.Dormitory) error {
	return r.dormitories.Create(ctx, d)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Dormitory, error) {
	return r.dormitories.FindOne(ctx, "id = ?", id)
}

func (r *repo) List(ctx context.Context) ([]domain.Dormitory, error) {
	return r.dormitories.Find(ctx, "name ASC, id ASC", "1 = 1")
}

func (r *repo) ListActiveAfter(ctx context.Context, afterID snowflake.ID) ([]domain.Dormitory, error) {
	return r.dormitories.Find(ctx, "id ASC", "active = ? AND id > ?", true, afterID)
}

func (r *repo) FindNotificationConfig(ctx context.Context, dormitoryID snowflake.ID) (*domain.NotificationConfig, error) {
	return r.notifications.FindOne(ctx, "dormitory_id = ?", dormitoryID)
}

func (r *repo) SaveNotificationConfig(ctx context.Context, cfg *domain.NotificationConfig) error {
	return r.notifications.Save(ctx, cfg)
}

func (r *repo) FindPromptPayConfig(ctx context.Context, dormitoryID snowflake.ID) (*domain.PromptPayConfig, error) {
	return r.promptpay.FindOne(ctx, "dormitory_id = ?", dormitoryID)
}

func (r *repo) SavePromptPayConfig(ctx context.Context, cfg *domain.PromptPayConfig) error {
	return r.promptpay.Save(ctx, cfg)
}
