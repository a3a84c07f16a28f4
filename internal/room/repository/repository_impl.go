package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/railzwaylabs/dormitory/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	rooms   repository.Repository[domain.Room]
	tenants repository.Repository[domain.Tenant]
}

func New(db *gorm.DB) domain.Repository {
	return &repo{
		rooms:   repository.ProvideStore[domain.Room](db),
		tenants: repository.ProvideStore[domain.Tenant](db),
	}
}

func (r *repo) InsertRoom(ctx context.Context, room *domain.Room) error {
	return r.rooms.Create(ctx, room)
}

func (r *repo) FindRoom(ctx context.Context, dormitoryID, id snowflake.ID) (*domain.Room, error) {
	return r.rooms.FindOne(ctx, "dormitory_id = ? AND id = ?", dormitoryID, id)
}

func (r *repo) FindRoomByNumber(ctx context.Context, dormitoryID snowflake.ID, number string) (*domain.Room, error) {
	return r.rooms.FindOne(ctx, "dormitory_id = ? AND number = ?", dormitoryID, number)
}

func (r *repo) ListRooms(ctx context.Context, dormitoryID snowflake.ID) ([]domain.Room, error) {
	return r.rooms.Find(ctx, "number ASC", "dormitory_id = ?", dormitoryID)
}

func (r *repo) InsertTenant(ctx context.Context, tenant *domain.Tenant) error {
	return r.tenants.Create(ctx, tenant)
}

func (r *repo) FindTenant(ctx context.Context, dormitoryID, id snowflake.ID) (*domain.Tenant, error) {
	return r.tenants.FindOne(ctx, "dormitory_id = ? AND id = ?", dormitoryID, id)
}

func (r *repo) ListTenants(ctx context.Context, dormitoryID snowflake.ID, statuses ...domain.TenantStatus) ([]domain.Tenant, error) {
	if len(statuses) == 0 {
		return r.tenants.Find(ctx, "id ASC", "dormitory_id = ?", dormitoryID)
	}
	return r.tenants.Find(ctx, "id ASC", "dormitory_id = ? AND status IN ?", dormitoryID, statuses)
}

func (r *repo) SaveTenant(ctx context.Context, tenant *domain.Tenant) error {
	return r.tenants.Save(ctx, tenant)
}
