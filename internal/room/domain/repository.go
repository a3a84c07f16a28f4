package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	InsertRoom(ctx context.Context, room *Room) error
	FindRoom(ctx context.Context, dormitoryID, id snowflake.ID) (*Room, error)
	FindRoomByNumber(ctx context.Context, dormitoryID snowflake.ID, number string) (*Room, error)
	ListRooms(ctx context.Context, dormitoryID snowflake.ID) ([]Room, error)

	InsertTenant(ctx context.Context, tenant *Tenant) error
	FindTenant(ctx context.Context, dormitoryID, id snowflake.ID) (*Tenant, error)
	ListTenants(ctx context.Context, dormitoryID snowflake.ID, statuses ...TenantStatus) ([]Tenant, error)
	SaveTenant(ctx context.Context, tenant *Tenant) error
}
