package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*Room, error)
	GetRoom(ctx context.Context, dormitoryID, id snowflake.ID) (*Room, error)
	ListRooms(ctx context.Context, dormitoryID snowflake.ID) ([]Room, error)

	CreateTenant(ctx context.Context, req CreateTenantRequest) (*Tenant, error)
	GetTenant(ctx context.Context, dormitoryID, id snowflake.ID) (*Tenant, error)
	ListTenants(ctx context.Context, dormitoryID snowflake.ID, statuses ...TenantStatus) ([]Tenant, error)
	UpdateTenantStatus(ctx context.Context, req UpdateTenantStatusRequest) (*Tenant, error)
}

type CreateRoomRequest struct {
	DormitoryID snowflake.ID    `json:"-"`
	Number      string          `json:"number"`
	Floor       int             `json:"floor"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

type CreateTenantRequest struct {
	DormitoryID snowflake.ID `json:"-"`
	RoomID      snowflake.ID `json:"-"`
	Name        string       `json:"name"`
	Phone       *string      `json:"phone"`
	LineUserID  *string      `json:"line_user_id"`
	MoveInDate  *time.Time   `json:"move_in_date"`
}

type UpdateTenantStatusRequest struct {
	DormitoryID snowflake.ID `json:"-"`
	TenantID    snowflake.ID `json:"-"`
	Status      TenantStatus `json:"status"`
	MoveOutDate *time.Time   `json:"move_out_date"`
}

var (
	ErrRoomNotFound      = errors.New("room_not_found")
	ErrTenantNotFound    = errors.New("tenant_not_found")
	ErrInvalidRoomNumber = errors.New("invalid_room_number")
	ErrInvalidRent       = errors.New("invalid_monthly_rent")
	ErrDuplicateRoom     = errors.New("duplicate_room_number")
	ErrInvalidTenantName = errors.New("invalid_tenant_name")
	ErrInvalidStatus     = errors.New("invalid_tenant_status")
	ErrRoomOccupied      = errors.New("room_occupied")
)
