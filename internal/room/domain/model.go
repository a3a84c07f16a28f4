package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Room struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	DormitoryID snowflake.ID    `json:"dormitory_id" gorm:"not null;uniqueIndex:ux_rooms_dorm_number,priority:1"`
	Number      string          `json:"number" gorm:"type:varchar(32);not null;uniqueIndex:ux_rooms_dorm_number,priority:2"`
	Floor       int             `json:"floor" gorm:"not null"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" gorm:"type:numeric(12,2);not null"`
	Active      bool            `json:"active" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"not null"`
}

func (Room) TableName() string { return "rooms" }

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantMovingOut TenantStatus = "moving_out"
	TenantInactive  TenantStatus = "inactive"
)

func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantMovingOut, TenantInactive:
		return true
	}
	return false
}

type Tenant struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	DormitoryID snowflake.ID `json:"dormitory_id" gorm:"not null;index:idx_tenants_dorm_status,priority:1"`
	RoomID      snowflake.ID `json:"room_id" gorm:"not null;index"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Phone       *string      `json:"phone,omitempty" gorm:"type:varchar(32)"`
	LineUserID  *string      `json:"line_user_id,omitempty" gorm:"type:varchar(64)"`
	Status      TenantStatus `json:"status" gorm:"type:varchar(16);not null;index:idx_tenants_dorm_status,priority:2"`
	MoveInDate  time.Time    `json:"move_in_date" gorm:"not null"`
	MoveOutDate *time.Time   `json:"move_out_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Tenant) TableName() string { return "tenants" }
